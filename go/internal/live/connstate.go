package live

import "time"

// ConnectionState is the lifecycle state of the live connection
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateOpen         ConnectionState = "open"
	// StateRetrying is the failed-retrying state: a reconnect is scheduled
	StateRetrying ConnectionState = "retrying"
	// StateExhausted is terminal; only a new mount starts over
	StateExhausted ConnectionState = "exhausted"
)

// Signal is an input to the connection state machine
type Signal int

const (
	SignalConnect Signal = iota
	SignalAuthMissing
	SignalOpened
	SignalErrored
	SignalClosed
	SignalRetryDue
	SignalDisconnect
)

func (s Signal) String() string {
	switch s {
	case SignalConnect:
		return "connect"
	case SignalAuthMissing:
		return "auth_missing"
	case SignalOpened:
		return "opened"
	case SignalErrored:
		return "errored"
	case SignalClosed:
		return "closed"
	case SignalRetryDue:
		return "retry_due"
	case SignalDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Action is the side effect the driver performs after a transition
type Action int

const (
	ActionNone Action = iota
	ActionDial
	ActionScheduleRetry
	ActionGiveUp
	ActionTeardown
)

// RetryPolicy bounds automatic reconnection
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy retries 5 times, 5 seconds apart
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Delay:       5 * time.Second,
	}
}

// Machine is the pure connection state machine. Attempts counts consecutive failed
// connections since the last successful open.
type Machine struct {
	State       ConnectionState
	Attempts    int
	MaxAttempts int
}

// NewMachine returns a disconnected machine
func NewMachine(maxAttempts int) Machine {
	return Machine{State: StateDisconnected, MaxAttempts: maxAttempts}
}

// Next returns the machine after applying sig and the action the driver must take.
// Signals that do not apply to the current state leave it unchanged with ActionNone.
func (m Machine) Next(sig Signal) (Machine, Action) {
	switch sig {
	case SignalConnect:
		if m.State == StateDisconnected {
			m.State = StateConnecting
			return m, ActionDial
		}

	case SignalOpened:
		if m.State == StateConnecting {
			m.State = StateOpen
			m.Attempts = 0
			return m, ActionNone
		}

	case SignalAuthMissing:
		if m.State == StateConnecting {
			return m.fail()
		}

	case SignalErrored, SignalClosed:
		if m.State == StateConnecting || m.State == StateOpen {
			return m.fail()
		}

	case SignalRetryDue:
		if m.State == StateRetrying {
			m.State = StateConnecting
			return m, ActionDial
		}

	case SignalDisconnect:
		if m.State != StateDisconnected {
			m.State = StateDisconnected
			m.Attempts = 0
			return m, ActionTeardown
		}
	}
	return m, ActionNone
}

func (m Machine) fail() (Machine, Action) {
	if m.Attempts < m.MaxAttempts {
		m.Attempts++
		m.State = StateRetrying
		return m, ActionScheduleRetry
	}
	m.State = StateExhausted
	return m, ActionGiveUp
}
