package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Listener receives connection lifecycle signals. Callbacks run on connection
// goroutines and never while the manager holds its lock.
type Listener interface {
	OnOpened()
	OnMessage(payload []byte)
	OnError(err error)
	OnClosed(code int)
	OnRetryScheduled(attempt int, delay time.Duration)
	OnExhausted()
	OnAuthMissing()
}

// ConnectionConfig holds configuration for the live connection
type ConnectionConfig struct {
	BaseURL     string // e.g., "wss://api.eventup.example"
	Retry       RetryPolicy
	DialTimeout time.Duration
}

// DefaultConnectionConfig returns default live connection configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		BaseURL:     "ws://localhost:8000",
		Retry:       DefaultRetryPolicy(),
		DialTimeout: 15 * time.Second,
	}
}

// ConnectionManager owns the single live connection of a mounted event view
type ConnectionManager struct {
	mu sync.Mutex

	config    ConnectionConfig
	transport Transport
	creds     CredentialProvider
	clock     clockwork.Clock
	listener  Listener

	machine Machine
	eventID string
	conn    Conn
	connID  string

	// gen changes on every dial and on Disconnect. Work started under an older
	// generation is dropped.
	gen uint64

	ctx    context.Context
	cancel context.CancelFunc

	retryTimer  clockwork.Timer
	retryCancel chan struct{}
}

// NewConnectionManager creates a disconnected connection manager
func NewConnectionManager(config ConnectionConfig, transport Transport, creds CredentialProvider, listener Listener, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		config:    config,
		transport: transport,
		creds:     creds,
		clock:     clock,
		listener:  listener,
		machine:   NewMachine(config.Retry.MaxAttempts),
	}
}

// Connect opens the live connection for an event. It is a no-op unless the manager is
// disconnected. The dial happens in the background; ctx bounds credential lookups and
// dials for this connection's lifetime.
func (cm *ConnectionManager) Connect(ctx context.Context, eventID string) {
	cm.mu.Lock()
	next, action := cm.machine.Next(SignalConnect)
	if action != ActionDial {
		state := cm.machine.State
		cm.mu.Unlock()
		log.Debug().
			Str("event_id", eventID).
			Str("state", string(state)).
			Msg("connect ignored, connection already active")
		return
	}

	cm.machine = next
	cm.eventID = eventID
	cm.ctx, cm.cancel = context.WithCancel(ctx)
	cm.gen++
	gen := cm.gen
	cm.mu.Unlock()

	go cm.dial(gen)
}

// Disconnect closes the connection and cancels any scheduled reconnect. It is idempotent
// and safe to call on a manager that never connected.
func (cm *ConnectionManager) Disconnect() {
	cm.mu.Lock()
	next, action := cm.machine.Next(SignalDisconnect)
	cm.machine = next
	cm.gen++
	cm.stopRetryLocked()

	conn := cm.conn
	connID := cm.connID
	cm.conn = nil
	cm.connID = ""
	if cm.cancel != nil {
		cm.cancel()
		cm.cancel = nil
	}
	eventID := cm.eventID
	cm.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Str("connection_id", connID).Msg("error closing live connection")
		}
	}
	if action == ActionTeardown {
		log.Info().
			Str("event_id", eventID).
			Str("connection_id", connID).
			Msg("live connection torn down")
	}
}

// Send writes v as JSON over the open connection
func (cm *ConnectionManager) Send(v interface{}) error {
	cm.mu.Lock()
	conn := cm.conn
	state := cm.machine.State
	cm.mu.Unlock()

	if state == StateExhausted {
		return ErrConnectionExhausted
	}
	if state != StateOpen || conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal live message: %w", err)
	}
	if err := conn.WriteMessage(data); err != nil {
		return &ConnectionFailure{Code: CloseCodeAbnormal, Err: err}
	}
	return nil
}

// State returns the current connection state
func (cm *ConnectionManager) State() ConnectionState {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.machine.State
}

// Attempts returns the number of consecutive failed connections
func (cm *ConnectionManager) Attempts() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.machine.Attempts
}

// dial resolves the credential, opens the connection and then runs the read pump
func (cm *ConnectionManager) dial(gen uint64) {
	cm.mu.Lock()
	if gen != cm.gen {
		cm.mu.Unlock()
		return
	}
	ctx := cm.ctx
	eventID := cm.eventID
	attempt := cm.machine.Attempts
	cm.mu.Unlock()

	token := resolveToken(ctx, cm.creds)
	if token == "" {
		log.Warn().Str("event_id", eventID).Msg("no access token, not opening live connection")
		cm.fail(gen, SignalAuthMissing, ErrAuthMissing, 0)
		return
	}

	dialCtx := ctx
	if cm.config.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cm.config.DialTimeout)
		defer cancel()
	}

	log.Debug().
		Str("event_id", eventID).
		Int("attempt", attempt).
		Msg("dialing live connection")

	conn, err := cm.transport.Dial(dialCtx, BuildURL(cm.config.BaseURL, eventID, token))
	if err != nil {
		cm.fail(gen, SignalErrored, &ConnectionFailure{Code: CloseCodeAbnormal, Err: err}, CloseCodeAbnormal)
		return
	}

	cm.mu.Lock()
	if gen != cm.gen {
		// Disconnected while dialing
		cm.mu.Unlock()
		conn.Close()
		return
	}
	cm.machine, _ = cm.machine.Next(SignalOpened)
	cm.conn = conn
	cm.connID = uuid.New().String()
	connID := cm.connID
	cm.mu.Unlock()

	log.Info().
		Str("event_id", eventID).
		Str("connection_id", connID).
		Msg("live connection established")

	if cm.listener != nil {
		cm.listener.OnOpened()
	}

	cm.readPump(gen, conn, connID)
}

// readPump delivers inbound messages until the connection fails or is superseded
func (cm *ConnectionManager) readPump(gen uint64, conn Conn, connID string) {
	for {
		payload, err := conn.ReadMessage()
		if err != nil {
			var closeErr *CloseError
			if errors.As(err, &closeErr) {
				log.Info().
					Str("connection_id", connID).
					Int("code", closeErr.Code).
					Str("reason", closeErr.Text).
					Msg("live connection closed")
				cm.fail(gen, SignalClosed, &ConnectionFailure{Code: closeErr.Code, Err: err}, closeErr.Code)
			} else {
				log.Error().
					Err(err).
					Str("connection_id", connID).
					Msg("live connection read failed")
				cm.fail(gen, SignalErrored, &ConnectionFailure{Code: CloseCodeAbnormal, Err: err}, CloseCodeAbnormal)
			}
			return
		}

		if !cm.current(gen) {
			return
		}
		if cm.listener != nil {
			cm.listener.OnMessage(payload)
		}
	}
}

func (cm *ConnectionManager) current(gen uint64) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return gen == cm.gen
}

// fail applies a failure signal for the connection of generation gen
func (cm *ConnectionManager) fail(gen uint64, sig Signal, err error, code int) {
	cm.mu.Lock()
	if gen != cm.gen {
		cm.mu.Unlock()
		return
	}
	next, action := cm.machine.Next(sig)
	if action == ActionNone {
		cm.mu.Unlock()
		return
	}
	cm.machine = next

	conn := cm.conn
	cm.conn = nil
	cm.connID = ""
	if action == ActionScheduleRetry {
		cm.scheduleRetryLocked(gen)
	}
	eventID := cm.eventID
	cm.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if action == ActionGiveUp {
		log.Error().
			Str("event_id", eventID).
			Int("attempts", next.Attempts).
			Msg("live connection retries exhausted")
	} else {
		log.Warn().
			Str("event_id", eventID).
			Str("signal", sig.String()).
			Int("attempt", next.Attempts).
			Dur("retry_in", cm.config.Retry.Delay).
			Msg("live connection lost, reconnect scheduled")
	}

	if cm.listener == nil {
		return
	}
	switch sig {
	case SignalAuthMissing:
		cm.listener.OnAuthMissing()
	case SignalClosed:
		cm.listener.OnClosed(code)
	default:
		cm.listener.OnError(err)
	}
	switch action {
	case ActionScheduleRetry:
		cm.listener.OnRetryScheduled(next.Attempts, cm.config.Retry.Delay)
	case ActionGiveUp:
		cm.listener.OnExhausted()
	}
}

// scheduleRetryLocked arms a one-shot reconnect timer. Caller holds cm.mu.
func (cm *ConnectionManager) scheduleRetryLocked(gen uint64) {
	cm.stopRetryLocked()

	timer := cm.clock.NewTimer(cm.config.Retry.Delay)
	cancel := make(chan struct{})
	cm.retryTimer = timer
	cm.retryCancel = cancel

	go func(t clockwork.Timer) {
		select {
		case <-t.Chan():
			cm.retryDue(gen)
		case <-cancel:
			stopAndDrainTimer(t)
		}
	}(timer)
}

// stopRetryLocked cancels a scheduled reconnect. Caller holds cm.mu.
func (cm *ConnectionManager) stopRetryLocked() {
	if cm.retryTimer != nil {
		cm.retryTimer.Stop()
		cm.retryTimer = nil
	}
	if cm.retryCancel != nil {
		close(cm.retryCancel)
		cm.retryCancel = nil
	}
}

// retryDue runs when the reconnect timer fires
func (cm *ConnectionManager) retryDue(gen uint64) {
	cm.mu.Lock()
	if gen != cm.gen {
		cm.mu.Unlock()
		return
	}
	next, action := cm.machine.Next(SignalRetryDue)
	if action != ActionDial {
		cm.mu.Unlock()
		return
	}
	cm.machine = next
	cm.retryTimer = nil
	cm.retryCancel = nil
	cm.gen++
	newGen := cm.gen
	cm.mu.Unlock()

	cm.dial(newGen)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
