package live

import "testing"

func TestMachineNext(t *testing.T) {
	tests := []struct {
		name       string
		from       Machine
		signal     Signal
		wantState  ConnectionState
		wantTries  int
		wantAction Action
	}{
		{"connect from disconnected", Machine{State: StateDisconnected, MaxAttempts: 5}, SignalConnect, StateConnecting, 0, ActionDial},
		{"connect while connecting", Machine{State: StateConnecting, MaxAttempts: 5}, SignalConnect, StateConnecting, 0, ActionNone},
		{"connect while open", Machine{State: StateOpen, MaxAttempts: 5}, SignalConnect, StateOpen, 0, ActionNone},
		{"opened resets attempts", Machine{State: StateConnecting, Attempts: 3, MaxAttempts: 5}, SignalOpened, StateOpen, 0, ActionNone},
		{"auth missing retries", Machine{State: StateConnecting, MaxAttempts: 5}, SignalAuthMissing, StateRetrying, 1, ActionScheduleRetry},
		{"error while open retries", Machine{State: StateOpen, MaxAttempts: 5}, SignalErrored, StateRetrying, 1, ActionScheduleRetry},
		{"close while connecting retries", Machine{State: StateConnecting, Attempts: 2, MaxAttempts: 5}, SignalClosed, StateRetrying, 3, ActionScheduleRetry},
		{"close after error is ignored", Machine{State: StateRetrying, Attempts: 1, MaxAttempts: 5}, SignalClosed, StateRetrying, 1, ActionNone},
		{"fifth failure still retries", Machine{State: StateConnecting, Attempts: 4, MaxAttempts: 5}, SignalErrored, StateRetrying, 5, ActionScheduleRetry},
		{"sixth failure gives up", Machine{State: StateConnecting, Attempts: 5, MaxAttempts: 5}, SignalErrored, StateExhausted, 5, ActionGiveUp},
		{"retry due dials", Machine{State: StateRetrying, Attempts: 2, MaxAttempts: 5}, SignalRetryDue, StateConnecting, 2, ActionDial},
		{"retry due after disconnect", Machine{State: StateDisconnected, MaxAttempts: 5}, SignalRetryDue, StateDisconnected, 0, ActionNone},
		{"exhausted ignores retry", Machine{State: StateExhausted, Attempts: 5, MaxAttempts: 5}, SignalRetryDue, StateExhausted, 5, ActionNone},
		{"disconnect tears down", Machine{State: StateRetrying, Attempts: 3, MaxAttempts: 5}, SignalDisconnect, StateDisconnected, 0, ActionTeardown},
		{"disconnect when disconnected", Machine{State: StateDisconnected, MaxAttempts: 5}, SignalDisconnect, StateDisconnected, 0, ActionNone},
		{"zero ceiling gives up at once", Machine{State: StateConnecting, MaxAttempts: 0}, SignalErrored, StateExhausted, 0, ActionGiveUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, action := tt.from.Next(tt.signal)
			if got.State != tt.wantState || got.Attempts != tt.wantTries || action != tt.wantAction {
				t.Errorf("Next(%s) = (%s, attempts %d, action %d), want (%s, attempts %d, action %d)",
					tt.signal, got.State, got.Attempts, action, tt.wantState, tt.wantTries, tt.wantAction)
			}
		})
	}
}

func TestMachineExactlyFiveRetries(t *testing.T) {
	m := NewMachine(DefaultRetryPolicy().MaxAttempts)
	m, _ = m.Next(SignalConnect)

	scheduled := 0
	for {
		var action Action
		m, action = m.Next(SignalErrored)
		if action == ActionGiveUp {
			break
		}
		if action != ActionScheduleRetry {
			t.Fatalf("unexpected action %d", action)
		}
		scheduled++
		m, _ = m.Next(SignalRetryDue)
	}

	if scheduled != 5 {
		t.Errorf("scheduled %d retries, want 5", scheduled)
	}
	if m.State != StateExhausted {
		t.Errorf("State = %s, want exhausted", m.State)
	}
}
