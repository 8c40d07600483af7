package live

import (
	"reflect"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
)

func TestPendingTrackerMarkTwice(t *testing.T) {
	tracker := NewPendingTracker(clockwork.NewFakeClock())

	if !tracker.MarkPending(ActionVote, "p1") {
		t.Fatal("first MarkPending should succeed")
	}
	if tracker.MarkPending(ActionVote, "p1") {
		t.Error("second MarkPending for the same poll should be refused")
	}
	if !tracker.MarkPending(ActionAnswer, "p1") {
		t.Error("kinds are tracked separately")
	}
}

func TestPendingTrackerClearOnce(t *testing.T) {
	tracker := NewPendingTracker(clockwork.NewFakeClock())
	tracker.Mark(ActionVote, "p1", "c2")

	entry, ok := tracker.Clear(ActionVote, "p1")
	if !ok {
		t.Fatal("Clear should report the pending entry")
	}
	if entry.Detail != "c2" {
		t.Errorf("Detail = %q, want c2", entry.Detail)
	}
	if tracker.ClearPending(ActionVote, "p1") {
		t.Error("second clear must be ignored")
	}
	if tracker.IsPending(ActionVote, "p1") {
		t.Error("IsPending should be false after clear")
	}
}

func TestPendingTrackerConcurrentClear(t *testing.T) {
	tracker := NewPendingTracker(clockwork.NewFakeClock())
	tracker.MarkPending(ActionVote, "p1")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		cleared int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.ClearPending(ActionVote, "p1") {
				mu.Lock()
				cleared++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if cleared != 1 {
		t.Errorf("cleared %d times, want exactly once", cleared)
	}
}

func TestPendingTrackerPendingSorted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewPendingTracker(clock)
	tracker.MarkPending(ActionVote, "p2")
	tracker.MarkPending(ActionVote, "p1")
	tracker.MarkPending(ActionAnswer, "q1")

	if got := tracker.Pending(ActionVote); !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Errorf("Pending(vote) = %v", got)
	}
	if got := tracker.Pending(ActionAnswer); !reflect.DeepEqual(got, []string{"q1"}) {
		t.Errorf("Pending(answer) = %v", got)
	}

	tracker.Reset()
	if got := tracker.Pending(ActionVote); len(got) != 0 {
		t.Errorf("Pending after Reset = %v", got)
	}
}

func TestPendingTrackerStampsSince(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewPendingTracker(clock)
	tracker.MarkPending(ActionVote, "p1")

	entry, _ := tracker.Clear(ActionVote, "p1")
	if !entry.Since.Equal(clock.Now()) {
		t.Errorf("Since = %s, want %s", entry.Since, clock.Now())
	}
}
