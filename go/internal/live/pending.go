package live

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ActionKind is the kind of user action awaiting confirmation
type ActionKind string

const (
	ActionVote   ActionKind = "vote"
	ActionAnswer ActionKind = "answer"
)

// PendingAction is one in-flight user action
type PendingAction struct {
	Kind ActionKind
	ID   string // poll ID for votes, question ID for answers
	// Detail is caller data; for votes it holds the previously recorded choice
	Detail string
	Since  time.Time
}

type pendingKey struct {
	kind ActionKind
	id   string
}

// PendingTracker tracks actions awaiting server confirmation. Every entry is cleared
// at most once, so the first confirmation to arrive wins and later ones are ignored.
type PendingTracker struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[pendingKey]PendingAction
}

// NewPendingTracker creates an empty tracker
func NewPendingTracker(clock clockwork.Clock) *PendingTracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PendingTracker{
		clock:   clock,
		entries: make(map[pendingKey]PendingAction),
	}
}

// MarkPending marks an action in flight. It returns false when one is already pending.
func (t *PendingTracker) MarkPending(kind ActionKind, id string) bool {
	return t.Mark(kind, id, "")
}

// Mark is MarkPending with caller detail attached to the entry
func (t *PendingTracker) Mark(kind ActionKind, id, detail string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pendingKey{kind: kind, id: id}
	if _, exists := t.entries[key]; exists {
		return false
	}
	t.entries[key] = PendingAction{Kind: kind, ID: id, Detail: detail, Since: t.clock.Now()}
	return true
}

// IsPending reports whether an action is in flight
func (t *PendingTracker) IsPending(kind ActionKind, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.entries[pendingKey{kind: kind, id: id}]
	return exists
}

// ClearPending clears an action and reports whether it was pending
func (t *PendingTracker) ClearPending(kind ActionKind, id string) bool {
	_, cleared := t.Clear(kind, id)
	return cleared
}

// Clear removes and returns the pending entry
func (t *PendingTracker) Clear(kind ActionKind, id string) (PendingAction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pendingKey{kind: kind, id: id}
	entry, exists := t.entries[key]
	if exists {
		delete(t.entries, key)
	}
	return entry, exists
}

// Pending returns the sorted IDs with an action of the given kind in flight
func (t *PendingTracker) Pending(kind ActionKind) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.entries))
	for key := range t.entries {
		if key.kind == kind {
			ids = append(ids, key.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Reset drops every entry
func (t *PendingTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[pendingKey]PendingAction)
}
