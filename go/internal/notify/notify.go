// Package notify delivers user-facing notifications (toasts and the connection status
// line) from the live controller to whatever renders them.
package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Kind separates transient toasts from the persistent status line
type Kind string

const (
	KindToast  Kind = "toast"
	KindStatus Kind = "status"
)

// Notification is a single user-facing message
type Notification struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Kind      Kind      `json:"kind"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a notification stamped with an id and the current time
func New(eventID string, kind Kind, level Level, message string) Notification {
	return Notification{
		ID:        uuid.New().String(),
		EventID:   eventID,
		Kind:      kind,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifier receives notifications. Implementations must not block the caller for long.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the structured log
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	evt := log.Info()
	if n.Level == LevelError {
		evt = log.Warn()
	}
	evt.
		Str("event_id", n.EventID).
		Str("kind", string(n.Kind)).
		Str("level", string(n.Level)).
		Msg(n.Message)
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Discard drops every notification
var Discard Notifier = NotifierFunc(func(Notification) {})
