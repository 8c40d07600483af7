package live

import (
	"errors"
	"fmt"

	"github.com/eventup/live/go/clients"
)

var (
	// ErrAuthMissing is returned when an action needs an access token and none is available
	ErrAuthMissing = errors.New("authentication token missing")
	// ErrConnectionExhausted is reported once the reconnect ceiling is reached
	ErrConnectionExhausted = errors.New("max reconnection attempts reached")
	// ErrNotConnected is returned when sending while the live connection is not open
	ErrNotConnected = errors.New("live connection is not open")
	// ErrNotMounted is returned when the view was unmounted or switched to another event
	ErrNotMounted = errors.New("event view is not mounted")
)

// FetchFailure is a non-success response from the REST API
type FetchFailure = clients.FetchFailure

// CloseCodeAbnormal is the websocket close code used when no close frame was received
const CloseCodeAbnormal = 1006

// ConnectionFailure describes a socket error or an unexpected close
type ConnectionFailure struct {
	Code int
	Err  error
}

func (e *ConnectionFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("live connection failed (code %d)", e.Code)
	}
	return fmt.Sprintf("live connection failed (code %d): %v", e.Code, e.Err)
}

func (e *ConnectionFailure) Unwrap() error { return e.Err }

// CloseError is returned by Conn.ReadMessage when the peer closed the connection
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Text)
}

// RejectReason says why a user action was rejected locally
type RejectReason string

const (
	ReasonInvalidTarget RejectReason = "invalid_target"
	ReasonEmptyAnswer   RejectReason = "empty_answer"
	ReasonInProgress    RejectReason = "in_progress"
)

// ValidationError is an invalid or redundant user action. No request was sent.
type ValidationError struct {
	Reason  RejectReason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rejected (%s): %s", e.Reason, e.Message)
}

// IsValidation reports whether err is a ValidationError with the given reason
func IsValidation(err error, reason RejectReason) bool {
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Reason == reason
}

// userMessage extracts the text to show for an API or transport error
func userMessage(err error) string {
	var ff *FetchFailure
	if errors.As(err, &ff) {
		return ff.Message
	}
	return err.Error()
}
