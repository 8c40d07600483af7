package clients

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// FetchFailure is returned when the API answers with a non-success status
type FetchFailure struct {
	Method   string
	Endpoint string
	Status   int
	// Message is taken from the response body when the API provides one
	Message string
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Endpoint, e.Status, e.Message)
}

// NewFetchFailure builds a FetchFailure, extracting the API's error message from
// "detail", "error" or "message" when the body is JSON.
func NewFetchFailure(method, endpoint string, status int, body []byte) *FetchFailure {
	return &FetchFailure{
		Method:   method,
		Endpoint: endpoint,
		Status:   status,
		Message:  errorMessage(status, body),
	}
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.Detail, payload.Error, payload.Message} {
			if strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("request failed: %d %s", status, text)
	}
	return fmt.Sprintf("request failed: %d", status)
}
