package eventup_api

import (
	"strings"
	"time"

	"github.com/eventup/live/go/clients"
)

// Client talks to the EventUp REST API
type Client struct {
	*clients.BaseClient
}

// NewClient creates an API client. A non-positive timeout keeps the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	client := &Client{
		BaseClient: clients.NewBaseClient(strings.TrimRight(baseURL, "/")),
	}
	client.SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}
