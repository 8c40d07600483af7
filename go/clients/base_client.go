package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type BaseClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func NewBaseClient(baseURL string) *BaseClient {
	return &BaseClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent with every request. Not safe to call once requests are in flight.
func (c *BaseClient) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *BaseClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// MakeRequest performs a request against the API. A non-empty token is sent as a bearer
// credential. Non-2xx responses are returned as *FetchFailure.
func (c *BaseClient) MakeRequest(ctx context.Context, method, endpoint, token string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewFetchFailure(method, endpoint, resp.StatusCode, responseBody)
	}

	return responseBody, nil
}

func (c *BaseClient) Get(ctx context.Context, endpoint, token string) ([]byte, error) {
	return c.MakeRequest(ctx, http.MethodGet, endpoint, token, nil)
}

func (c *BaseClient) Post(ctx context.Context, endpoint, token string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.MakeRequest(ctx, http.MethodPost, endpoint, token, bytes.NewReader(data))
}

// GetJSON performs a GET and decodes the response into out
func (c *BaseClient) GetJSON(ctx context.Context, endpoint, token string, out interface{}) error {
	body, err := c.Get(ctx, endpoint, token)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response from %s: %w", endpoint, err)
	}
	return nil
}
