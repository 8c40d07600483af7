package live

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Subscriptions is the fixed topic set requested for every event view
const Subscriptions = "poll,qna"

// Conn is one live connection
type Conn interface {
	// ReadMessage blocks for the next data message. A peer close is reported as *CloseError.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Transport opens live connections
type Transport interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// TransportConfig holds configuration for websocket connections
type TransportConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
}

// DefaultTransportConfig returns default websocket configuration
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   1 << 20, // full poll and question objects
		ReadBufferSize:   4096,
		WriteBufferSize:  1024,
	}
}

// WebSocketTransport dials the live channel with gorilla/websocket
type WebSocketTransport struct {
	dialer *websocket.Dialer
	config TransportConfig
}

// NewWebSocketTransport creates a websocket transport
func NewWebSocketTransport(config TransportConfig) *WebSocketTransport {
	return &WebSocketTransport{
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
		config: config,
	}
}

// Dial opens a websocket connection
func (t *WebSocketTransport) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if t.config.MaxMessageSize > 0 {
		conn.SetReadLimit(t.config.MaxMessageSize)
	}
	return &wsConn{conn: conn, writeTimeout: t.config.WriteTimeout}, nil
}

// wsConn serialises writes; gorilla allows one concurrent writer and one reader.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, &CloseError{Code: closeErr.Code, Text: closeErr.Text}
			}
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal close frame and closes the socket. Safe to call more than once.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// BuildURL returns the live channel address for an event:
// {base}/ws/event/{eventID}/?subscriptions=poll,qna&token={token}
func BuildURL(base, eventID, token string) string {
	return fmt.Sprintf("%s/ws/event/%s/?subscriptions=%s&token=%s",
		strings.TrimRight(base, "/"), url.PathEscape(eventID), Subscriptions, url.QueryEscape(token))
}
