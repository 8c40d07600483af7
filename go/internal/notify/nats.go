package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for publishing notifications to NATS
type NATSConfig struct {
	URL           string
	SubjectPrefix string // e.g., "eventup.notifications"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS publisher configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "eventup.notifications",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSNotifier publishes notifications on "<prefix>.<event id>" so a rendering layer in
// another process can subscribe to one event view.
type NATSNotifier struct {
	nc     *nats.Conn
	config NATSConfig
}

// NewNATSNotifier connects to NATS
func NewNATSNotifier(cfg NATSConfig) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name("eventup-live"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSNotifier{nc: nc, config: cfg}, nil
}

// Subject returns the subject notifications for eventID are published on
func (n *NATSNotifier) Subject(eventID string) string {
	return Subject(n.config.SubjectPrefix, eventID)
}

// Subject builds "<prefix>.<event id>"; an empty event id maps to "_".
func Subject(prefix, eventID string) string {
	if eventID == "" {
		eventID = "_"
	}
	return fmt.Sprintf("%s.%s", prefix, eventID)
}

// Notify publishes the notification. Failures are logged, never returned, so a broken
// NATS link cannot stall the live view.
func (n *NATSNotifier) Notify(notification Notification) {
	data, err := json.Marshal(notification)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal notification")
		return
	}

	msg := &nats.Msg{
		Subject: n.Subject(notification.EventID),
		Data:    data,
		Header: nats.Header{
			"Notification-ID":   []string{notification.ID},
			"Notification-Kind": []string{string(notification.Kind)},
		},
	}
	if err := n.nc.PublishMsg(msg); err != nil {
		log.Error().
			Err(err).
			Str("subject", msg.Subject).
			Msg("failed to publish notification")
	}
}

// Close drains and closes the NATS connection
func (n *NATSNotifier) Close() error {
	if n.nc == nil {
		return nil
	}
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
