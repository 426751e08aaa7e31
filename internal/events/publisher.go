// Package events publishes domain events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/metrics"
)

const (
	SubjectUserRegistered = "users.registered"
	SubjectVideoPublished = "videos.published"
)

// UserRegistered is emitted after an account is created.
type UserRegistered struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

// VideoPublished is emitted after a video upload is stored.
type VideoPublished struct {
	VideoID     string  `json:"video_id"`
	OwnerID     string  `json:"owner_id"`
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	IsPublished bool    `json:"is_published"`
	Timestamp   string  `json:"timestamp"`
}

// Timestamp formats t the way every event payload carries it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NATSPublisher publishes JSON-encoded events to a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// ConnectNATS dials url and returns a publisher that owns the connection.
func ConnectNATS(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("videotube-backend"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish encodes payload and publishes it on subject.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		metrics.EventsPublished.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.EventsPublished.WithLabelValues(subject, "ok").Inc()
	logging.FromContext(ctx).Debug("event published", "subject", subject)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close(ctx context.Context) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		p.conn.Close()
		return fmt.Errorf("flush nats: %w", err)
	}
	p.conn.Close()
	return nil
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements the publisher contract without side effects.
func (NopPublisher) Publish(ctx context.Context, subject string, payload any) error {
	metrics.EventsPublished.WithLabelValues(subject, "dropped").Inc()
	return nil
}
