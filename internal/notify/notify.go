// Package notify publishes build lifecycle events so external tooling can
// react to watch-mode builds. Events go out best-effort: a slow or absent
// broker never fails a build.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types published during a build.
const (
	EventBuildStarted   = "build.started"
	EventBuildCompleted = "build.completed"
	EventBuildFailed    = "build.failed"
)

// DefaultSubject is used when the project config leaves the subject empty.
const DefaultSubject = "packsmith.builds"

// Event is one build lifecycle notification.
type Event struct {
	Type    string            `json:"type"`
	Project string            `json:"project"`
	BuildID string            `json:"build_id"`
	Time    time.Time         `json:"time"`
	Detail  map[string]string `json:"detail,omitempty"`
}

// Publisher sends build events somewhere. Implementations must be safe for
// sequential use from the watch loop.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards all events (default when notifications are not
// configured).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// NATSPublisher publishes events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url and publishes to
// subject (DefaultSubject when empty).
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher initialized", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish marshals the event and sends it to the configured subject. The
// event timestamp is filled in when unset.
func (p *NATSPublisher) Publish(_ context.Context, event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	slog.Debug("Published build event", "type", event.Type, "build_id", event.BuildID)
	return nil
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}
