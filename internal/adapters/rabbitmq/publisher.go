// Package rabbitmq publishes audit events to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/leadrouter/internal/ctxutil"
	"github.com/example/leadrouter/internal/logging"
	"github.com/example/leadrouter/internal/ports/secondary"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is the JSON body published for each audit event.
type Message struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ActorID    string         `json:"actor_id,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher implements secondary.AuditSink. Events are routed by type.
type Publisher struct {
	exchange string
	ch       channel
	conn     *amqp.Connection
	logger   logging.Logger
}

// Dial connects to url, declares a durable topic exchange and returns a
// Publisher bound to it.
func Dial(url, exchange string, logger logging.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	p := NewPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an open channel.
func NewPublisher(ch channel, exchange string, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{exchange: exchange, ch: ch, logger: logger}
}

// Record publishes one event as a persistent JSON message.
func (p *Publisher) Record(ctx context.Context, event secondary.AuditEvent) error {
	msg, err := BuildMessage(ctx, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish audit event %s: %w", event.ID, err)
	}

	p.logger.Debug("audit event published", "event_id", event.ID, "type", event.Type)
	return nil
}

// Close closes the underlying connection when the Publisher owns one.
func (p *Publisher) Close() error {
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("failed to close rabbitmq connection: %w", err)
	}
	return nil
}

// BuildMessage encodes event for publishing. The actor falls back to the
// one carried in ctx.
func BuildMessage(ctx context.Context, event secondary.AuditEvent) (amqp.Publishing, error) {
	body := Message{
		ID:         event.ID,
		Type:       event.Type,
		ActorID:    event.ActorID,
		EntityID:   event.EntityID,
		Payload:    event.Payload,
		OccurredAt: event.OccurredAt.UTC(),
	}
	if body.ActorID == "" {
		body.ActorID = ctxutil.ActorFromContext(ctx)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode audit event: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    body.OccurredAt,
		Body:         encoded,
	}, nil
}

// Ensure Publisher implements the interface
var _ secondary.AuditSink = (*Publisher)(nil)
