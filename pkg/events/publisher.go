package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/logging"
)

// Publisher emits domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishRiskStatusChanged(ctx context.Context, event RiskStatusChanged) error
	PublishUserMentioned(ctx context.Context, event UserMentioned) error
	PublishScriptAnalyzed(ctx context.Context, event ScriptAnalyzed) error
	Close() error
}

// channel is the part of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// EventPublisher publishes JSON events to a topic exchange.
// With no broker configured it is disabled and every publish is a no-op.
type EventPublisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	enabled  bool
	logger   *zap.Logger
}

// NewEventPublisher connects to RabbitMQ and declares the exchange.
// An empty uri returns a disabled publisher.
func NewEventPublisher(uri, exchange string, logger *zap.Logger) (*EventPublisher, error) {
	logger = logger.Named("events")
	if uri == "" {
		logger.Warn("RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, logger: logger}, nil
	}

	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %s", logging.SanitizeError(err))
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
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
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		enabled:  true,
		logger:   logger,
	}, nil
}

// Enabled reports whether events are actually sent.
func (p *EventPublisher) Enabled() bool {
	return p.enabled
}

func (p *EventPublisher) publish(ctx context.Context, t EventType, payload any) error {
	if !p.enabled {
		p.logger.Debug("Event publishing is disabled, skipping event", zap.String("type", string(t)))
		return nil
	}

	body, err := json.Marshal(newEnvelope(t, payload))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchange, // exchange
		string(t),  // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", t, err)
	}

	p.logger.Debug("Published event", zap.String("type", string(t)))
	return nil
}

func (p *EventPublisher) PublishRiskStatusChanged(ctx context.Context, event RiskStatusChanged) error {
	return p.publish(ctx, EventTypeRiskStatusChanged, event)
}

func (p *EventPublisher) PublishUserMentioned(ctx context.Context, event UserMentioned) error {
	return p.publish(ctx, EventTypeUserMentioned, event)
}

func (p *EventPublisher) PublishScriptAnalyzed(ctx context.Context, event ScriptAnalyzed) error {
	return p.publish(ctx, EventTypeScriptAnalyzed, event)
}

// Close closes the channel and connection.
func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("Error closing RabbitMQ channel", zap.Error(err))
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}

var _ Publisher = (*EventPublisher)(nil)
