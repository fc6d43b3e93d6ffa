package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/soyeahso/oagate/internal/logging"
)

// Publisher sends envelopes under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, env Envelope) error
	Close() error
}

// AMQPPublisher publishes to a durable topic exchange with publisher
// confirms.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
	log      *logging.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string, log *logging.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling confirms: %w", err)
	}
	return &AMQPPublisher{
		conn:     conn,
		exchange: exchange,
		ch:       ch,
		log:      log.Sub("events"),
	}, nil
}

// Publish sends env and waits for the broker's confirmation.
func (p *AMQPPublisher) Publish(ctx context.Context, key string, env Envelope) error {
	if env.Meta.ID == "" {
		env.Meta.ID = uuid.NewString()
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return fmt.Errorf("reopening channel: %w", err)
		}
		if err := ch.Confirm(false); err != nil {
			ch.Close()
			return fmt.Errorf("enabling confirms: %w", err)
		}
		p.ch = ch
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, key, false, false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.Meta.ID,
			CorrelationId: env.Meta.CorrelationID,
			Timestamp:     env.Meta.Time,
			Type:          env.Meta.Type,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s", key)
	}
	p.log.Debug().Str("key", key).Str("exchange", p.exchange).Msg("published")
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	return p.conn.Close()
}

// NopPublisher drops events. It stands in when forwarding is disabled or
// the broker is unreachable at startup.
type NopPublisher struct {
	log *logging.Logger
}

// NewNopPublisher creates a publisher that only logs.
func NewNopPublisher(log *logging.Logger) *NopPublisher {
	return &NopPublisher{log: log.Sub("events")}
}

func (p *NopPublisher) Publish(_ context.Context, key string, _ Envelope) error {
	p.log.Debug().Str("key", key).Msg("event forwarding disabled, skipped publish")
	return nil
}

func (p *NopPublisher) Close() error { return nil }
