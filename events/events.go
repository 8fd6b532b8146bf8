// Package events publishes ticket lifecycle events to an AMQP exchange so
// external tooling (dashboards, escalation bots) can follow ticket
// activity without polling the database.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event kinds used as routing keys on the topic exchange.
const (
	KindOpened      = "ticket.opened"
	KindClaimed     = "ticket.claimed"
	KindTransferred = "ticket.transferred"
	KindClosed      = "ticket.closed"
	KindReconciled  = "ticket.reconciled"
)

type Publisher interface {
	Publish(kind string, body any) error
	Close() error
}

type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(kind string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(ctx, p.exchange, kind, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        data,
	})
}

func (p *AMQPPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// Nop is used when event publishing is disabled in config.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
func (Nop) Close() error              { return nil }
