package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopcore/cartservice/internal/domain/outbox"
)

// AMQPPublisher relays checkout events to a RabbitMQ topic exchange so
// downstream consumers (notifications, analytics) can react to them.
// Event names double as routing keys.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
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

func (p *AMQPPublisher) Publish(ctx context.Context, e outbox.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, e.EventName(), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Relay adapts Publish to the bus handler signature so the publisher can
// subscribe to in-process events.
func (p *AMQPPublisher) Relay(ctx context.Context, e outbox.Event) error {
	return p.Publish(ctx, e)
}

func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
