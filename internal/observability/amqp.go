package observability

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher pushes envelopes onto the events exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, env Envelope) error
}

// RabbitPublisher is the amqp091 Publisher, bound to one durable topic
// exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// DialRabbit connects to the broker, opens a channel and declares the
// exchange.
func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish marshals the envelope body and sends it persistent, carrying
// the request and trace ids as headers.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	headers := amqp.Table{}
	if env.RequestID != "" {
		headers["x-request-id"] = env.RequestID
	}
	if env.TraceID != "" {
		headers["trace_id"] = env.TraceID
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      headers,
		Body:         body,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// bus is the process-wide publisher. nil means event publishing is
// disabled and Publish is a no-op.
var bus Publisher

// UseBus installs the process-wide publisher.
func UseBus(p Publisher) { bus = p }

// Publish sends the envelope through the installed publisher. Failures
// are counted and returned to the caller.
func Publish(ctx context.Context, routingKey string, env Envelope) error {
	if bus == nil {
		return nil
	}
	if err := bus.Publish(ctx, routingKey, env); err != nil {
		IncAMQPPublishError()
		return err
	}
	return nil
}
