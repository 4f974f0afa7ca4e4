// Package amqp carries SpendLog domain events over RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("amqp")

const publishTimeout = 5 * time.Second

// Client owns one connection and channel bound to a durable queue on a
// direct exchange. The queue name doubles as routing key.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *zap.Logger
}

// NewClient dials url and declares the exchange, queue and binding.
func NewClient(url, exchangeName, queueName string, logger *zap.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	// One unacknowledged event at a time per worker.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Publish sends ev as a persistent JSON message. Implements port.EventPublisher.
func (c *Client) Publish(ctx context.Context, ev domain.Event) error {
	ctx, span := tracer.Start(ctx, "AMQP.Publish")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", ev.Type))

	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.OccurredAt,
			Type:         ev.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	c.logger.Info("amqp: event published",
		zap.String("type", ev.Type),
		zap.String("user_id", ev.UserID),
		zap.String("exchange", c.exchangeName),
		zap.String("queue", c.queueName),
	)
	return nil
}

// Handler processes one event. Returning an error requeues the message.
type Handler func(ctx context.Context, ev domain.Event) error

// Consume delivers events to h until ctx is cancelled or the channel closes.
func (c *Client) Consume(ctx context.Context, h Handler) error {
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("amqp: consuming", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("amqp: stopping consumption", zap.Error(ctx.Err()))
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			Dispatch(ctx, d, h, c.logger)
		}
	}
}

// Dispatch decodes one delivery and acknowledges it according to the
// outcome: malformed messages are dropped, handler failures are requeued.
func Dispatch(ctx context.Context, d amqp091.Delivery, h Handler, logger *zap.Logger) {
	var ev domain.Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		logger.Error("amqp: malformed message dropped", zap.Error(err))
		d.Nack(false, false)
		return
	}

	if err := h(ctx, ev); err != nil {
		logger.Error("amqp: handler failed, requeueing",
			zap.String("type", ev.Type),
			zap.String("user_id", ev.UserID),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		d.Nack(false, true)
		return
	}

	d.Ack(false)
	logger.Info("amqp: event processed", zap.String("type", ev.Type), zap.String("user_id", ev.UserID))
}

// Close releases the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
