package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/webprobe/internal/telemetry"
)

// Handler обрабатывает сообщение. Ошибка означает nack.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// Consumer читает сообщения из очереди RabbitMQ.
//
// Ошибка обработчика возвращает сообщение в очередь один раз;
// повторная ошибка отправляет его в DLQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сколько сообщений брать без подтверждения (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   telemetry.OrDefault(logger).With("queue", string(cfg.Queue)),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run читает сообщения до отмены ctx, переживая переподключения.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "error", err)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started")

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect")
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) waitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		return nil
	}
}

func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(string(c.queue), "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение и подтверждает его.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "body", string(raw.Body))
		c.settle(raw.Nack(false, false))
		return
	}

	delivery := &Delivery{Message: msg, Raw: raw}
	c.logger.Debug("received message", "message_id", msg.ID, "type", msg.Type)

	if err := c.handler(ctx, delivery); err != nil {
		// вторая неудача уходит в DLQ
		requeue := !raw.Redelivered
		c.logger.Error("handler failed",
			"message_id", msg.ID,
			"type", msg.Type,
			"requeue", requeue,
			"error", err,
		)
		c.settle(raw.Nack(false, requeue))
		return
	}

	c.settle(raw.Ack(false))
}

func (c *Consumer) settle(err error) {
	if err != nil {
		c.logger.Warn("failed to settle delivery", "error", err)
	}
}

// ParsePayload декодирует payload сообщения в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// после json.Unmarshal в Message payload — map[string]any
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
