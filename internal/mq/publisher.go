package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/webprobe/internal/domain"
	"github.com/shaiso/webprobe/internal/telemetry"
)

// MessageType — тип сообщения в очереди.
type MessageType string

const (
	MessageTypeMetricValue MessageType = "metric.value"
	MessageTypeCheckNow    MessageType = "scenario.check_now"
)

// Message — конверт сообщения.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// CheckNowPayload — запрос внеочередной проверки сценария.
type CheckNowPayload struct {
	ScenarioID  int64  `json:"scenario_id"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// publishFunc отправляет готовое сообщение в обменник.
type publishFunc func(ctx context.Context, exchange Exchange, key RoutingKey, p amqp.Publishing) error

// Publisher публикует значения метрик и control-сообщения.
//
// Publisher реализует orchestrator.MetricSink.
type Publisher struct {
	publish publishFunc
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		publish: func(ctx context.Context, exchange Exchange, key RoutingKey, p amqp.Publishing) error {
			return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
				return ch.PublishWithContext(ctx, string(exchange), string(key), false, false, p)
			})
		},
		logger: telemetry.OrDefault(logger),
		now:    time.Now,
	}
}

// NewMessage оборачивает payload в конверт с новым ID.
func (p *Publisher) NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: p.now(),
	}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.publish(ctx, exchange, routingKey, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         string(msg.Type),
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// Report публикует значение элемента данных.
func (p *Publisher) Report(ctx context.Context, v domain.MetricValue) error {
	return p.Publish(ctx, ExchangeMetrics, RoutingKeyValue, p.NewMessage(MessageTypeMetricValue, v))
}

// PublishCheckNow просит поллеры проверить сценарий вне очереди.
func (p *Publisher) PublishCheckNow(ctx context.Context, scenarioID int64, requestedBy string) error {
	payload := CheckNowPayload{ScenarioID: scenarioID, RequestedBy: requestedBy}
	return p.Publish(ctx, ExchangeControl, RoutingKeyCheckNow, p.NewMessage(MessageTypeCheckNow, payload))
}
