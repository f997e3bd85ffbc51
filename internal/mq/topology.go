package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

const (
	ExchangeMetrics Exchange = "webprobe.metrics"
	ExchangeControl Exchange = "webprobe.control"
	ExchangeDLQ     Exchange = "webprobe.dlq"
)

const (
	QueueMetricValues Queue = "metrics.values"
	QueueCheckNow     Queue = "control.check_now"
	QueueDLQMetrics   Queue = "dlq.metrics"
	QueueDLQControl   Queue = "dlq.control"
)

const (
	RoutingKeyValue      RoutingKey = "value"
	RoutingKeyCheckNow   RoutingKey = "check_now"
	RoutingKeyDLQMetrics RoutingKey = "metrics"
	RoutingKeyDLQControl RoutingKey = "control"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// deadLetter возвращает аргументы очереди, отправляющей отказы в DLQ.
func deadLetter(key RoutingKey) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(key),
	}
}

func topology() ([]exchangeDecl, []queueDecl, []bindingDecl) {
	exchanges := []exchangeDecl{
		{ExchangeMetrics, amqp.ExchangeDirect},
		{ExchangeControl, amqp.ExchangeDirect},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	queues := []queueDecl{
		// значения метрик читает приёмник истории
		{QueueMetricValues, deadLetter(RoutingKeyDLQMetrics)},
		{QueueCheckNow, deadLetter(RoutingKeyDLQControl)},
		{QueueDLQMetrics, nil},
		{QueueDLQControl, nil},
	}

	bindings := []bindingDecl{
		{QueueMetricValues, RoutingKeyValue, ExchangeMetrics},
		{QueueCheckNow, RoutingKeyCheckNow, ExchangeControl},
		{QueueDLQMetrics, RoutingKeyDLQMetrics, ExchangeDLQ},
		{QueueDLQControl, RoutingKeyDLQControl, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
