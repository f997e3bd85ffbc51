package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/webprobe/internal/domain"
)

type published struct {
	exchange Exchange
	key      RoutingKey
	msg      amqp.Publishing
}

func newTestPublisher(sent *[]published, err error) *Publisher {
	return &Publisher{
		publish: func(ctx context.Context, exchange Exchange, key RoutingKey, p amqp.Publishing) error {
			if err != nil {
				return err
			}
			*sent = append(*sent, published{exchange: exchange, key: key, msg: p})
			return nil
		},
		logger: discardLogger(),
		now:    func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_Report(t *testing.T) {
	var sent []published
	p := newTestPublisher(&sent, nil)

	err := p.Report(context.Background(), domain.MetricValue{
		ItemID:    42,
		HostID:    7,
		ValueType: domain.ValueTypeUint,
		Value:     uint64(200),
	})
	require.NoError(t, err)
	require.Len(t, sent, 1)

	assert.Equal(t, ExchangeMetrics, sent[0].exchange)
	assert.Equal(t, RoutingKeyValue, sent[0].key)
	assert.Equal(t, "application/json", sent[0].msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent[0].msg.DeliveryMode)
	assert.Equal(t, string(MessageTypeMetricValue), sent[0].msg.Type)

	var msg Message
	require.NoError(t, json.Unmarshal(sent[0].msg.Body, &msg))
	assert.Equal(t, sent[0].msg.MessageId, msg.ID)

	v, err := ParsePayload[domain.MetricValue](&msg)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.ItemID)
	assert.Equal(t, int64(7), v.HostID)
	assert.Equal(t, float64(200), v.Value, "JSON numbers decode as float64")
}

func TestPublisher_PublishCheckNow(t *testing.T) {
	var sent []published
	p := newTestPublisher(&sent, nil)

	require.NoError(t, p.PublishCheckNow(context.Background(), 15, "cli"))
	require.Len(t, sent, 1)
	assert.Equal(t, ExchangeControl, sent[0].exchange)
	assert.Equal(t, RoutingKeyCheckNow, sent[0].key)

	var msg Message
	require.NoError(t, json.Unmarshal(sent[0].msg.Body, &msg))
	payload, err := ParsePayload[CheckNowPayload](&msg)
	require.NoError(t, err)
	assert.Equal(t, CheckNowPayload{ScenarioID: 15, RequestedBy: "cli"}, payload)
}

func TestPublisher_Error(t *testing.T) {
	var sent []published
	p := newTestPublisher(&sent, ErrNoChannel)

	err := p.Report(context.Background(), domain.MetricValue{ItemID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoChannel)
}

// fakeAck записывает, как было подтверждено сообщение.
type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(t *testing.T, ack *fakeAck, redelivered bool, payload any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(&Message{ID: "m-1", Type: MessageTypeCheckNow, Payload: payload})
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body, Redelivered: redelivered}
}

func TestConsumer_HandleDelivery(t *testing.T) {
	var got CheckNowPayload
	handler := func(ctx context.Context, d *Delivery) error {
		p, err := ParsePayload[CheckNowPayload](&d.Message)
		got = p
		return err
	}
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{Queue: QueueCheckNow, Handler: handler})

	ack := &fakeAck{}
	c.handleDelivery(context.Background(), delivery(t, ack, false, CheckNowPayload{ScenarioID: 3}))

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.Equal(t, int64(3), got.ScenarioID)
}

func TestConsumer_HandlerFailure(t *testing.T) {
	handler := func(ctx context.Context, d *Delivery) error { return errors.New("db down") }
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{Queue: QueueCheckNow, Handler: handler})

	first := &fakeAck{}
	c.handleDelivery(context.Background(), delivery(t, first, false, CheckNowPayload{ScenarioID: 3}))
	assert.True(t, first.nacked)
	assert.True(t, first.requeue, "first failure goes back to the queue")

	second := &fakeAck{}
	c.handleDelivery(context.Background(), delivery(t, second, true, CheckNowPayload{ScenarioID: 3}))
	assert.True(t, second.nacked)
	assert.False(t, second.requeue, "redelivered message goes to DLQ")
}

func TestConsumer_MalformedMessage(t *testing.T) {
	c := NewConsumer(nil, discardLogger(), ConsumerConfig{
		Queue: QueueCheckNow,
		Handler: func(ctx context.Context, d *Delivery) error {
			t.Fatal("handler must not be called")
			return nil
		},
	})

	ack := &fakeAck{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestParsePayload_TypeMismatch(t *testing.T) {
	msg := &Message{Payload: map[string]any{"scenario_id": "not a number"}}
	_, err := ParsePayload[CheckNowPayload](msg)
	assert.Error(t, err)
}

func TestTopology_Consistent(t *testing.T) {
	exchanges, queues, bindings := topology()

	declaredEx := map[Exchange]bool{}
	for _, ex := range exchanges {
		declaredEx[ex.name] = true
	}
	declaredQ := map[Queue]bool{}
	for _, q := range queues {
		declaredQ[q.name] = true
		if dlx, ok := q.args["x-dead-letter-exchange"]; ok {
			assert.Equal(t, string(ExchangeDLQ), dlx)
		}
	}

	for _, b := range bindings {
		assert.True(t, declaredEx[b.exchange], b.exchange)
		assert.True(t, declaredQ[b.queue], b.queue)
	}
	assert.Len(t, bindings, len(queues), "every queue is bound")
}
