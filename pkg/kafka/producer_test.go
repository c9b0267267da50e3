package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	return headerCarrier{headers: &msg.Headers}.Get(key)
}

func TestNewEvent(t *testing.T) {
	type payload struct {
		Code string `json:"code"`
	}

	event, err := NewEvent("invoice.created", "inv-1", "invoice", "backoffice", payload{Code: "INV-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, "INV-1", got.Code)
}

func TestNewEvent_UnserializableData(t *testing.T) {
	_, err := NewEvent("x", "a", "t", "s", make(chan int))
	require.Error(t, err)
}

func TestEvent_WithMetadata(t *testing.T) {
	event := &Event{}
	assert.Same(t, event, event.WithMetadata("k", "v"))
	assert.Equal(t, "v", event.Metadata["k"])
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "backoffice.invoice.paid", Topic("invoice", "paid"))
	assert.Equal(t, "backoffice.category.deleted", Topic("category", "deleted"))
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	reg := prometheus.NewRegistry()
	p := newProducer(w, []string{"localhost:9092"}, reg, slog.New(slog.DiscardHandler))

	event, err := NewEvent("category.created", "cat-1", "category", "backoffice", map[string]string{"name": "Shoes"})
	require.NoError(t, err)
	event.CorrelationID = "corr-1"

	require.NoError(t, p.Publish(context.Background(), Topic("category", "created"), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "backoffice.category.created", msg.Topic)
	assert.Equal(t, []byte("cat-1"), msg.Key)
	assert.Equal(t, "category.created", headerValue(msg, "event_type"))
	assert.Equal(t, "corr-1", headerValue(msg, "correlation_id"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)

	assert.Equal(t, float64(1), testutil.ToFloat64(p.metrics.published.WithLabelValues("backoffice.category.created")))
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	w := &recordingWriter{}
	p := newProducer(w, nil, nil, slog.New(slog.DiscardHandler))
	event, err := NewEvent("invoice.paid", "inv-1", "invoice", "backoffice", nil)
	require.NoError(t, err)

	require.NoError(t, p.Publish(ctx, Topic("invoice", "paid"), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headerValue(w.msgs[0], "traceparent"))
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := newProducer(w, nil, prometheus.NewRegistry(), slog.New(slog.DiscardHandler))

	event, err := NewEvent("x", "a", "t", "s", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "backoffice.t.x", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to backoffice.t.x")
	assert.Equal(t, float64(1), testutil.ToFloat64(p.metrics.failed.WithLabelValues("backoffice.t.x")))
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, nil, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewProducer_DoesNotDial(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), nil, slog.New(slog.DiscardHandler))
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:19092"}, p.brokers)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := headerCarrier{headers: &headers}

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Empty(t, c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
