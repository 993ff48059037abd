package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/crewcruise/internal/domain/mail"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestJSONHandler(t *testing.T) {
	var got *MailRequested
	h := JSONHandler(func(_ context.Context, key []byte, m *MailRequested) error {
		assert.Equal(t, "m-1", string(key))
		got = m
		return nil
	})

	err := h(context.Background(), []byte("m-1"),
		[]byte(`{"message":{"id":"m-1","to":["a@x.com"],"subject":"hi"},"requested_at":"2024-05-01T12:00:00Z"}`))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, mail.Message{ID: "m-1", To: []string{"a@x.com"}, Subject: "hi"}, got.Message)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), got.RequestedAt)

	err = h(context.Background(), nil, []byte(`{not json`))
	require.Error(t, err)
}

func TestJSONHandler_PropagatesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	h := JSONHandler(func(context.Context, []byte, *MailRequested) error { return boom })
	require.ErrorIs(t, h(context.Background(), nil, []byte(`{}`)), boom)
}

func TestHeaderCarrier_RoundTrip(t *testing.T) {
	prop := propagation.TraceContext{}
	const tp = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	in := propagation.MapCarrier{"traceparent": tp}
	ctx := prop.Extract(context.Background(), in)

	msg := kafka.Message{Headers: []kafka.Header{{Key: "traceparent", Value: []byte("stale")}}}
	prop.Inject(ctx, headerCarrier{&msg.Headers})
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, kafka.Header{Key: "traceparent", Value: []byte(tp)}, msg.Headers[0])

	from := headerCarrier{&msg.Headers}
	assert.Equal(t, tp, from.Get("traceparent"))
	assert.Empty(t, from.Get("tracestate"))
	assert.Equal(t, []string{"traceparent"}, from.Keys())

	out := prop.Extract(context.Background(), from)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", trace.SpanContextFromContext(out).TraceID().String())
}

func TestConsumerConfig_Valid(t *testing.T) {
	require.Error(t, (&ConsumerConfig{Topic: "t"}).valid())
	require.Error(t, (&ConsumerConfig{Brokers: []string{"b:9092"}}).valid())
	require.NoError(t, (&ConsumerConfig{Brokers: []string{"b:9092"}, Topic: "t"}).valid())
}

func TestTopicSpec_Defaults(t *testing.T) {
	s := TopicSpec{Name: "crewcruise.mail"}.withDefaults()
	assert.Equal(t, 1, s.NumPartitions)
	assert.Equal(t, 1, s.ReplicationFactor)
	assert.Equal(t, 5*time.Second, s.MaxWait)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
