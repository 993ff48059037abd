package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler processes one record. Retries are the handler's business: the
// consumer commits the offset whatever the result.
type Handler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
	cfg    *ConsumerConfig
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	Logger        *zap.Logger
}

func (c *ConsumerConfig) valid() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka consumer: no brokers")
	}
	if c.Topic == "" {
		return errors.New("kafka consumer: empty topic")
	}
	return nil
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}
	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:               cfg.Brokers,
			GroupID:               cfg.GroupID,
			Topic:                 cfg.Topic,
			StartOffset:           start,
			WatchPartitionChanges: true,
			MinBytes:              1,
			MaxBytes:              10e6,
			MaxWait:               time.Second,
			SessionTimeout:        10 * time.Second,
			RebalanceTimeout:      15 * time.Second,
			HeartbeatInterval:     3 * time.Second,
		}),
		cfg: cfg,
	}
	return c.WithLogger(cfg.Logger)
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		l = zap.L()
	}
	cp := *c
	cp.log = l.With(
		zap.String("component", "kafka.consumer"),
		zap.String("topic", c.cfg.Topic),
		zap.String("group", c.cfg.GroupID),
	)
	return &cp
}

const (
	minFetchBackoff = 200 * time.Millisecond
	maxFetchBackoff = 5 * time.Second
)

// Consume blocks until ctx is done, feeding every fetched record to h.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("consumer started")
	backoff := minFetchBackoff

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				c.log.Debug("fetch EOF; retry", zap.Duration("backoff", backoff))
			} else {
				c.log.Warn("fetch failed; retry", zap.Error(err), zap.Duration("backoff", backoff))
			}
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff

		c.process(ctx, msg, h)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message, h Handler) {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{&msg.Headers})
	msgCtx, span := otel.Tracer("kafka.consumer").Start(msgCtx, "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		))
	defer span.End()

	if err := h(msgCtx, msg.Key, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("handler error; skipping record",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
			zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
