package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainkafka "github.com/NordCoder/crewcruise/internal/domain/kafka"
	"github.com/NordCoder/crewcruise/internal/domain/mail"
	"github.com/NordCoder/crewcruise/internal/domain/outbox"
	"github.com/NordCoder/crewcruise/internal/obs/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle "+kind)
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

// MakeGlobalOutboxHandler routes outbox kinds to their publishers.
func MakeGlobalOutboxHandler(events domainkafka.MailEvents, pol retry.Policy) outbox.GlobalHandler {
	mailRequested := instrument("mail_requested", func(ctx context.Context, data []byte) error {
		var m mail.Message
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("unmarshal mail payload: %w", err)
		}
		return events.PublishMailRequested(ctx, m)
	}, pol)

	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindMailRequested:
			return mailRequested, nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
