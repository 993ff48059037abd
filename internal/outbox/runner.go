package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/crewcruise/internal/domain/outbox"
	"github.com/NordCoder/crewcruise/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type RunnerConfig struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.WaitTime <= 0 {
		c.WaitTime = time.Second
	}
	if c.InProgressTTL <= 0 {
		c.InProgressTTL = 30 * time.Second
	}
	return c
}

type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler

	cfg RunnerConfig
	wg  sync.WaitGroup

	mPicked    prometheus.Counter
	mOk        prometheus.Counter
	mErr       prometheus.Counter
	mTickDur   prometheus.Histogram
	mBatchSize prometheus.Gauge
}

func NewOutboxRunner(
	log *zap.Logger,
	repo outbox.Repository,
	dispatch outbox.GlobalHandler,
	cfg RunnerConfig,
	reg prometheus.Registerer,
) *Runner {
	f := promauto.With(reg)
	return &Runner{
		log: log.With(zap.String("component", "outbox.runner")), repo: repo, dispatch: dispatch,
		cfg: cfg.withDefaults(),
		mPicked: f.NewCounter(prometheus.CounterOpts{
			Name: "outbox_picked_total", Help: "Messages picked into processing.",
		}),
		mOk: f.NewCounter(prometheus.CounterOpts{
			Name: "outbox_processed_ok_total", Help: "Messages processed successfully.",
		}),
		mErr: f.NewCounter(prometheus.CounterOpts{
			Name: "outbox_processed_err_total", Help: "Handler errors.",
		}),
		mTickDur: f.NewHistogram(prometheus.HistogramOpts{
			Name: "outbox_tick_duration_seconds", Help: "Tick duration.",
			Buckets: prometheus.DefBuckets,
		}),
		mBatchSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_last_batch_size", Help: "Size of last picked batch.",
		}),
	}
}

// Start launches the workers; Wait blocks until they exit after ctx is done.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
}

func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.log.With(zap.Int("worker", id))
	log.Info("outbox worker started", zap.Duration("wait", r.cfg.WaitTime))

	ticker := time.NewTicker(r.cfg.WaitTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox worker stop")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick picks one batch, dispatches each message and marks the delivered ones.
// Failed messages stay IN_PROGRESS and are picked again after InProgressTTL.
func (r *Runner) Tick(ctx context.Context) {
	t0 := time.Now()
	defer func() { r.mTickDur.Observe(time.Since(t0).Seconds()) }()

	tr := otel.Tracer("outbox.runner")
	ctx, span := tr.Start(ctx, "outbox.tick", trace.WithAttributes(
		attribute.Int("batch.limit", r.cfg.BatchSize),
		attribute.String("in_progress_ttl", r.cfg.InProgressTTL.String()),
	))
	defer span.End()

	messages, err := r.repo.PickBatch(ctx, r.cfg.BatchSize, r.cfg.InProgressTTL)
	if err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(ctx, r.log).Error("outbox pick error", zap.Error(err))
		return
	}
	r.mPicked.Add(float64(len(messages)))
	r.mBatchSize.Set(float64(len(messages)))
	if len(messages) == 0 {
		return
	}

	okKeys := make([]string, 0, len(messages))
	for _, m := range messages {
		if r.deliver(ctx, m) {
			okKeys = append(okKeys, m.IdempotencyKey)
			r.mOk.Inc()
		}
	}

	if err := r.repo.MarkSuccess(ctx, okKeys); err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(ctx, r.log).Error("mark success error", zap.Error(err))
	}
}

func (r *Runner) deliver(ctx context.Context, m outbox.Message) bool {
	parent := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		"traceparent": m.Traceparent,
		"tracestate":  m.Tracestate,
		"baggage":     m.Baggage,
	})
	msgCtx, span := otel.Tracer("outbox.runner").Start(parent, "outbox.dispatch",
		trace.WithAttributes(
			attribute.String("outbox.key", m.IdempotencyKey),
			attribute.Int("outbox.kind", int(m.Kind)),
		),
	)
	defer span.End()

	handler, err := r.dispatch(m.Kind)
	if err == nil {
		err = handler(msgCtx, m.Data)
	}
	if err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(msgCtx, r.log).Error("outbox dispatch failed",
			zap.String("key", m.IdempotencyKey), zap.Int("kind", int(m.Kind)), zap.Error(err))
		return false
	}
	return true
}
