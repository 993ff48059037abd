package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/crewcruise/internal/config/email-notifier"
	"github.com/NordCoder/crewcruise/internal/obs"
	"github.com/NordCoder/crewcruise/internal/obs/retry"
	"github.com/NordCoder/crewcruise/internal/repository/kafka"
	pg "github.com/NordCoder/crewcruise/internal/repository/postgres"
	notifier "github.com/NordCoder/crewcruise/internal/services/email-notifier"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func wiring(db *pg.DB, cfg *config.Config, cons *kafka.Consumer, l *zap.Logger) *notifier.Controller {
	uc := &notifier.Handler{
		Out:   notifier.New(cfg.SMTP).WithLogger(l),
		Store: pg.NewMailLogRepo(db),
		Clock: systemClock{},
		Policy: retry.SMTPPolicy(l, cfg.Attempts),
		Log:    l,
	}
	return notifier.NewController(l, cons, uc, prometheus.DefaultRegisterer)
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	cfg.Log.App = "email-notifier"
	l, err := obs.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting email-notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("smtp_addr", cfg.SMTP.Addr),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, &cfg.OTEL)
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, db.Ping, l)

	cons, err := kafka.BootstrapConsumer(rootCtx, &kafka.ConsumerConfig{
		Brokers: cfg.In.Brokers,
		GroupID: cfg.In.GroupID,
		Topic:   cfg.In.Topic,
		Logger:  l,
	}, l)
	if err != nil {
		l.Fatal("kafka consumer", zap.Error(err))
	}
	defer func() { _ = cons.Close() }()
	l.Info("kafka consumer initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("topic", cfg.In.Topic),
	)

	ctrl := wiring(db, cfg, cons, l)
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(rootCtx) }()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
