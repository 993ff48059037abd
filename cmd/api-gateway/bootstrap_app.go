package main

import (
	"github.com/NordCoder/crewcruise/internal/auth"
	config "github.com/NordCoder/crewcruise/internal/config/api-gateway"
	"github.com/NordCoder/crewcruise/internal/obs/retry"
	outboxsvc "github.com/NordCoder/crewcruise/internal/outbox"
	kafkax "github.com/NordCoder/crewcruise/internal/repository/kafka"
	pg "github.com/NordCoder/crewcruise/internal/repository/postgres"
	authsvc "github.com/NordCoder/crewcruise/internal/services/api-gateway/auth"
	"github.com/NordCoder/crewcruise/internal/services/api-gateway/respond"
	"github.com/NordCoder/crewcruise/internal/services/api-gateway/users"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type app struct {
	mux      *runtime.ServeMux
	outbox   *outboxsvc.Runner
	producer *kafkax.Producer
}

func buildApp(cfg *config.Config, logger *zap.Logger, db *pg.DB) (*app, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.AsTokenConfig())
	if err != nil {
		return nil, err
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	userRepo := pg.NewUserRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)
	tx := pg.NewTransactor(db, logger)

	authUC := authsvc.NewUseCase(
		userRepo, hasher, tokens,
		outboxsvc.NewMailDispatcher(outboxRepo),
		tx,
		authsvc.Config{
			LinkBaseURL:         cfg.Auth.LinkBaseURL,
			ConcealUnknownEmail: cfg.Auth.ConcealUnknownEmail,
			ActionTTL:           cfg.Auth.ActionTTL,
		},
		logger,
	)

	mux := runtime.NewServeMux()
	rs := respond.New(mux)
	guard := authsvc.NewGuard(tokens, authUC, rs, cfg.Auth.CookieName)

	authSrv := authsvc.NewServer(authUC, guard, rs, authsvc.Opts{
		Logger:       logger,
		CookieName:   cfg.Auth.CookieName,
		CookieDomain: cfg.Auth.CookieDomain,
		CookiePath:   cfg.Auth.CookiePath,
		CookieSecure: cfg.Auth.CookieSecure,
		RefreshTTL:   cfg.Auth.RefreshTTL,
	})
	if err := authSrv.Register(mux); err != nil {
		return nil, err
	}
	if err := users.NewServer(users.New(userRepo), guard, rs, logger).Register(mux); err != nil {
		return nil, err
	}

	producer := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	runner := outboxsvc.NewOutboxRunner(
		logger,
		outboxRepo,
		outboxsvc.MakeGlobalOutboxHandler(kafkax.NewMailEventsKafka(producer), retry.DefaultKafkaPolicy(logger)),
		cfg.Outbox,
		prometheus.DefaultRegisterer,
	)

	return &app{mux: mux, outbox: runner, producer: producer}, nil
}
