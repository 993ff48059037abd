package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	config "github.com/NordCoder/crewcruise/internal/config/api-gateway"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api-gateway", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := initDB(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	a, err := buildApp(cfg, logger, db)
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer func() { _ = a.producer.Close() }()

	grpcServer, hs, grpcLn, err := buildGRPCServer(cfg)
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, logger) }()

	httpSrv := buildHTTPServer(cfg, db, a.mux)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	workersCtx, stopWorkers := context.WithCancel(rootCtx)
	a.outbox.Start(workersCtx)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	hs.Shutdown()
	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	stopWorkers()
	a.outbox.Wait()
	logger.Info("bye")
}
