package main

import (
	"context"
	"net/http"
	"time"

	config "github.com/NordCoder/crewcruise/internal/config/api-gateway"
	"github.com/NordCoder/crewcruise/internal/obs"
	pg "github.com/NordCoder/crewcruise/internal/repository/postgres"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, db *pg.DB, api *runtime.ServeMux) *http.Server {
	root := http.NewServeMux()
	root.Handle("/", obs.HTTPHandler(api, "api"))
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/healthz", obs.HealthHandler(func(ctx context.Context) error {
		return db.Ping(ctx)
	}))

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           root,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
