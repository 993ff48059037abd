package main

import (
	"context"
	"fmt"

	config "github.com/NordCoder/crewcruise/internal/config/api-gateway"
	pg "github.com/NordCoder/crewcruise/internal/repository/postgres"
	"go.uber.org/zap"
)

func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pg.DB, error) {
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	logger.Info("db connected", zap.Int32("max_conns", cfg.DB.MaxConns))
	return db, nil
}
