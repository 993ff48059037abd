package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer validates cfg and makes a best effort to create the topic
// before the reader joins its group.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) (*Consumer, error) {
	if err := cfg.valid(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	if err := EnsureTopic(ctx, cfg.Brokers, TopicSpec{Name: cfg.Topic, MaxWait: 5 * time.Second}, logger); err != nil {
		logger.Warn("continuing without confirmed topic", zap.String("topic", cfg.Topic), zap.Error(err))
	}
	return NewConsumer(cfg), nil
}
