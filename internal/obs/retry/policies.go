package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultKafkaPolicy retries broker publishes with capped exponential backoff.
func DefaultKafkaPolicy(log *zap.Logger) Policy {
	return DefaultKafkaPolicyWithAttempts(log, 6)
}

func DefaultKafkaPolicyWithAttempts(log *zap.Logger, attempts int) Policy {
	return Policy{
		Name:      "kafka_publish",
		Attempts:  attempts,
		Backoff:   ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		OnAttempt: logAttempt(log, "outbox retry"),
		OnExhaust: logExhaust(log, "outbox retries exhausted"),
	}
}

// SMTPPolicy retries a single delivery; Permanent errors (5xx replies) stop it.
func SMTPPolicy(log *zap.Logger, attempts int) Policy {
	return Policy{
		Name:      "smtp_send",
		Attempts:  attempts,
		Backoff:   ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
		OnAttempt: logAttempt(log, "smtp retry"),
		OnExhaust: logExhaust(log, "smtp delivery abandoned"),
	}
}

func logAttempt(log *zap.Logger, msg string) func(int, error) {
	return func(i int, err error) {
		if log != nil {
			log.Warn(msg, zap.Int("attempt", i+1), zap.Error(err))
		}
	}
}

func logExhaust(log *zap.Logger, msg string) func(error) {
	return func(err error) {
		if log != nil && !errors.Is(err, context.Canceled) {
			log.Error(msg, zap.Error(err), zap.Bool("permanent", IsPermanent(err)))
		}
	}
}
