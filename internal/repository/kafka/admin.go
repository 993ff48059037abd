package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrTopicNotReady = errors.New("kafka topic not ready")

type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	MaxWait           time.Duration
}

func (s TopicSpec) withDefaults() TopicSpec {
	if s.NumPartitions <= 0 {
		s.NumPartitions = 1
	}
	if s.ReplicationFactor <= 0 {
		s.ReplicationFactor = 1
	}
	if s.MaxWait <= 0 {
		s.MaxWait = 5 * time.Second
	}
	return s
}

// EnsureTopic creates the topic through the cluster controller if it is
// missing and waits until its partitions are visible.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("kafka admin: no brokers")
	}
	if log == nil {
		log = zap.NewNop()
	}
	spec = spec.withDefaults()
	log = log.With(zap.String("component", "kafka.admin"), zap.String("topic", spec.Name))

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		log.Warn("kafka dial failed", zap.Error(err))
		return fmt.Errorf("dial %s: %w", brokers[0], err)
	}
	defer conn.Close()

	if err := createViaController(ctx, conn, spec); err != nil {
		log.Warn("create topic", zap.Error(err))
		return err
	}

	deadline := time.Now().Add(spec.MaxWait)
	for {
		ps, err := conn.ReadPartitions(spec.Name)
		if err == nil && len(ps) > 0 {
			log.Info("topic ready", zap.Int("partitions", len(ps)))
			return nil
		}
		if time.Now().After(deadline) {
			log.Warn("topic not confirmed ready in time", zap.Duration("waited", spec.MaxWait))
			return fmt.Errorf("%w: %s", ErrTopicNotReady, spec.Name)
		}
		if !sleep(ctx, 200*time.Millisecond) {
			return ctx.Err()
		}
	}
}

func createViaController(ctx context.Context, conn *kafka.Conn, spec TopicSpec) error {
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	cc, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer cc.Close()

	err = cc.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create %s: %w", spec.Name, err)
	}
	return nil
}
