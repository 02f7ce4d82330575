// Package broker owns the Kafka side of the relay: writer/reader
// construction, best-effort topic creation at boot, and the bounded
// retry publisher both services share.
package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/SimonDelord/project-proximity/internal/config"
)

const (
	kafkaMinBytes = 10_000     // 10KB
	kafkaMaxBytes = 10_000_000 // 10MB
)

// NewWriter builds a writer for one topic. The Hash balancer keeps all
// messages for one truck on one partition. MaxAttempts is 1 because the
// Publisher owns the retry policy; each attempt must be exactly one
// network write.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 5 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  1,
		Async:        false,
	}
}

// NewReader builds the filter stage's group consumer.
func NewReader(cfg *config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.ConsumerGroup,
		Topic:          cfg.SourceTopic,
		MinBytes:       kafkaMinBytes,
		MaxBytes:       kafkaMaxBytes,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // manual commit after each processed message
	})
}

func ensureTopic(ctx context.Context, broker, topic string, partitions int) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	tc := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}
	if err := ctrlConn.CreateTopics(tc); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "exists") {
			return fmt.Errorf("create topic %s: %w", topic, err)
		}
	}
	return nil
}

// EnsureTopics creates the relay's topics if the cluster does not have
// them yet. Failures are logged, not fatal: the cluster may auto-create
// or the topics may be provisioned externally.
func EnsureTopics(ctx context.Context, cfg *config.Config, topics ...string) {
	logger := config.GetLogger()
	if len(cfg.KafkaBrokers) == 0 {
		logger.Printf("[warn] no brokers configured for topic ensure")
		return
	}
	broker := cfg.KafkaBrokers[0]
	for _, topic := range topics {
		if err := ensureTopic(ctx, broker, topic, cfg.TopicPartitions); err != nil {
			logger.Printf("[warn] ensure topic %s: %v", topic, err)
		} else {
			logger.Printf("[topics] ensured topic=%s partitions=%d", topic, cfg.TopicPartitions)
		}
	}
}
