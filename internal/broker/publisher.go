package broker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/SimonDelord/project-proximity/internal/metrics"
	"github.com/SimonDelord/project-proximity/internal/model"
)

const (
	// maxRetries is the number of additional attempts after the first
	// failed publish; retryDelay is the fixed wait between attempts.
	maxRetries = 3
	retryDelay = 2000 * time.Millisecond
)

// MessageWriter is the slice of kafka.Writer the Publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher publishes one keyed message per call with bounded retry.
// After exhausting retries the message is dropped for that cycle; there
// is no durable queue across cycles, so sustained bus unavailability
// degrades to logged at-most-once loss.
type Publisher struct {
	writer MessageWriter
	topic  string
	logger *log.Logger
	delay  time.Duration
}

func NewPublisher(w MessageWriter, topic string, logger *log.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, logger: logger, delay: retryDelay}
}

// Publish writes value to the publisher's topic. An empty key sends the
// message keyless. Every message is stamped with event_id and
// published_at headers. Returns an error only after all attempts are
// exhausted.
func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "published_at", Value: []byte(model.UTCNow())},
		},
	}
	if key != "" {
		msg.Key = []byte(key)
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			metrics.PublishRetriesTotal.WithLabelValues(p.topic).Inc()
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		p.logger.Printf("[kafka] publish to %s failed (attempt %d/%d): %v",
			p.topic, attempt+1, maxRetries+1, err)
	}
	metrics.PublishDroppedTotal.WithLabelValues(p.topic).Inc()
	p.logger.Printf("[error] dropping message for %s after %d attempts", p.topic, maxRetries+1)
	return fmt.Errorf("publish to %s exhausted %d attempts: %w", p.topic, maxRetries+1, err)
}
