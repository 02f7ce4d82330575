// Package filter consumes raw telemetry envelopes, extracts the truck
// identification regardless of wrapping convention, and republishes a
// minimal derived event to the EDA topic.
package filter

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/SimonDelord/project-proximity/internal/extract"
	"github.com/SimonDelord/project-proximity/internal/metrics"
	"github.com/SimonDelord/project-proximity/internal/model"
)

// Publisher is the outbound side of the stage.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Reader is the slice of kafka.Reader the stage consumes through.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Processor struct {
	sourceTopic string
	pub         Publisher
	logger      *log.Logger
}

func NewProcessor(sourceTopic string, pub Publisher, logger *log.Logger) *Processor {
	return &Processor{sourceTopic: sourceTopic, pub: pub, logger: logger}
}

// Process turns one consumed message into a derived event and publishes
// it keyed by the resolved truck id. A message is always considered
// handled: extraction misses resolve to sentinels, and a publish
// failure after retry exhaustion is logged and the message dropped, so
// one bad message never blocks the partition.
func (p *Processor) Process(ctx context.Context, msg kafka.Message) model.DerivedEvent {
	id := extract.FromJSON(msg.Value)

	evt := model.DerivedEvent{
		EventType:       model.EventTypeFiltered,
		Timestamp:       model.UTCNow(),
		SourceTopic:     p.sourceTopic,
		TruckID:         id.TruckID,
		FirmwareVersion: id.FirmwareVersion,
	}

	value, err := json.Marshal(evt)
	if err != nil {
		p.logger.Printf("[error] marshal derived event: %v", err)
		return evt
	}

	if err := p.pub.Publish(ctx, evt.TruckID, value); err != nil {
		p.logger.Printf("[error] publish derived event for truck %s: %v", evt.TruckID, err)
		return evt
	}

	metrics.EventsFilteredTotal.WithLabelValues(p.sourceTopic).Inc()
	p.logger.Printf("[filter] truck_id=%s firmware_version=%s", evt.TruckID, evt.FirmwareVersion)
	return evt
}

// Stage is the long-running consume loop over the source topic.
type Stage struct {
	reader Reader
	proc   *Processor
	logger *log.Logger
}

func NewStage(reader Reader, proc *Processor, logger *log.Logger) *Stage {
	return &Stage{reader: reader, proc: proc, logger: logger}
}

// Run consumes until ctx is cancelled. Messages are processed and
// committed one at a time in delivery order; the stage introduces no
// reordering or batching.
func (s *Stage) Run(ctx context.Context) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				s.logger.Printf("[shutdown] stopping consumption")
				return
			}
			s.logger.Printf("[error] kafka fetch: %v", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.logger.Printf("[in] partition=%d offset=%d key=%q bytes=%d",
			msg.Partition, msg.Offset, string(msg.Key), len(msg.Value))

		s.proc.Process(ctx, msg)

		if err := s.reader.CommitMessages(context.Background(), msg); err != nil {
			s.logger.Printf("[error] kafka commit: %v", err)
		}
	}
}
