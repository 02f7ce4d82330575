package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonDelord/project-proximity/internal/config"
)

type flakyWriter struct {
	failures int
	attempts int
	messages []kafka.Message
}

func (w *flakyWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.attempts++
	if w.attempts <= w.failures {
		return errors.New("broker unavailable")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func newTestPublisher(w MessageWriter) *Publisher {
	p := NewPublisher(w, "truck-telemetry", config.GetLogger())
	p.delay = time.Millisecond
	return p
}

func TestPublishFirstAttemptSucceeds(t *testing.T) {
	w := &flakyWriter{}
	p := newTestPublisher(w)

	err := p.Publish(context.Background(), "TRK-001", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 1, w.attempts)
}

func TestPublishRecoversWithinRetryBudget(t *testing.T) {
	for failures := 1; failures <= 3; failures++ {
		w := &flakyWriter{failures: failures}
		p := newTestPublisher(w)

		err := p.Publish(context.Background(), "TRK-001", []byte(`{}`))
		require.NoError(t, err, "failures=%d", failures)
		assert.Equal(t, failures+1, w.attempts, "failures=%d", failures)
	}
}

func TestPublishExhaustsAfterFourAttempts(t *testing.T) {
	w := &flakyWriter{failures: 10}
	p := newTestPublisher(w)

	err := p.Publish(context.Background(), "TRK-001", []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, 4, w.attempts)
}

func TestPublishKeyedAndKeyless(t *testing.T) {
	w := &flakyWriter{}
	p := newTestPublisher(w)

	require.NoError(t, p.Publish(context.Background(), "TRK-001", []byte(`1`)))
	require.NoError(t, p.Publish(context.Background(), "", []byte(`2`)))
	require.Len(t, w.messages, 2)

	assert.Equal(t, []byte("TRK-001"), w.messages[0].Key)
	assert.Nil(t, w.messages[1].Key)
}

func TestPublishStampsHeaders(t *testing.T) {
	w := &flakyWriter{}
	p := newTestPublisher(w)

	require.NoError(t, p.Publish(context.Background(), "TRK-001", []byte(`{}`)))
	require.Len(t, w.messages, 1)

	headers := map[string]string{}
	for _, h := range w.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.NotEmpty(t, headers["event_id"])
	assert.NotEmpty(t, headers["published_at"])
}

func TestPublishStopsOnCancelledContext(t *testing.T) {
	w := &flakyWriter{failures: 10}
	p := NewPublisher(w, "truck-telemetry", config.GetLogger())
	p.delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Publish(ctx, "TRK-001", []byte(`{}`))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, w.attempts)
}
