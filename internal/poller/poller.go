// Package poller runs one independent polling task per configured
// truck API endpoint and relays each response to the bus as a canonical
// envelope.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SimonDelord/project-proximity/internal/config"
	"github.com/SimonDelord/project-proximity/internal/envelope"
	"github.com/SimonDelord/project-proximity/internal/metrics"
)

// SourceName tags every envelope this engine produces.
const SourceName = "truck-poller"

// phaseUnit staggers task start times so N endpoints do not all fire at
// the same instant against the sources and the bus.
const phaseUnit = 500 * time.Millisecond

// drainTimeout bounds how long shutdown waits for in-flight cycles.
const drainTimeout = 10 * time.Second

// PhaseOffset is the initial delay before endpoint i's first firing.
func PhaseOffset(index int) time.Duration {
	return time.Duration(index) * phaseUnit
}

// Publisher is the outbound side of a poll cycle.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Engine struct {
	endpoints []config.Endpoint
	interval  time.Duration
	pub       Publisher
	client    *http.Client
	logger    *log.Logger

	polls   atomic.Int64
	success atomic.Int64
	errors  atomic.Int64
}

func NewEngine(cfg *config.Config, pub Publisher, logger *log.Logger) *Engine {
	return &Engine{
		endpoints: cfg.Endpoints,
		interval:  time.Duration(cfg.PollIntervalSeconds) * time.Second,
		pub:       pub,
		client:    newHTTPClient(time.Duration(cfg.HTTPTimeoutSeconds) * time.Second),
		logger:    logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Run starts one polling task per endpoint and blocks until ctx is
// cancelled and in-flight cycles have drained (or the drain timeout
// elapses). Timers are strictly periodic by wall clock, so a slow poll
// may overlap the next firing for the same endpoint; overlapping cycles
// run concurrently.
func (e *Engine) Run(ctx context.Context) {
	var tasks sync.WaitGroup
	var cycles sync.WaitGroup

	for _, ep := range e.endpoints {
		tasks.Add(1)
		go func(ep config.Endpoint) {
			defer tasks.Done()
			e.runTask(ctx, ep, &cycles)
		}(ep)
	}
	tasks.Wait()

	if !waitWithTimeout(&cycles, drainTimeout) {
		e.logger.Printf("[shutdown] drain timeout after %s, abandoning in-flight cycles", drainTimeout)
	}
	e.logger.Printf("[stats] final: polls=%d success=%d errors=%d",
		e.polls.Load(), e.success.Load(), e.errors.Load())
}

func (e *Engine) runTask(ctx context.Context, ep config.Endpoint, cycles *sync.WaitGroup) {
	select {
	case <-time.After(PhaseOffset(ep.Index)):
	case <-ctx.Done():
		return
	}

	e.logger.Printf("[poll] task %d started: url=%s interval=%s", ep.Index, ep.URL, e.interval)

	fire := func() {
		cycles.Add(1)
		go func() {
			defer cycles.Done()
			e.cycle(ctx, ep)
		}()
	}

	fire()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fire()
		case <-ctx.Done():
			return
		}
	}
}

// cycle is one poll-publish pass. Any failure is local to the cycle:
// logged, counted, skipped. The next scheduled firing is the retry.
func (e *Engine) cycle(ctx context.Context, ep config.Endpoint) {
	e.polls.Add(1)
	e.logger.Printf("[poll] truck %d: polling %s", ep.TruckNumber(), ep.URL)

	body, err := e.fetch(ctx, ep.URL)
	if err != nil {
		e.errors.Add(1)
		metrics.PollsTotal.WithLabelValues(ep.URL, "fetch_error").Inc()
		e.logger.Printf("[error] truck %d: fetch %s: %v", ep.TruckNumber(), ep.URL, err)
		return
	}

	env := envelope.Encode(body, SourceName, ep.URL, ep.TruckNumber())
	value, err := json.Marshal(env)
	if err != nil {
		e.errors.Add(1)
		metrics.PollsTotal.WithLabelValues(ep.URL, "encode_error").Inc()
		e.logger.Printf("[error] truck %d: encode envelope: %v", ep.TruckNumber(), err)
		return
	}

	key := envelope.PartitionKey(body)
	if err := e.pub.Publish(ctx, key, value); err != nil {
		e.errors.Add(1)
		metrics.PollsTotal.WithLabelValues(ep.URL, "publish_error").Inc()
		return
	}

	e.success.Add(1)
	metrics.PollsTotal.WithLabelValues(ep.URL, "success").Inc()
	e.logger.Printf("[poll] truck %d: published key=%q bytes=%d", ep.TruckNumber(), key, len(value))
}

func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
