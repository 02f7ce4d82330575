// Package metrics exposes the relay's prometheus counters and the
// /metrics listener each service runs.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "truck_relay",
		Name:      "polls_total",
		Help:      "Number of poll cycles by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	PublishRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "truck_relay",
		Name:      "publish_retries_total",
		Help:      "Number of publish attempts that had to be retried",
	}, []string{"topic"})

	PublishDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "truck_relay",
		Name:      "publish_dropped_total",
		Help:      "Number of messages dropped after retry exhaustion",
	}, []string{"topic"})

	EventsFilteredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "truck_relay",
		Name:      "events_filtered_total",
		Help:      "Number of derived events produced by the filter stage",
	}, []string{"source_topic"})
)

func init() {
	prometheus.MustRegister(
		PollsTotal,
		PublishRetriesTotal,
		PublishDroppedTotal,
		EventsFilteredTotal,
	)
}

// Server serves /metrics and /healthz.
type Server struct {
	server *http.Server
}

func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{server: &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}}
}

func (s *Server) Serve() error                       { return s.server.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
