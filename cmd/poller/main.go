package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SimonDelord/project-proximity/internal/broker"
	"github.com/SimonDelord/project-proximity/internal/config"
	"github.com/SimonDelord/project-proximity/internal/metrics"
	"github.com/SimonDelord/project-proximity/internal/poller"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[boot] invalid configuration: %v", err)
	}

	logger.Printf("[boot] truck-poller starting, configs loaded:%s", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ensureCtx, ensureCancel := context.WithTimeout(ctx, 15*time.Second)
	broker.EnsureTopics(ensureCtx, cfg, cfg.KafkaTopic)
	ensureCancel()

	writer := broker.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer writer.Close()

	pub := broker.NewPublisher(writer, cfg.KafkaTopic, logger)

	metricsSrv := metrics.NewServer(cfg.PollerMetricsAddr)
	go func() {
		if err := metricsSrv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("[error] metrics server: %v", err)
		}
	}()

	engine := poller.NewEngine(cfg, pub, logger)
	engine.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Printf("[shutdown] truck-poller stopped")
}
