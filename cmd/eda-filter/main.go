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
	"github.com/SimonDelord/project-proximity/internal/filter"
	"github.com/SimonDelord/project-proximity/internal/metrics"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[boot] invalid configuration: %v", err)
	}

	logger.Printf("[boot] eda-filter | brokers=%v group=%s in=%s out=%s",
		cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.SourceTopic, cfg.TargetTopic)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ensureCtx, ensureCancel := context.WithTimeout(ctx, 15*time.Second)
	broker.EnsureTopics(ensureCtx, cfg, cfg.SourceTopic, cfg.TargetTopic)
	ensureCancel()

	reader := broker.NewReader(cfg)
	defer reader.Close()
	writer := broker.NewWriter(cfg.KafkaBrokers, cfg.TargetTopic)
	defer writer.Close()

	pub := broker.NewPublisher(writer, cfg.TargetTopic, logger)
	proc := filter.NewProcessor(cfg.SourceTopic, pub, logger)

	metricsSrv := metrics.NewServer(cfg.FilterMetricsAddr)
	go func() {
		if err := metricsSrv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("[error] metrics server: %v", err)
		}
	}()

	stage := filter.NewStage(reader, proc, logger)
	stage.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Printf("[shutdown] eda-filter stopped")
}
