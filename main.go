package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cloudhut/klag/api"
	"github.com/cloudhut/klag/kafka"
	"github.com/cloudhut/klag/lag"
	"github.com/cloudhut/klag/logging"
	"github.com/cloudhut/klag/offsets"
	"github.com/cloudhut/klag/prometheus"
)

func main() {
	startupLogger, err := zap.NewProduction()
	if err != nil {
		panic("failed to create startup logger: " + err.Error())
	}

	cfg, err := newConfig(startupLogger)
	if err != nil {
		startupLogger.Fatal("failed to parse config", zap.Error(err))
	}

	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger := logging.NewLogger(cfg.Logger, cfg.Exporter.Namespace, registry)
	logger.Info("started logger", zap.String("log_level", cfg.Logger.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kafkaSvc, err := kafka.NewService(cfg.Kafka, logger, cfg.Exporter.Namespace, registry)
	if err != nil {
		logger.Fatal("failed to setup kafka service", zap.Error(err))
	}
	defer kafkaSvc.Close()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = kafkaSvc.TestConnection(connectCtx)
	cancel()
	if err != nil {
		logger.Fatal("failed to test connectivity to Kafka cluster", zap.Error(err))
	}

	offsetSource := offsets.NewSource(kafkaSvc, logger)
	lagManager := lag.NewManager(offsetSource, logger)

	if cfg.Exporter.Enabled {
		exporter, err := prometheus.NewExporter(cfg.Exporter, logger, kafkaSvc, offsetSource, lagManager)
		if err != nil {
			logger.Fatal("failed to setup prometheus exporter", zap.Error(err))
		}
		registry.MustRegister(exporter)
	}

	server := api.NewServer(cfg.API, logger, cfg.Exporter.Namespace, registry, lagManager, kafkaSvc)
	if err := server.Start(ctx); err != nil {
		logger.Fatal("failed to run http server", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
