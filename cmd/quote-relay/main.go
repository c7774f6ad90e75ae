package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/zhou-yuxin/ctp-client/internal/config"
	"github.com/zhou-yuxin/ctp-client/internal/logging"
	"github.com/zhou-yuxin/ctp-client/internal/relay"
	"github.com/zhou-yuxin/ctp-client/pkg/trading"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("quote-relay", pflag.ExitOnError)
	config.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load("quote-relay", flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Codes) == 0 {
		logger.Fatal("no codes to relay")
	}
	logger.Info("starting quote-relay",
		zap.Strings("codes", cfg.Codes),
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("metrics_addr", cfg.MetricsAddr))

	producer, err := relay.NewKafka(logger, cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}

	ctx := context.Background()
	trader, err := trading.NewTrader(ctx, logger, cfg.DSN, cfg.Trading())
	if err != nil {
		_ = producer.Close()
		logger.Fatal("failed to start trader", zap.Error(err))
	}
	trader.SetReceiver(producer.Receiver())
	if err = trader.Subscribe(ctx, cfg.Codes); err != nil {
		_ = trader.Close()
		_ = producer.Close()
		logger.Fatal("failed to subscribe", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-httpErrCh:
		logger.Error("metrics server error", zap.Error(err))
	}

	logger.Info("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := trader.Unsubscribe(shutdownCtx, cfg.Codes); err != nil {
		logger.Warn("failed to unsubscribe", zap.Error(err))
	}
	// no ticks reach the producer after the trader is closed
	if err := trader.Close(); err != nil {
		logger.Error("failed to close trader", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		logger.Error("failed to flush quotes", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down metrics server", zap.Error(err))
	}
	logger.Info("quote-relay stopped")
}
