package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/config"
	"github.com/kriyptor/Market-Place-App/internal/events"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// The worker consumes order.placed events and maintains per-vendor sales.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "sales-worker"}).Error(context.Background(), "config load failed", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "sales-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     cfg.App.IsDev(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.Kafka.Enabled {
		log.Error(ctx, "kafka is disabled, nothing to consume", nil)
		os.Exit(1)
	}

	db, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Error(ctx, "mongo connect failed", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Client().Disconnect(context.Background())
	}()

	m := metrics.New()
	consumer := events.NewSalesConsumer(
		events.NewKafkaReader(cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...),
		repository.NewMongoSalesRepository(db),
		log,
		m,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info(ctx, "sales consumer started")
		consumer.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down sales worker")
	cancel()
	<-done
	consumer.Close()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "metrics server forced to shutdown", err)
	}
	log.Info(shutdownCtx, "sales worker stopped")
}
