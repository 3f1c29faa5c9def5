package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/cache"
	"github.com/kriyptor/Market-Place-App/internal/config"
	"github.com/kriyptor/Market-Place-App/internal/events"
	h "github.com/kriyptor/Market-Place-App/internal/http"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/metrics"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"github.com/kriyptor/Market-Place-App/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "market-api"}).Error(context.Background(), "config load failed", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		ServiceName: "market-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     cfg.App.IsDev(),
	})
	ctx := context.Background()

	db, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Error(ctx, "mongo connect failed", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Client().Disconnect(context.Background())
	}()
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Error(ctx, "index creation failed", err)
		os.Exit(1)
	}
	log.Info(ctx, "connected to mongo")

	checks := map[string]h.HealthCheck{
		"mongo": func(ctx context.Context) error { return db.Client().Ping(ctx, readpref.Primary()) },
	}

	var idempotency cache.IdempotencyStore
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Error(ctx, "redis connect failed", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		idempotency = cache.NewRedisIdempotencyStore(redisClient, cfg.Redis.IdempotencyTTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		log.Info(ctx, "connected to redis")
	}

	m := metrics.New()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...), log, m)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	carts := repository.NewMongoCartRepository(db)
	orders := repository.NewMongoOrderRepository(db)
	users := repository.NewMongoUserRepository(db)
	products := repository.NewMongoProductRepository(db)
	sales := repository.NewMongoSalesRepository(db)
	tx := repository.NewMongoTransactor(db, cfg.Mongo.UseTransactions)

	checkout := service.NewCheckoutService(carts, orders, users, tx, publisher, log, m)

	router := h.NewRouter(h.RouterDeps{
		App:          cfg.App,
		HTTP:         cfg.HTTP,
		Log:          log,
		Metrics:      m,
		Gatherer:     prometheus.DefaultGatherer,
		Accounts:     service.NewAccountService(users, carts, cfg.JWT, log),
		Cart:         service.NewCartService(carts, checkout, log, m),
		Orders:       service.NewOrderService(orders, sales, log),
		Products:     service.NewProductService(products, users, log),
		Idempotency:  idempotency,
		HealthChecks: checks,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Event(ctx, zerolog.InfoLevel).Str("port", cfg.App.Port).Msg("api starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server forced to shutdown", err)
	}
	log.Info(ctx, "server exited")
}
