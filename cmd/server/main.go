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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	webAdapter "distribution-backoffice/internal/adapters/web"
	"distribution-backoffice/internal/app"
	"distribution-backoffice/internal/config"
	"distribution-backoffice/internal/core"
	"distribution-backoffice/internal/db"
	"distribution-backoffice/internal/events"
	"distribution-backoffice/internal/feed"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	// Redis and Kafka are optional: without them the service runs with live
	// feeds and event emission disabled.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, live feed disabled", zap.Error(err))
			rdb = nil
		}
	}

	var eventPub core.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, logger)
		defer producer.Close()
		eventPub = producer
	}

	var livefeed *feed.Publisher
	var snapshotPub core.SnapshotPublisher
	if rdb != nil {
		livefeed = feed.NewPublisher(rdb, logger)
		snapshotPub = livefeed
	}

	stock := core.NewStockLedger(pool)
	credit := core.NewCreditLedger(pool)
	audit := core.NewAuditRecorder(pool)
	portal := core.NewPortalSync(pool, rdb, logger)
	coordinator := core.NewCoordinator(pool, stock, credit, audit, portal, snapshotPub, eventPub, logger)
	returns := core.NewReturnService(pool, stock, credit, audit, eventPub, logger)

	svc := app.NewAppService(pool, coordinator, stock, credit, audit, returns, portal)
	handler := webAdapter.NewHandler(svc, livefeed, cfg.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-done
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
