// cmd/relay-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"askfan-notify/internal/common/aws"
	"askfan-notify/internal/common/config"
	"askfan-notify/internal/common/database"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/common/observability"
	"askfan-notify/internal/live"
	"askfan-notify/internal/models"
	"askfan-notify/internal/push"
	"askfan-notify/internal/relay"
	"askfan-notify/internal/relay/queue"
	"askfan-notify/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// disabledPush satisfies the push fan-out contract when FCM is not configured.
type disabledPush struct{}

func (disabledPush) SendToUser(ctx context.Context, rec models.NotificationRecord) error {
	return nil
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting relay server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("relay-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init SQS ---
	sqsClient, err := aws.NewSQSClient(ctx, cfg.Queue.AWS.Region)
	if err != nil {
		zapLog.Fatal("sqs client init failed", zap.Error(err))
	}

	// --- Wire relay components ---
	st := store.NewPostgresStore(pg.DB)
	registry := push.NewTokenRegistry(rds.Client, cfg.Notifications.TopicSetPrefix, log)
	feed := live.NewFeed(rds.Client, st.ListByUser, cfg.Notifications.FeedChannelPrefix,
		cfg.Notifications.BatchLimit, log)
	enqueuer := queue.NewEnqueuer(sqsClient, cfg.Queue.AWS.SQS.QueueURL)

	var pushSender relay.PushSender = disabledPush{}
	if cfg.Push.Enabled {
		gateway, err := push.NewGateway(ctx, cfg.Push.CredentialsFile, log)
		if err != nil {
			zapLog.Fatal("push gateway init failed", zap.Error(err))
		}
		pushSender = push.NewDispatcher(registry, gateway, log)
		zapLog.Info("Push gateway initialized")
	} else {
		zapLog.Info("Push disabled, fan-out is store and queue only")
	}

	handler := relay.NewHandler(st, feed, pushSender, enqueuer, registry,
		cfg.Notifications.BatchLimit, log)
	srv := relay.NewServer(cfg.Server, handler, obs, log)

	// --- Debug & Metrics Server ---
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, mux); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("relay server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping relay server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down relay server", zap.Error(err))
	}

	zapLog.Info("Relay server stopped gracefully")
}
