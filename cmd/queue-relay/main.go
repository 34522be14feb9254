// cmd/queue-relay/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
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
	"askfan-notify/internal/relay/queue"
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

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting queue relay...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if cfg.Queue.AWS.SQS.QueueURL == "" {
		zapLog.Fatal("delivery queue URL not configured")
	}

	obs := observability.New("queue-relay")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// --- Init AWS clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Queue.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Queue.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	sqsClient, err := aws.NewSQSClient(ctx, cfg.Queue.AWS.Region)
	if err != nil {
		zapLog.Fatal("sqs client init failed", zap.Error(err))
	}

	if cfg.Queue.TemplateRegistry != "" {
		if err := queue.LoadTemplates(cfg.Queue.TemplateRegistry); err != nil {
			zapLog.Fatal("template registry load failed", zap.Error(err))
		}
		zapLog.Info("Delivery templates loaded", zap.String("path", cfg.Queue.TemplateRegistry))
	}

	processor := queue.NewProcessor(queue.ProcessorConfig{
		EmailEnabled:       cfg.Queue.AWS.SES.Enabled,
		FromEmail:          cfg.Queue.AWS.SES.FromEmail,
		SMSEnabled:         cfg.Queue.AWS.SNS.Enabled,
		DefaultSMSSenderID: cfg.Queue.AWS.SNS.DefaultSMSSenderID,
	}, pg.DB, sesClient, snsClient, log)

	consumer := queue.NewConsumer(queue.ConsumerConfig{
		QueueURL:        cfg.Queue.AWS.SQS.QueueURL,
		BatchSize:       cfg.Queue.AWS.SQS.BatchSize,
		WaitTimeSeconds: cfg.Queue.AWS.SQS.WaitTimeSeconds,
	}, sqsClient, processor, log)

	// --- Health & Metrics Server ---
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

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zapLog.Fatal("queue consumer failed", zap.Error(err))
	}

	zapLog.Info("Queue relay stopped gracefully")
}
