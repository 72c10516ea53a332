package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/felixgeelhaar/covera/internal/app"
	"github.com/felixgeelhaar/covera/internal/applications/application/subscribers"
	"github.com/felixgeelhaar/covera/internal/contracts/application/workers"
	provisioningSubs "github.com/felixgeelhaar/covera/internal/provisioning/application/subscribers"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/covera/pkg/config"
	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// deviceDurable names the JetStream consumer of device events.
const deviceDurable = "covera-devices"

func main() {
	// Setup logger
	logger := observability.NewLogger(observability.DefaultLogConfig())
	logger.Info("starting covera worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat, "covera-worker"))
	slog.SetDefault(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker component stopped", "component", name, "error", err)
				cancel()
			}
		}()
	}

	// Outbox processor
	processor := container.OutboxProcessor
	if err := processor.Start(ctx); err != nil {
		logger.Error("failed to start outbox processor", "error", err)
		os.Exit(1)
	}
	logger.Info("outbox processor started",
		"poll_interval", cfg.OutboxPollInterval,
		"batch_size", cfg.OutboxBatchSize,
		"max_retries", cfg.OutboxMaxRetries,
	)
	run("outbox-cleanup", func(ctx context.Context) error {
		return cleanupOutbox(ctx, processor, cfg.OutboxCleanupInterval)
	})

	// Payment gateway events
	paymentConsumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:                cfg.RabbitMQURL,
		QueueName:          cfg.EcommerceQueue,
		Exchange:           cfg.EcommerceExchange,
		DeadLetterExchange: cfg.EcommerceExchange + ".dlx",
		Decoder:            subscribers.DecodePaymentEvent,
		Logger:             logger,
	}, eventbus.NewConsumerRegistry(logger))
	if err != nil {
		logger.Error("failed to connect payment event consumer", "error", err)
		os.Exit(1)
	}
	defer paymentConsumer.Close()
	paymentConsumer.RegisterConsumer(container.PaymentEvents)
	if err := paymentConsumer.Bind("#"); err != nil {
		logger.Error("failed to bind payment event queue", "error", err)
		os.Exit(1)
	}
	run("payment-events", paymentConsumer.Start)

	// Device events
	deviceConsumer, err := eventbus.NewJetStreamConsumer(ctx, eventbus.JetStreamConsumerConfig{
		URL:      cfg.NATSURL,
		Stream:   cfg.DeviceStream,
		Subjects: []string{cfg.DeviceSubject},
		Durable:  deviceDurable,
		Decoder:  provisioningSubs.DecodeDeviceEvent,
		Logger:   logger,
	}, eventbus.NewConsumerRegistry(logger))
	if err != nil {
		logger.Error("failed to connect device event consumer", "error", err)
		os.Exit(1)
	}
	defer deviceConsumer.Close()
	deviceConsumer.RegisterConsumer(container.DeviceEvents)
	run("device-events", deviceConsumer.Start)

	// Driving score discounts
	if cfg.DiscountEnabled {
		scheduler := workers.NewDiscountScheduler(container.DiscountJob, workers.DiscountSchedulerConfig{
			Interval: cfg.DiscountInterval,
		}, logger)
		defer scheduler.Stop()
		run("discount-scheduler", scheduler.Run)
	} else {
		logger.Info("discount scheduler disabled")
	}

	if cfg.WorkerHealthAddr != "" {
		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           healthMux(container.Health, processor),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down worker")

	processor.Stop()
	wg.Wait()
	logger.Info("worker stopped")
}

// cleanupOutbox deletes published messages past retention once per interval.
func cleanupOutbox(ctx context.Context, processor *outbox.Processor, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Failures are recorded in the processor stats.
			_, _ = processor.Cleanup(ctx)
		}
	}
}

// statsSource exposes the outbox processor statistics.
type statsSource interface {
	GetStats() outbox.Stats
}

func healthMux(health *observability.HealthRegistry, processor statsSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := processor.GetStats()
		overall := health.GetOverallHealth(r.Context())
		response := map[string]any{
			"status":            overall.Status,
			"checks":            overall.Checks,
			"running":           stats.IsRunning,
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"lag_seconds":       stats.LagSeconds,
			"last_processed_at": stats.LastProcessedAt,
			"last_error_at":     stats.LastErrorAt,
			"last_error":        stats.LastError,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		overall := health.GetOverallHealth(checkCtx)
		w.Header().Set("Content-Type", "application/json")
		if overall.Status == observability.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "not_ready",
				"checks": overall.Checks,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ready"})
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
