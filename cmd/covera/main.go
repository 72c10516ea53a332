package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/adapter/cli/application"
	"github.com/felixgeelhaar/covera/adapter/cli/contract"
	"github.com/felixgeelhaar/covera/adapter/cli/customer"
	"github.com/felixgeelhaar/covera/adapter/cli/discount"
	"github.com/felixgeelhaar/covera/adapter/cli/events"
	"github.com/felixgeelhaar/covera/adapter/cli/fleet"
	"github.com/felixgeelhaar/covera/adapter/cli/notification"
	"github.com/felixgeelhaar/covera/internal/app"
	"github.com/felixgeelhaar/covera/pkg/config"
	"github.com/felixgeelhaar/covera/pkg/observability"
)

func main() {
	// Setup logger
	logger := observability.NewLogger(observability.DefaultLogConfig())

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// In development without .env, use defaults
		logger.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	logger = observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat, "covera-cli"))
	cli.SetLogger(logger)

	// Try to initialize the full container
	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
		// In development, allow CLI to run without database
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()

		// Start outbox processor in background (optional in CLI)
		if cfg.OutboxProcessorEnabled {
			go func() {
				if err := container.OutboxProcessor.Start(ctx); err != nil {
					logger.Warn("outbox processor not started", "error", err)
				}
			}()
			defer container.OutboxProcessor.Stop()
		} else {
			logger.Debug("outbox processor disabled in CLI")
		}

		cliApp = cli.NewApp(container)
	}

	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(application.Cmd)
	cli.AddCommand(contract.Cmd)
	cli.AddCommand(customer.Cmd)
	cli.AddCommand(fleet.Cmd)
	cli.AddCommand(discount.Cmd)
	cli.AddCommand(events.Cmd)
	cli.AddCommand(notification.Cmd)

	// Execute CLI
	cli.Execute(ctx)
}
