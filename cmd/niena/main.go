package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"niena/internal/cli"
	"niena/internal/config"
	"niena/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, watcher, err := config.LoadConfigWithWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		os.Exit(1)
	}

	if cfg.App.WatchConfig {
		watcher.OnReload(func(next *config.Config) {
			if err := logger.SetLevel(next.App.LogLevel); err != nil {
				logger.LogError(err, "Ignoring invalid log level from reloaded config")
				return
			}
			logger.Info("Log level updated", "log_level", next.App.LogLevel)
		})
		watcher.Start()
	}

	logger.Info("Starting niena",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
