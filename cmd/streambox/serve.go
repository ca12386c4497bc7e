package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/streambox/internal/app"
	"github.com/amaumene/streambox/internal/config"
	"github.com/amaumene/streambox/internal/utils"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.Flags().String("port", "", "HTTP port (overrides SERVER_PORT)")
	return cmd
}

func serve(parent context.Context) error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.WithField("version", version).Info("Starting Streambox")
	logger.WithField("config_dir", cfg.ConfigDir).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// 3. Store, cache, controllers and catalog
	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close(context.Background())

	// 4. Housekeeping
	sched := container.NewScheduler()
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 5. HTTP server
	server := container.NewServer()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 6. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Streambox is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Streambox stopped")
	return nil
}
