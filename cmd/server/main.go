package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"excelinsights/internal/config"
	"excelinsights/internal/container"
	"excelinsights/internal/logger"
	"excelinsights/ui"

	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(appConfig.Log.Level, appConfig.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(ctx, appConfig, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	appContainer.Start(ctx)

	api := ui.NewServer(appContainer.Service, ui.Options{
		GinMode:        appConfig.Server.GinMode,
		MaxUploadBytes: appConfig.Server.MaxUploadBytes(),
	}, log)

	servers := []*http.Server{{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if appConfig.Profiling.Enabled {
		servers = append(servers, &http.Server{
			Addr:              ":" + appConfig.Profiling.Port,
			Handler:           ui.NewAdminRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			log.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s failed: %w", srv.Addr, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-errCh:
		log.Error("server error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	if err := appContainer.Shutdown(shutdownCtx); err != nil {
		log.Warn("container shutdown failed", zap.Error(err))
	}
	log.Info("stopped")
	return runErr
}
