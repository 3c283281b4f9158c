package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"orcamento/internal/cache"
	"orcamento/internal/cli"
	"orcamento/internal/core"
	apphttp "orcamento/internal/http"
	"orcamento/internal/log"
	"orcamento/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	store := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	opts := []services.Option{
		services.WithRegistry(store.Store),
		services.WithLogger(logger.WithComponent(log.ComponentLedger)),
	}

	if events := cli.OpenEvents(logger, cfg); events != nil {
		defer events.Close()
		opts = append(opts, services.WithPublisher(events))
	}

	if cfg.RegistryCacheTTL > 0 {
		registryCache := cache.NewLRUCache[[]core.RegistryEntry](1, cfg.RegistryCacheTTL)
		opts = append(opts, services.WithRegistryCache(registryCache))
		go cache.NewJanitor(registryCache).Run(ctx, cfg.RegistryCacheTTL)
	}

	svc := services.NewLedgerService(store.Store, opts...)
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Ready:              store.Ready,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting orcamento server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"events", cfg.EventsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", "metrics", srv.Metrics())
}
