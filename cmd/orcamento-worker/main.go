package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"orcamento/internal/cli"
	"orcamento/internal/config"
	"orcamento/internal/log"
	"orcamento/internal/services"
	"orcamento/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting orcamento-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process; the worker only sees its own seed")
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Close()

	svc := services.NewLedgerService(store.Store,
		services.WithRegistry(store.Store),
		services.WithLogger(logger.WithComponent(log.ComponentLedger)),
	)

	events := cli.OpenEvents(logger, cfg)
	var publisher services.EventPublisher
	if events != nil {
		defer events.Close()
		publisher = events
	}

	w := worker.NewReconcileWorker(svc, publisher, cfg.ReconcileInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	if events != nil {
		g.Go(func() error {
			return events.Consume(gctx, w.HandleEvent)
		})
	} else {
		logger.Info("Skipping AMQP message consumption - events disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
