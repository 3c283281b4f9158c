package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"orcamento/internal/amqp"
	"orcamento/internal/ledger"
	"orcamento/internal/log"
	"orcamento/internal/services"
)

// Loader is satisfied by *services.LedgerService.
type Loader interface {
	Load(ctx context.Context) (ledger.Result, error)
}

// ReconcileWorker re-runs reconciliation whenever the ledger changes and on
// a fixed interval, and reports the resulting alerts.
type ReconcileWorker struct {
	ledger    Loader
	publisher services.EventPublisher
	interval  time.Duration
	logger    *log.Logger

	mu            sync.Mutex
	lastPublished string
}

func NewReconcileWorker(l Loader, publisher services.EventPublisher, interval time.Duration, logger *log.Logger) *ReconcileWorker {
	if logger == nil {
		logger = log.Default().WithComponent(log.ComponentWorker)
	}
	return &ReconcileWorker{
		ledger:    l,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
	}
}

// HandleEvent is the AMQP consumer callback. Alert events are the worker's
// own output and are ignored.
func (w *ReconcileWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	if event.Type == amqp.EventAlerts {
		return nil
	}
	w.logger.InfoContext(ctx, "Processing ledger event",
		"type", event.Type,
		log.FieldGroupID, event.GroupID,
		log.FieldVersion, event.Version)
	return w.Reconcile(ctx)
}

// Reconcile loads the ledger, logs every alert and publishes them once per
// ledger version.
func (w *ReconcileWorker) Reconcile(ctx context.Context) error {
	res, err := w.ledger.Load(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	for _, a := range res.Alerts {
		w.logger.WarnContext(ctx, a.Message,
			"kind", a.Kind,
			log.FieldGroupID, a.GroupID,
			"item_id", a.ItemID,
			"amount", a.Amount.String())
	}
	if len(res.Invalid) > 0 {
		w.logger.WarnContext(ctx, "Ledger rows could not be interpreted",
			log.FieldRows, len(res.Invalid),
			log.FieldVersion, res.Version)
	}
	w.logger.InfoContext(ctx, "Reconciliation complete",
		log.FieldOperation, log.OpReconcile,
		log.FieldVersion, res.Version,
		"groups", len(res.BudgetGroups),
		log.FieldAlerts, len(res.Alerts))

	if len(res.Alerts) == 0 || w.publisher == nil || !w.markPublished(res.Version) {
		return nil
	}
	event := amqp.NewLedgerEvent(amqp.EventAlerts)
	event.Version = res.Version
	event.Alerts = res.Alerts
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.forget(res.Version)
		return fmt.Errorf("publish alerts: %w", err)
	}
	return nil
}

func (w *ReconcileWorker) markPublished(version string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if version == w.lastPublished {
		return false
	}
	w.lastPublished = version
	return true
}

func (w *ReconcileWorker) forget(version string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastPublished == version {
		w.lastPublished = ""
	}
}

// Run reconciles once at startup and then on every tick until ctx ends.
// Failures are logged; the loop keeps going.
func (w *ReconcileWorker) Run(ctx context.Context) error {
	if err := w.Reconcile(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup reconciliation failed", log.FieldError, err)
	}
	if w.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic reconciliation failed", log.FieldError, err)
			}
		}
	}
}
