package services

import (
	"context"
	"errors"
	"fmt"

	"orcamento/internal/amqp"
	"orcamento/internal/cache"
	"orcamento/internal/core"
	"orcamento/internal/ledger"
	"orcamento/internal/log"
	"orcamento/internal/sheets"
)

var (
	// ErrStaleSnapshot is returned when a delete names a ledger version
	// that no longer matches the store.
	ErrStaleSnapshot = errors.New("ledger changed since it was read")
	ErrNoRegistry    = errors.New("registry store not configured")
	ErrNoIDs         = errors.New("no ids given")
)

const registryCacheKey = "registry"

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, event *amqp.LedgerEvent) error
}

// DeletionPreview is a deletion plan computed against a fresh snapshot.
type DeletionPreview struct {
	Version   string       `json:"version"`
	Ranges    []core.Range `json:"ranges"`
	Rows      int          `json:"rows"`
	Missing   []string     `json:"missing,omitempty"`
	Ambiguous []string     `json:"ambiguous,omitempty"`
}

// DeleteResult reports what a delete did. NoOp is set when no requested id
// resolved to a single row and nothing was written.
type DeleteResult struct {
	NoOp      bool         `json:"no_op"`
	Version   string       `json:"version"`
	Ranges    []core.Range `json:"ranges"`
	Deleted   int          `json:"deleted"`
	Missing   []string     `json:"missing,omitempty"`
	Ambiguous []string     `json:"ambiguous,omitempty"`
}

// LedgerService reads, reconciles and edits the ledger held by a store.
// Every operation works on a snapshot fetched for that call.
type LedgerService struct {
	store     sheets.LedgerStore
	registry  sheets.RegistryStore
	publisher EventPublisher
	cache     cache.Cache[[]core.RegistryEntry]
	engine    ledger.Engine
	newID     func() string
	logger    *log.Logger
}

type Option func(*LedgerService)

func WithRegistry(r sheets.RegistryStore) Option {
	return func(s *LedgerService) { s.registry = r }
}

// WithPublisher enables ledger events. A nil publisher is ignored.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithRegistryCache(c cache.Cache[[]core.RegistryEntry]) Option {
	return func(s *LedgerService) { s.cache = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// WithIDGenerator replaces uuid generation for row and group ids.
func WithIDGenerator(f func() string) Option {
	return func(s *LedgerService) {
		s.newID = f
		s.engine.Normalizer.NewID = f
	}
}

func NewLedgerService(store sheets.LedgerStore, opts ...Option) *LedgerService {
	s := &LedgerService{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default().WithComponent(log.ComponentLedger)
	}
	return s
}

// Load fetches the ledger and reconciles it. Ids assigned to rows that had
// none are written back when the store supports it, and the returned
// version then describes the store after that write.
func (s *LedgerService) Load(ctx context.Context) (ledger.Result, error) {
	_, res, err := s.snapshot(ctx)
	return res, err
}

func (s *LedgerService) snapshot(ctx context.Context) ([]core.RawRow, ledger.Result, error) {
	rows, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, ledger.Result{}, fmt.Errorf("fetch ledger: %w", err)
	}
	res := s.engine.LoadAndReconcile(rows)

	assigned := res.AssignedIDs()
	if len(assigned) == 0 {
		return rows, res, nil
	}
	b, ok := s.store.(sheets.IDBackfiller)
	if !ok {
		return rows, res, nil
	}
	if err := b.BackfillIDs(ctx, assigned); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist assigned ids",
			log.FieldOperation, log.OpBackfill,
			log.FieldRows, len(assigned),
			log.FieldError, err)
		return rows, res, nil
	}
	rows = withIDs(rows, assigned)
	res.Version = ledger.SnapshotVersion(rows)
	s.logger.InfoContext(ctx, "Assigned ids persisted",
		log.FieldOperation, log.OpBackfill,
		log.FieldRows, len(assigned),
		log.FieldVersion, res.Version)
	return rows, res, nil
}

func withIDs(rows []core.RawRow, ids map[int]string) []core.RawRow {
	out := make([]core.RawRow, len(rows))
	copy(out, rows)
	for i := range out {
		if id, ok := ids[out[i].Position]; ok && out[i].ID == "" {
			out[i].ID = id
		}
	}
	return out
}

// Summary reconciles a fresh snapshot and totals the items matching f.
func (s *LedgerService) Summary(ctx context.Context, f ledger.Filter) (ledger.Summary, error) {
	res, err := s.Load(ctx)
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.Summarize(res.LineItems, f), nil
}

// AddEntries appends one row per installment and returns their ids.
func (s *LedgerService) AddEntries(ctx context.Context, req ledger.EntryRequest) ([]string, error) {
	rows, err := ledger.BuildInstallments(req, s.newID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Append(ctx, rows); err != nil {
		return nil, fmt.Errorf("append entries: %w", err)
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	group := rows[0].GroupID
	s.logger.InfoContext(ctx, "Entries added",
		log.FieldOperation, log.OpAppend,
		log.FieldGroupID, group,
		log.FieldRows, len(rows))

	event := amqp.NewLedgerEvent(amqp.EventEntriesAdded)
	event.IDs = ids
	event.GroupID = group
	s.publish(ctx, event)
	return ids, nil
}

// PlanDeletion previews which rows a delete of ids would remove.
func (s *LedgerService) PlanDeletion(ctx context.Context, ids []string) (DeletionPreview, error) {
	rows, res, err := s.snapshot(ctx)
	if err != nil {
		return DeletionPreview{}, err
	}
	plan := ledger.PlanDeletionFromRows(rows, ids)
	return DeletionPreview{
		Version:   res.Version,
		Ranges:    plan.Ranges,
		Rows:      plan.Rows(),
		Missing:   plan.Missing,
		Ambiguous: plan.Ambiguous,
	}, nil
}

// DeleteEntries removes the row carrying each of ids. Ids stored on more
// than one row are reported as ambiguous and left alone. A non-empty
// expectedVersion must match the fresh snapshot or ErrStaleSnapshot is
// returned and nothing is written.
func (s *LedgerService) DeleteEntries(ctx context.Context, ids []string, expectedVersion string) (DeleteResult, error) {
	if len(ids) == 0 {
		return DeleteResult{}, ErrNoIDs
	}
	rows, res, err := s.snapshot(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := checkVersion(res.Version, expectedVersion); err != nil {
		return DeleteResult{}, err
	}
	return s.apply(ctx, res.Version, ledger.PlanDeletionFromRows(rows, ids), "")
}

// DeleteGroup removes every member of an installment plan. An id of a
// standalone entry deletes that entry.
func (s *LedgerService) DeleteGroup(ctx context.Context, groupID, expectedVersion string) (DeleteResult, error) {
	if groupID == "" {
		return DeleteResult{}, ErrNoIDs
	}
	rows, res, err := s.snapshot(ctx)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := checkVersion(res.Version, expectedVersion); err != nil {
		return DeleteResult{}, err
	}
	return s.apply(ctx, res.Version, ledger.PlanGroupDeletion(rows, groupID), groupID)
}

func checkVersion(current, expected string) error {
	if expected != "" && expected != current {
		return fmt.Errorf("%w: have %s, want %s", ErrStaleSnapshot, current, expected)
	}
	return nil
}

func (s *LedgerService) apply(ctx context.Context, version string, plan ledger.DeletionPlan, groupID string) (DeleteResult, error) {
	result := DeleteResult{
		Version:   version,
		Ranges:    plan.Ranges,
		Missing:   plan.Missing,
		Ambiguous: plan.Ambiguous,
	}
	fields := log.NewFields().
		WithOperation(log.OpDelete).
		WithDeletion(version, len(plan.Ranges), plan.Rows(), plan.Missing).
		WithAmbiguous(plan.Ambiguous)

	if plan.Empty() {
		result.NoOp = true
		s.logger.InfoContext(ctx, "Nothing to delete", fields.ToSlice()...)
		return result, nil
	}
	if err := s.store.DeleteRanges(ctx, plan.Ranges); err != nil {
		s.logger.ErrorContext(ctx, "Delete failed", fields.WithError(err).ToSlice()...)
		return DeleteResult{}, fmt.Errorf("delete rows: %w", err)
	}
	result.Deleted = plan.Rows()
	s.logger.InfoContext(ctx, "Rows deleted", fields.ToSlice()...)

	event := amqp.NewLedgerEvent(amqp.EventEntriesDeleted)
	event.GroupID = groupID
	event.Version = version
	s.publish(ctx, event)
	return result, nil
}

// Registry lists known projects and categories.
func (s *LedgerService) Registry(ctx context.Context) ([]core.RegistryEntry, error) {
	if s.registry == nil {
		return nil, ErrNoRegistry
	}
	if s.cache != nil {
		if entries, ok := s.cache.Get(registryCacheKey); ok {
			return entries, nil
		}
	}
	entries, err := s.registry.ListRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(registryCacheKey, entries)
	}
	return entries, nil
}

// AddRegistry registers a project or category. Duplicates, compared
// without regard to case, fail with core.ErrDuplicateRegistryEntry.
func (s *LedgerService) AddRegistry(ctx context.Context, e core.RegistryEntry) error {
	if s.registry == nil {
		return ErrNoRegistry
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.registry.AddRegistry(ctx, e); err != nil {
		if errors.Is(err, core.ErrDuplicateRegistryEntry) {
			return err
		}
		return fmt.Errorf("add registry entry: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(registryCacheKey)
	}
	s.logger.InfoContext(ctx, "Registry entry added",
		log.FieldOperation, log.OpRegister,
		"kind", e.Kind,
		"name", e.Name)
	return nil
}

// publish never fails the caller; the ledger write already happened.
func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			"type", event.Type,
			log.FieldError, err)
	}
}
