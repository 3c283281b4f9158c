package backend

import (
	"context"

	"orcamento/internal/sheets"
)

// Store is what every backend provides: the ledger and the registry.
type Store interface {
	sheets.LedgerStore
	sheets.RegistryStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store, an optional readiness check and an optional
// cleanup function.
type Result struct {
	Store   Store
	Ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs the cleanup function when there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Ready reports whether the store answers its ping. Stores without a
// ping are always ready.
func (r *Result) Ready(ctx context.Context) error {
	if r.Ping == nil {
		return nil
	}
	return r.Ping(ctx)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
