package sheets

import (
	"context"
	"errors"

	"orcamento/internal/core"
)

// ErrRangeOutOfBounds is returned when a delete range does not address
// existing data rows.
var ErrRangeOutOfBounds = errors.New("range out of bounds")

// HeaderRows is the number of rows above the first data row. Positions are
// 1-based, so the first data row is at position HeaderRows+1.
const HeaderRows = 1

// Ports for outbound adapters.
type (
	// LedgerStore is the position-addressed ledger. FetchAll returns a fresh
	// snapshot with Position set on every row; DeleteRanges applies ranges
	// in exactly the order given.
	LedgerStore interface {
		FetchAll(ctx context.Context) ([]core.RawRow, error)
		Append(ctx context.Context, rows []core.RawRow) error
		DeleteRanges(ctx context.Context, ranges []core.Range) error
	}

	// IDBackfiller persists ids that were generated for rows stored without
	// one, keyed by the row's position in the snapshot they came from.
	IDBackfiller interface {
		BackfillIDs(ctx context.Context, ids map[int]string) error
	}

	// RegistryStore holds the known projects and categories.
	RegistryStore interface {
		ListRegistry(ctx context.Context) ([]core.RegistryEntry, error)
		AddRegistry(ctx context.Context, e core.RegistryEntry) error
	}
)

// CheckRange validates a range against a store holding n data rows.
func CheckRange(r core.Range, n int) error {
	if r.Start < HeaderRows+1 || r.End < r.Start || r.End > n+HeaderRows {
		return ErrRangeOutOfBounds
	}
	return nil
}
