package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"orcamento/internal/core"
	"orcamento/internal/sheets"

	_ "modernc.org/sqlite"
)

// positioned numbers rows the way a sheet would: first data row is 2.
const positioned = `SELECT seq, ROW_NUMBER() OVER (ORDER BY seq) + 1 AS pos FROM ledger_rows`

const ledgerColumns = `date, year, month, kind, project, category, amount, description,
	installment, settled, involved, notes, row_id, group_id, linked_budget_id`

// SQLiteRepository stores the ledger in a table whose rows are addressed by
// insertion order, so it can stand in for the spreadsheet.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ sheets.LedgerStore   = (*SQLiteRepository)(nil)
	_ sheets.IDBackfiller  = (*SQLiteRepository)(nil)
	_ sheets.RegistryStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; deletes run in a transaction
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite ledger ready", "db_path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FetchAll implements sheets.LedgerStore
func (r *SQLiteRepository) FetchAll(ctx context.Context) ([]core.RawRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ledgerColumns+`,
		ROW_NUMBER() OVER (ORDER BY seq) + 1 AS pos
		FROM ledger_rows ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var out []core.RawRow
	for rows.Next() {
		var row core.RawRow
		if err := rows.Scan(
			&row.Date, &row.Year, &row.Month, &row.Kind, &row.Project, &row.Category,
			&row.Amount, &row.Description, &row.Installment, &row.Settled, &row.Involved,
			&row.Notes, &row.ID, &row.GroupID, &row.LinkedBudgetID, &row.Position,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return out, nil
}

// Append implements sheets.LedgerStore
func (r *SQLiteRepository) Append(ctx context.Context, rows []core.RawRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO ledger_rows (`+ledgerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.Date, row.Year, row.Month, row.Kind, row.Project, row.Category,
				row.Amount, row.Description, row.Installment, row.Settled, row.Involved,
				row.Notes, row.ID, row.GroupID, row.LinkedBudgetID,
			); err != nil {
				return fmt.Errorf("insert ledger row %q: %w", row.ID, err)
			}
		}
		slog.InfoContext(ctx, "Ledger rows appended", "count", len(rows))
		return nil
	})
}

// DeleteRanges implements sheets.LedgerStore. Ranges are applied in order
// inside one transaction; positions are recomputed before each range.
func (r *SQLiteRepository) DeleteRanges(ctx context.Context, ranges []core.Range) error {
	if len(ranges) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		deleted := 0
		for _, rg := range ranges {
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_rows`).Scan(&n); err != nil {
				return fmt.Errorf("count ledger rows: %w", err)
			}
			if err := sheets.CheckRange(rg, n); err != nil {
				return fmt.Errorf("delete rows %d-%d: %w", rg.Start, rg.End, err)
			}
			res, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows WHERE seq IN (
				SELECT seq FROM (`+positioned+`) WHERE pos BETWEEN ? AND ?)`, rg.Start, rg.End)
			if err != nil {
				return fmt.Errorf("delete rows %d-%d: %w", rg.Start, rg.End, err)
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
		slog.InfoContext(ctx, "Ledger rows deleted", "ranges", len(ranges), "rows", deleted)
		return nil
	})
}

// BackfillIDs implements sheets.IDBackfiller
func (r *SQLiteRepository) BackfillIDs(ctx context.Context, ids map[int]string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_rows`).Scan(&n); err != nil {
			return fmt.Errorf("count ledger rows: %w", err)
		}
		for pos, id := range ids {
			if err := sheets.CheckRange(core.Range{Start: pos, End: pos}, n); err != nil {
				return fmt.Errorf("backfill row %d: %w", pos, err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE ledger_rows SET row_id = ?
				WHERE row_id = '' AND seq = (SELECT seq FROM (`+positioned+`) WHERE pos = ?)`, id, pos); err != nil {
				return fmt.Errorf("backfill row %d: %w", pos, err)
			}
		}
		return nil
	})
}

// ListRegistry implements sheets.RegistryStore
func (r *SQLiteRepository) ListRegistry(ctx context.Context) ([]core.RegistryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, name FROM registry ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query registry: %w", err)
	}
	defer rows.Close()

	var out []core.RegistryEntry
	for rows.Next() {
		var e core.RegistryEntry
		if err := rows.Scan(&e.Kind, &e.Name); err != nil {
			return nil, fmt.Errorf("scan registry entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddRegistry implements sheets.RegistryStore
func (r *SQLiteRepository) AddRegistry(ctx context.Context, e core.RegistryEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	existing, err := r.ListRegistry(ctx)
	if err != nil {
		return err
	}
	for _, have := range existing {
		if have.SameAs(e) {
			return core.ErrDuplicateRegistryEntry
		}
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO registry (kind, name) VALUES (?, ?)`,
		string(e.Kind), strings.TrimSpace(e.Name)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return core.ErrDuplicateRegistryEntry
		}
		return fmt.Errorf("insert registry entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
