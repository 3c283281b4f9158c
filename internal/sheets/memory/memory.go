package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"orcamento/internal/core"
	"orcamento/internal/sheets"
)

// Seed is the layout of the YAML seed file.
type Seed struct {
	Rows     []core.RawRow        `yaml:"rows"`
	Registry []core.RegistryEntry `yaml:"registry"`
}

var defaultRegistry = []core.RegistryEntry{
	{Kind: core.RegistryProject, Name: "Casa"},
	{Kind: core.RegistryCategory, Name: "Alimentação"},
	{Kind: core.RegistryCategory, Name: "Transporte"},
}

// Store is an in-process ledger that behaves like a sheet: rows are
// addressed by position and shift up when rows above them are deleted.
type Store struct {
	mu       sync.Mutex
	rows     []core.RawRow
	registry []core.RegistryEntry
}

func New(rows []core.RawRow, registry []core.RegistryEntry) *Store {
	s := &Store{}
	for _, r := range rows {
		r.Position = 0
		s.rows = append(s.rows, r)
	}
	for _, e := range registry {
		if e.Validate() != nil || s.hasEntry(e) {
			continue
		}
		s.registry = append(s.registry, e)
	}
	return s
}

// NewFromFile loads a YAML seed. An empty path or a missing file yields an
// empty ledger with a default registry.
func NewFromFile(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return New(nil, defaultRegistry), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(nil, defaultRegistry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if len(seed.Registry) == 0 {
		seed.Registry = defaultRegistry
	}
	return New(seed.Rows, seed.Registry), nil
}

// FetchAll returns a copy of the ledger with positions assigned.
func (s *Store) FetchAll(_ context.Context) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RawRow, len(s.rows))
	for i, r := range s.rows {
		r.Position = i + sheets.HeaderRows + 1
		out[i] = r
	}
	return out, nil
}

// Append adds rows at the bottom of the ledger.
func (s *Store) Append(_ context.Context, rows []core.RawRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		r.Position = 0
		s.rows = append(s.rows, r)
	}
	return nil
}

// DeleteRanges removes the ranges one after another. Either every range
// applies or none does.
func (s *Store) DeleteRanges(_ context.Context, ranges []core.Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]core.RawRow(nil), s.rows...)
	for _, r := range ranges {
		if err := sheets.CheckRange(r, len(rows)); err != nil {
			return fmt.Errorf("delete rows %d-%d: %w", r.Start, r.End, err)
		}
		lo, hi := r.Start-sheets.HeaderRows-1, r.End-sheets.HeaderRows
		rows = append(rows[:lo], rows[hi:]...)
	}
	s.rows = rows
	return nil
}

// BackfillIDs sets the id of rows that still have none. Rows that already
// carry an id are left alone.
func (s *Store) BackfillIDs(_ context.Context, ids map[int]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pos, id := range ids {
		i := pos - sheets.HeaderRows - 1
		if i < 0 || i >= len(s.rows) {
			return fmt.Errorf("backfill row %d: %w", pos, sheets.ErrRangeOutOfBounds)
		}
		if strings.TrimSpace(s.rows[i].ID) == "" {
			s.rows[i].ID = id
		}
	}
	return nil
}

// ListRegistry returns projects and categories in insertion order.
func (s *Store) ListRegistry(_ context.Context) ([]core.RegistryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RegistryEntry(nil), s.registry...), nil
}

// AddRegistry appends a registry entry unless an equivalent one exists.
func (s *Store) AddRegistry(_ context.Context, e core.RegistryEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasEntry(e) {
		return core.ErrDuplicateRegistryEntry
	}
	e.Name = strings.TrimSpace(e.Name)
	s.registry = append(s.registry, e)
	return nil
}

func (s *Store) hasEntry(e core.RegistryEntry) bool {
	for _, have := range s.registry {
		if have.SameAs(e) {
			return true
		}
	}
	return false
}
