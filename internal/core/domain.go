package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindUnknown  Kind = ""
	KindBudgeted Kind = "budgeted"
	KindActual   Kind = "actual"
)

const (
	StatusOK      Status = "ok"
	StatusOverrun Status = "overrun"
)

const (
	AlertOverrun             AlertKind = "overrun"
	AlertActualWithoutBudget AlertKind = "actual_without_budget"
)

const (
	RegistryProject  RegistryKind = "Projeto"
	RegistryCategory RegistryKind = "Categoria"
)

// Issues recorded by the normalizer. Only period and kind problems make a
// line item invalid; the rest are warnings the caller may surface.
const (
	IssueAssignedID       Issue = "assigned_id"
	IssueDuplicateID      Issue = "duplicate_id"
	IssueInvalidPeriod    Issue = "invalid_period"
	IssueUnknownKind      Issue = "unknown_kind"
	IssueMissingAmount    Issue = "missing_amount"
	IssueUnparsableAmount Issue = "unparsable_amount"
	IssueAmbiguousAmount  Issue = "ambiguous_amount"
	IssueNegativeAmount   Issue = "negative_amount"
)

type (
	Kind         string
	Status       string
	AlertKind    string
	RegistryKind string
	Issue        string

	Date struct {
		time.Time
	}

	// RawRow is one physical ledger row exactly as the store holds it.
	// Position is the 1-based row number in the store's current snapshot;
	// row 1 is the header, so data rows start at 2.
	RawRow struct {
		Position       int    `json:"position" yaml:"-"`
		Date           string `json:"date" yaml:"date"`
		Year           string `json:"year" yaml:"year"`
		Month          string `json:"month" yaml:"month"`
		Kind           string `json:"kind" yaml:"kind"`
		Project        string `json:"project" yaml:"project"`
		Category       string `json:"category" yaml:"category"`
		Amount         string `json:"amount" yaml:"amount"`
		Description    string `json:"description" yaml:"description"`
		Installment    string `json:"installment" yaml:"installment"`
		Settled        string `json:"settled" yaml:"settled"`
		Involved       string `json:"involved" yaml:"involved"`
		Notes          string `json:"notes" yaml:"notes"`
		ID             string `json:"id" yaml:"id"`
		GroupID        string `json:"group_id" yaml:"group_id"`
		LinkedBudgetID string `json:"linked_budget_id" yaml:"linked_budget_id"`
	}

	LineItem struct {
		ID               string          `json:"id"`
		GroupID          string          `json:"group_id,omitempty"`
		Kind             Kind            `json:"kind"`
		Year             int             `json:"year"`
		MonthLabel       string          `json:"month_label"`
		Date             Date            `json:"date"`
		Project          string          `json:"project"`
		Category         string          `json:"category"`
		Amount           decimal.Decimal `json:"amount"`
		LinkedBudgetID   string          `json:"linked_budget_id,omitempty"`
		InstallmentIndex int             `json:"installment_index,omitempty"`
		InstallmentTotal int             `json:"installment_total,omitempty"`
		Description      string          `json:"description,omitempty"`
		Involved         string          `json:"involved,omitempty"`
		Notes            string          `json:"notes,omitempty"`
		Settled          bool            `json:"settled"`
		Position         int             `json:"position"`
		Issues           []Issue         `json:"issues,omitempty"`
	}

	BudgetGroup struct {
		ID            string          `json:"id"`
		Year          int             `json:"year"`
		MonthLabel    string          `json:"month_label"`
		Project       string          `json:"project"`
		Category      string          `json:"category"`
		BudgetedTotal decimal.Decimal `json:"budgeted_total"`
		Members       int             `json:"members"`
	}

	ConsumptionRecord struct {
		GroupID          string          `json:"group_id"`
		Budgeted         decimal.Decimal `json:"budgeted"`
		VinculatedActual decimal.Decimal `json:"vinculated_actual"`
		FallbackActual   decimal.Decimal `json:"fallback_actual"`
		ActualTotal      decimal.Decimal `json:"actual_total"`
		Balance          decimal.Decimal `json:"balance"`
		UsagePercent     decimal.Decimal `json:"usage_percent"`
		Status           Status          `json:"status"`
	}

	Alert struct {
		Kind    AlertKind       `json:"kind"`
		Message string          `json:"message"`
		GroupID string          `json:"group_id,omitempty"`
		ItemID  string          `json:"item_id,omitempty"`
		Amount  decimal.Decimal `json:"amount"`
	}

	// Range is an inclusive span of 1-based physical row positions.
	Range struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}

	RegistryEntry struct {
		Kind RegistryKind `json:"kind" yaml:"kind"`
		Name string       `json:"name" yaml:"name"`
	}
)

var (
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidKind            = errors.New("invalid kind")
	ErrInvalidInstallments    = errors.New("installment count out of range")
	ErrEmptyProject           = errors.New("empty project")
	ErrEmptyCategory          = errors.New("empty category")
	ErrEmptyRegistryName      = errors.New("empty registry name")
	ErrInvalidRegistryKind    = errors.New("invalid registry kind")
	ErrDuplicateRegistryEntry = errors.New("registry entry already exists")
)

func (k Kind) Valid() bool {
	return k == KindBudgeted || k == KindActual
}

// Blocking reports whether the issue makes a line item invalid.
func (i Issue) Blocking() bool {
	return i == IssueInvalidPeriod || i == IssueUnknownKind
}

// Invalid reports whether the item could not be given a usable period or kind.
func (li LineItem) Invalid() bool {
	for _, is := range li.Issues {
		if is.Blocking() {
			return true
		}
	}
	return false
}

// HasIssue reports whether the normalizer recorded the given issue.
func (li LineItem) HasIssue(issue Issue) bool {
	for _, is := range li.Issues {
		if is == issue {
			return true
		}
	}
	return false
}

// GroupKey returns the group id, falling back to the item's own id for
// standalone entries.
func (li LineItem) GroupKey() string {
	if li.GroupID != "" {
		return li.GroupID
	}
	return li.ID
}

func (r Range) Len() int {
	return r.End - r.Start + 1
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MarshalText renders the date as YYYY-MM-DD, or empty when unset.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.Format("2006-01-02")), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}

func (e RegistryEntry) Validate() error {
	if e.Kind != RegistryProject && e.Kind != RegistryCategory {
		return ErrInvalidRegistryKind
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyRegistryName
	}
	return nil
}

// SameAs compares registry entries the way duplicates are detected:
// case-insensitive and ignoring surrounding whitespace.
func (e RegistryEntry) SameAs(o RegistryEntry) bool {
	return strings.EqualFold(strings.TrimSpace(string(e.Kind)), strings.TrimSpace(string(o.Kind))) &&
		strings.EqualFold(strings.TrimSpace(e.Name), strings.TrimSpace(o.Name))
}
