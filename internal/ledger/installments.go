package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

const (
	rowDateLayout   = "02/01/2006"
	notSettled      = "Não"
	maxInstallments = 360
)

// EntryRequest describes a new ledger entry, possibly split into monthly
// installments. Amount is the value of each installment.
type EntryRequest struct {
	Start          core.Date       `json:"start"`
	Kind           core.Kind       `json:"kind"`
	Project        string          `json:"project"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Installments   int             `json:"installments"`
	Description    string          `json:"description"`
	Involved       string          `json:"involved"`
	Notes          string          `json:"notes"`
	LinkedBudgetID string          `json:"linked_budget_id"`
}

func (r EntryRequest) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return err
	}
	if !r.Kind.Valid() {
		return core.ErrInvalidKind
	}
	if collapse(r.Project) == "" {
		return core.ErrEmptyProject
	}
	if collapse(r.Category) == "" {
		return core.ErrEmptyCategory
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", core.ErrInvalidAmount)
	}
	if r.Installments < 1 || r.Installments > maxInstallments {
		return core.ErrInvalidInstallments
	}
	if r.Kind != core.KindActual && strings.TrimSpace(r.LinkedBudgetID) != "" {
		return fmt.Errorf("%w: only actual entries may link to a budget", core.ErrInvalidKind)
	}
	return nil
}

// BuildInstallments expands a request into one row per installment. Rows are
// dated one month apart from the start date, with the day clamped to the end
// of shorter months, and share a fresh group id. newID may be nil.
func BuildInstallments(req EntryRequest, newID func() string) ([]core.RawRow, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if newID == nil {
		newID = uuid.NewString
	}
	group := newID()
	link := ""
	if req.Kind == core.KindActual {
		link = strings.TrimSpace(req.LinkedBudgetID)
	}
	rows := make([]core.RawRow, 0, req.Installments)
	for i := 0; i < req.Installments; i++ {
		d := addMonthsClamped(req.Start.Time, i)
		rows = append(rows, core.RawRow{
			Date:           d.Format(rowDateLayout),
			Year:           strconv.Itoa(d.Year()),
			Month:          MonthLabel(int(d.Month())),
			Kind:           KindLabel(req.Kind),
			Project:        collapse(req.Project),
			Category:       collapse(req.Category),
			Amount:         core.FormatAmount(req.Amount),
			Description:    collapse(req.Description),
			Installment:    fmt.Sprintf("%d de %d", i+1, req.Installments),
			Settled:        notSettled,
			Involved:       collapse(req.Involved),
			Notes:          collapse(req.Notes),
			ID:             newID(),
			GroupID:        group,
			LinkedBudgetID: link,
		})
	}
	return rows, nil
}

// addMonthsClamped moves t forward by n calendar months keeping the day of
// month when it exists, otherwise using the last day (31/01 + 1 -> 29/02).
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
