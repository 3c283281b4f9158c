// Package ledger turns raw ledger rows into typed line items and derives
// budget groups, consumption records, alerts and deletion plans from them.
//
// Everything here is a pure function of the snapshot it is given: nothing
// fetches, caches or mutates the rows it reads.
package ledger

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

const (
	minYear = 1900
	maxYear = 2999
)

// Date layouts accepted in the Data column, tried in order.
var dateLayouts = []string{"2/1/2006", "2006-01-02", "2/1/06"}

var installmentPattern = regexp.MustCompile(`^(\d+)\s*(?:de|/|of)\s*(\d+)$`)

// Normalizer converts raw rows into line items.
type Normalizer struct {
	// NewID generates ids for rows that lack one. Defaults to a random UUID.
	NewID func() string
}

// Normalize converts rows into line items, one per row, in snapshot order.
// Rows are never dropped: a row without a usable period or kind is emitted
// with a blocking issue attached. Ids are unique across the result.
func (n Normalizer) Normalize(rows []core.RawRow) []core.LineItem {
	newID := n.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	items := make([]core.LineItem, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		item := normalizeRow(r, newID)
		// a copied row repeats a stored id; later copies get their own
		// in-memory id so groups and links resolve to the first one
		if seen[item.ID] && !item.HasIssue(core.IssueAssignedID) {
			item.ID = newID()
			item.Issues = append(item.Issues, core.IssueDuplicateID)
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	return items
}

// Normalize runs the default Normalizer.
func Normalize(rows []core.RawRow) []core.LineItem {
	return Normalizer{}.Normalize(rows)
}

func normalizeRow(r core.RawRow, newID func() string) core.LineItem {
	item := core.LineItem{
		ID:          strings.TrimSpace(r.ID),
		GroupID:     strings.TrimSpace(r.GroupID),
		Project:     collapse(r.Project),
		Category:    collapse(r.Category),
		Description: collapse(r.Description),
		Involved:    collapse(r.Involved),
		Notes:       collapse(r.Notes),
		Settled:     parseSettled(r.Settled),
		Position:    r.Position,
	}
	if item.ID == "" {
		item.ID = newID()
		item.Issues = append(item.Issues, core.IssueAssignedID)
	}

	date, hasDate := parseDate(r.Date)
	if hasDate {
		item.Date = core.Date{Time: date}
	}

	item.Year = parseYear(r.Year)
	if item.Year == 0 && hasDate {
		item.Year = date.Year()
	}

	item.MonthLabel = MonthLabel(MonthNumber(r.Month))
	if item.MonthLabel == "" && hasDate {
		item.MonthLabel = MonthLabel(int(date.Month()))
	}
	if item.Year == 0 || item.MonthLabel == "" {
		item.Issues = append(item.Issues, core.IssueInvalidPeriod)
	}

	item.Kind = ParseKind(r.Kind)
	if !item.Kind.Valid() {
		item.Issues = append(item.Issues, core.IssueUnknownKind)
	}
	if item.Kind == core.KindActual {
		item.LinkedBudgetID = strings.TrimSpace(r.LinkedBudgetID)
	}

	item.Amount, item.Issues = normalizeAmount(r.Amount, item.Issues)
	item.InstallmentIndex, item.InstallmentTotal = parseInstallment(r.Installment)
	return item
}

func normalizeAmount(raw string, issues []core.Issue) (decimal.Decimal, []core.Issue) {
	if strings.TrimSpace(raw) == "" {
		return core.ParseAmount(raw), append(issues, core.IssueMissingAmount)
	}
	d, err := core.ParseAmountStrict(raw)
	if err != nil {
		return core.ParseAmount(raw), append(issues, core.IssueUnparsableAmount)
	}
	if core.IsAmbiguousAmount(raw) {
		issues = append(issues, core.IssueAmbiguousAmount)
	}
	if d.IsNegative() {
		d = d.Abs()
		issues = append(issues, core.IssueNegativeAmount)
	}
	return d, issues
}

func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseYear returns the stored year, or zero when it is absent or implausible.
// Spreadsheet exports sometimes render whole numbers as "2024.0".
func parseYear(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0
		}
		y = int(f)
	}
	if y < minYear || y > maxYear {
		return 0
	}
	return y
}

func parseInstallment(raw string) (index, total int) {
	m := installmentPattern.FindStringSubmatch(fold(raw))
	if m == nil {
		return 0, 0
	}
	index, _ = strconv.Atoi(m[1])
	total, _ = strconv.Atoi(m[2])
	if index < 1 || total < index {
		return 0, 0
	}
	return index, total
}

func parseSettled(raw string) bool {
	switch fold(raw) {
	case "sim", "s", "yes", "y", "true", "x", "1":
		return true
	}
	return false
}
