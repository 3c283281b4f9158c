package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

var hundred = decimal.NewFromInt(100)

type dimensionKey struct {
	year     int
	month    string
	project  string
	category string
}

func groupDimensions(g core.BudgetGroup) dimensionKey {
	return dimensionKey{year: g.Year, month: g.MonthLabel, project: g.Project, category: g.Category}
}

func itemDimensions(it core.LineItem) dimensionKey {
	return dimensionKey{year: it.Year, month: it.MonthLabel, project: it.Project, category: it.Category}
}

// Reconcile allocates every Actual item to at most one budget group and
// computes one consumption record per group, in the order groups are given.
//
// An item with a linked budget id counts only toward that group; a link to
// a group that does not exist is orphaned spend and counts nowhere. Unlinked
// items fall back to the group sharing their year, month, project and
// category, choosing the largest budgeted total when several share the key
// (ties go to the smallest group id). Unlinked items with no such group
// each produce an ActualWithoutBudget alert. Every overrun record produces
// an Overrun alert.
func Reconcile(items []core.LineItem, groups []core.BudgetGroup) ([]core.ConsumptionRecord, []core.Alert) {
	known := make(map[string]bool, len(groups))
	candidates := make(map[dimensionKey]core.BudgetGroup)
	for _, g := range groups {
		known[g.ID] = true
		if g.Year == 0 || g.MonthLabel == "" {
			continue
		}
		key := groupDimensions(g)
		best, ok := candidates[key]
		if !ok || betterCandidate(g, best) {
			candidates[key] = g
		}
	}

	linked := make(map[string]decimal.Decimal)
	fallback := make(map[string]decimal.Decimal)
	var unmatched []core.Alert
	for _, it := range items {
		if it.Kind != core.KindActual {
			continue
		}
		if it.LinkedBudgetID != "" {
			if known[it.LinkedBudgetID] {
				linked[it.LinkedBudgetID] = linked[it.LinkedBudgetID].Add(it.Amount)
			}
			continue
		}
		if !it.Invalid() {
			if g, ok := candidates[itemDimensions(it)]; ok {
				fallback[g.ID] = fallback[g.ID].Add(it.Amount)
				continue
			}
		}
		unmatched = append(unmatched, core.Alert{
			Kind:    core.AlertActualWithoutBudget,
			Message: withoutBudgetMessage(it),
			ItemID:  it.ID,
			Amount:  it.Amount,
		})
	}

	records := make([]core.ConsumptionRecord, 0, len(groups))
	var alerts []core.Alert
	for _, g := range groups {
		rec := consumption(g, linked[g.ID], fallback[g.ID])
		records = append(records, rec)
		if rec.Status == core.StatusOverrun {
			alerts = append(alerts, core.Alert{
				Kind:    core.AlertOverrun,
				Message: overrunMessage(g, rec),
				GroupID: g.ID,
				Amount:  rec.Balance.Neg(),
			})
		}
	}
	return records, append(alerts, unmatched...)
}

func betterCandidate(g, best core.BudgetGroup) bool {
	if c := g.BudgetedTotal.Cmp(best.BudgetedTotal); c != 0 {
		return c > 0
	}
	return g.ID < best.ID
}

func consumption(g core.BudgetGroup, linked, fallback decimal.Decimal) core.ConsumptionRecord {
	actual := linked.Add(fallback)
	balance := g.BudgetedTotal.Sub(actual)
	usage := decimal.Zero
	if !g.BudgetedTotal.IsZero() {
		usage = actual.Mul(hundred).DivRound(g.BudgetedTotal, 2)
	}
	status := core.StatusOK
	if balance.IsNegative() {
		status = core.StatusOverrun
	}
	return core.ConsumptionRecord{
		GroupID:          g.ID,
		Budgeted:         g.BudgetedTotal,
		VinculatedActual: linked,
		FallbackActual:   fallback,
		ActualTotal:      actual,
		Balance:          balance,
		UsagePercent:     usage,
		Status:           status,
	}
}

func overrunMessage(g core.BudgetGroup, rec core.ConsumptionRecord) string {
	return fmt.Sprintf("budget %s (%s / %s, %s %d) overrun by %s: budgeted %s, actual %s",
		g.ID, g.Project, g.Category, g.MonthLabel, g.Year,
		rec.Balance.Neg().StringFixed(2), rec.Budgeted.StringFixed(2), rec.ActualTotal.StringFixed(2))
}

func withoutBudgetMessage(it core.LineItem) string {
	return fmt.Sprintf("actual %s of %s has no budget for %s / %s in %s %d",
		it.ID, it.Amount.StringFixed(2), it.Project, it.Category, it.MonthLabel, it.Year)
}
