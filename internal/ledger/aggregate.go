package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

// BuildGroups collects valid Budgeted items into budget groups keyed by
// group id, or by the item's own id when it has none. Dimensions come from
// the first member in snapshot order. The result is sorted by group id.
func BuildGroups(items []core.LineItem) []core.BudgetGroup {
	index := make(map[string]int)
	var groups []core.BudgetGroup
	for _, it := range items {
		if it.Kind != core.KindBudgeted || it.Invalid() {
			continue
		}
		key := it.GroupKey()
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, core.BudgetGroup{
				ID:            key,
				Year:          it.Year,
				MonthLabel:    it.MonthLabel,
				Project:       it.Project,
				Category:      it.Category,
				BudgetedTotal: decimal.Zero,
			})
			i = len(groups) - 1
		}
		groups[i].BudgetedTotal = groups[i].BudgetedTotal.Add(it.Amount)
		groups[i].Members++
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].ID < groups[b].ID })
	return groups
}
