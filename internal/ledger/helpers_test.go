package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sequence returns an id generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func budget(id, group string, year int, month, project, category, amount string) core.LineItem {
	return core.LineItem{
		ID: id, GroupID: group, Kind: core.KindBudgeted,
		Year: year, MonthLabel: month, Project: project, Category: category,
		Amount: dec(amount),
	}
}

func actual(id, link string, year int, month, project, category, amount string) core.LineItem {
	return core.LineItem{
		ID: id, Kind: core.KindActual, LinkedBudgetID: link,
		Year: year, MonthLabel: month, Project: project, Category: category,
		Amount: dec(amount),
	}
}

func renderRecords(recs []core.ConsumptionRecord) string {
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "%s b=%s v=%s f=%s a=%s bal=%s u=%s %s\n",
			r.GroupID, r.Budgeted.String(), r.VinculatedActual.String(), r.FallbackActual.String(),
			r.ActualTotal.String(), r.Balance.String(), r.UsagePercent.String(), r.Status)
	}
	return b.String()
}

func renderItems(items []core.LineItem) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "%s|%s|%s|%d|%s|%s|%s|%s|%s|%v\n",
			it.ID, it.GroupID, it.Kind, it.Year, it.MonthLabel, it.Project, it.Category,
			it.Amount.String(), it.LinkedBudgetID, it.Issues)
	}
	return b.String()
}
