package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"orcamento/internal/core"
)

// Result is one reconciliation pass over a snapshot. Version identifies the
// snapshot content so a caller can detect that the store changed before it
// acts on positions derived from it.
type Result struct {
	LineItems    []core.LineItem          `json:"line_items"`
	BudgetGroups []core.BudgetGroup       `json:"budget_groups"`
	Consumption  []core.ConsumptionRecord `json:"consumption"`
	Alerts       []core.Alert             `json:"alerts"`
	Invalid      []core.LineItem          `json:"invalid"`
	Version      string                   `json:"version"`
}

// Engine runs the full pipeline with a configurable normalizer.
type Engine struct {
	Normalizer Normalizer
}

// LoadAndReconcile normalizes rows, builds budget groups and reconciles
// actuals against them. An empty snapshot yields an empty result.
func (e Engine) LoadAndReconcile(rows []core.RawRow) Result {
	items := e.Normalizer.Normalize(rows)
	groups := BuildGroups(items)
	records, alerts := Reconcile(items, groups)

	res := Result{
		LineItems:    items,
		BudgetGroups: groups,
		Consumption:  records,
		Alerts:       alerts,
		Version:      SnapshotVersion(rows),
	}
	for _, it := range items {
		if it.Invalid() {
			res.Invalid = append(res.Invalid, it)
		}
	}
	return res
}

// LoadAndReconcile runs the default Engine.
func LoadAndReconcile(rows []core.RawRow) Result {
	return Engine{}.LoadAndReconcile(rows)
}

// AssignedIDs returns position -> id for every item whose id was generated
// during normalization rather than read from the row.
func (r Result) AssignedIDs() map[int]string {
	out := make(map[int]string)
	for _, it := range r.LineItems {
		if it.HasIssue(core.IssueAssignedID) && it.Position > 0 {
			out[it.Position] = it.ID
		}
	}
	return out
}

// Filter narrows r to the line items matching f. Budget groups and their
// consumption records are kept when the group's period and dimensions match;
// kind does not apply to them. An alert is kept when its item or group is.
// Version is carried over unchanged.
func (r Result) Filter(f Filter) Result {
	if f.IsZero() {
		return r
	}
	m := newMatcher(f)
	out := Result{
		LineItems:    []core.LineItem{},
		BudgetGroups: []core.BudgetGroup{},
		Consumption:  []core.ConsumptionRecord{},
		Alerts:       []core.Alert{},
		Version:      r.Version,
	}
	items := make(map[string]bool)
	for _, it := range r.LineItems {
		if m.match(it) {
			items[it.ID] = true
			out.LineItems = append(out.LineItems, it)
		}
	}
	for _, it := range r.Invalid {
		if items[it.ID] {
			out.Invalid = append(out.Invalid, it)
		}
	}
	groups := make(map[string]bool)
	for _, g := range r.BudgetGroups {
		if m.matchGroup(g) {
			groups[g.ID] = true
			out.BudgetGroups = append(out.BudgetGroups, g)
		}
	}
	for _, rec := range r.Consumption {
		if groups[rec.GroupID] {
			out.Consumption = append(out.Consumption, rec)
		}
	}
	for _, a := range r.Alerts {
		if (a.ItemID != "" && items[a.ItemID]) || (a.GroupID != "" && groups[a.GroupID]) {
			out.Alerts = append(out.Alerts, a)
		}
	}
	return out
}

// SnapshotVersion hashes the rows including their positions. Two snapshots
// share a version only if every row sits at the same position with the same
// content.
func SnapshotVersion(rows []core.RawRow) string {
	h := sha256.New()
	for _, r := range rows {
		for _, f := range []string{
			strconv.Itoa(r.Position), r.Date, r.Year, r.Month, r.Kind, r.Project,
			r.Category, r.Amount, r.Description, r.Installment, r.Settled,
			r.Involved, r.Notes, r.ID, r.GroupID, r.LinkedBudgetID,
		} {
			h.Write([]byte(f))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}
