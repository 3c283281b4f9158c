package ledger

import (
	"sort"
	"strings"

	"orcamento/internal/core"
)

// DeletionPlan is the ordered set of row ranges to delete, bottom-up.
// Missing lists requested ids that the snapshot did not contain. Ambiguous
// lists requested ids stored on more than one row; those rows are kept.
type DeletionPlan struct {
	Ranges    []core.Range `json:"ranges"`
	Missing   []string     `json:"missing,omitempty"`
	Ambiguous []string     `json:"ambiguous,omitempty"`
}

// Empty reports whether no requested id resolved to a row.
func (p DeletionPlan) Empty() bool {
	return len(p.Ranges) == 0
}

// Rows returns the number of physical rows the plan deletes.
func (p DeletionPlan) Rows() int {
	n := 0
	for _, r := range p.Ranges {
		n += r.Len()
	}
	return n
}

// PlanDeletion resolves ids against a position lookup taken from the current
// snapshot and merges the resolved positions into contiguous ranges ordered
// descending by start. Applying the ranges in order never shifts a range
// that has not been applied yet.
func PlanDeletion(positions map[string]int, ids []string) DeletionPlan {
	var plan DeletionPlan
	var resolved []int
	for _, id := range uniqueIDs(ids) {
		pos, ok := positions[id]
		if !ok || pos < 1 {
			plan.Missing = append(plan.Missing, id)
			continue
		}
		resolved = append(resolved, pos)
	}
	plan.Ranges = mergeDescending(resolved)
	return plan
}

// PlanDeletionFromRows plans against rows as fetched from the store. An id
// found on exactly one row deletes that row. An id repeated across rows is
// reported as ambiguous and none of its copies are touched.
func PlanDeletionFromRows(rows []core.RawRow, ids []string) DeletionPlan {
	wanted := uniqueIDs(ids)
	found := make(map[string][]int, len(wanted))
	for _, id := range wanted {
		found[id] = nil
	}
	for _, r := range rows {
		id := strings.TrimSpace(r.ID)
		if _, ok := found[id]; !ok || r.Position < 1 {
			continue
		}
		found[id] = append(found[id], r.Position)
	}
	var plan DeletionPlan
	var resolved []int
	for _, id := range wanted {
		switch positions := found[id]; len(positions) {
		case 0:
			plan.Missing = append(plan.Missing, id)
		case 1:
			resolved = append(resolved, positions[0])
		default:
			plan.Ambiguous = append(plan.Ambiguous, id)
		}
	}
	plan.Ranges = mergeDescending(resolved)
	return plan
}

// PlanGroupDeletion plans the removal of a whole group: every row whose group
// key is groupID, plus the standalone row whose own id is groupID. That
// standalone row is only included when its id is unique in rows.
func PlanGroupDeletion(rows []core.RawRow, groupID string) DeletionPlan {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return DeletionPlan{}
	}
	var resolved, heads []int
	for _, r := range rows {
		if r.Position < 1 {
			continue
		}
		g := strings.TrimSpace(r.GroupID)
		switch {
		case g == groupID:
			resolved = append(resolved, r.Position)
		case strings.TrimSpace(r.ID) == groupID:
			heads = append(heads, r.Position)
		}
	}
	var plan DeletionPlan
	switch {
	case len(heads) > 1:
		plan.Ambiguous = []string{groupID}
	case len(heads) == 1:
		resolved = append(resolved, heads[0])
	case len(resolved) == 0:
		plan.Missing = []string{groupID}
	}
	plan.Ranges = mergeDescending(resolved)
	return plan
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func mergeDescending(positions []int) []core.Range {
	if len(positions) == 0 {
		return nil
	}
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	var ranges []core.Range
	cur := core.Range{Start: sorted[0], End: sorted[0]}
	for _, p := range sorted[1:] {
		switch {
		case p == cur.End:
		case p == cur.End+1:
			cur.End = p
		default:
			ranges = append(ranges, cur)
			cur = core.Range{Start: p, End: p}
		}
	}
	ranges = append(ranges, cur)
	for i, j := 0, len(ranges)-1; i < j; i, j = i+1, j-1 {
		ranges[i], ranges[j] = ranges[j], ranges[i]
	}
	return ranges
}
