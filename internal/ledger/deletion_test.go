package ledger

import (
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"orcamento/internal/core"
)

func TestPlanDeletion_MergesAndOrdersDescending(t *testing.T) {
	positions := map[string]int{"a": 4, "b": 5, "c": 6, "d": 10, "e": 12}
	plan := PlanDeletion(positions, []string{"d", "a", "c", "b"})
	want := []core.Range{{Start: 10, End: 10}, {Start: 4, End: 6}}
	if !reflect.DeepEqual(plan.Ranges, want) {
		t.Fatalf("ranges = %v, want %v", plan.Ranges, want)
	}
	if len(plan.Missing) != 0 || plan.Empty() || plan.Rows() != 4 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanDeletion_NoMatchesIsEmpty(t *testing.T) {
	plan := PlanDeletion(map[string]int{"a": 2}, []string{"x", "y", "x", ""})
	if !plan.Empty() {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
	if !reflect.DeepEqual(plan.Missing, []string{"x", "y"}) {
		t.Fatalf("missing = %v, want [x y]", plan.Missing)
	}
	if PlanDeletion(nil, nil).Ranges != nil {
		t.Fatal("nil input should give nil ranges")
	}
}

func TestPlanDeletionFromRows(t *testing.T) {
	rows := []core.RawRow{
		{Position: 2, ID: "a"},
		{Position: 3, ID: "b"},
		{Position: 4, ID: ""},
		{Position: 5, ID: " d "},
		{Position: 6, ID: "c"},
	}
	plan := PlanDeletionFromRows(rows, []string{"a", "c", "d", "zzz"})
	want := []core.Range{{Start: 5, End: 6}, {Start: 2, End: 2}}
	if !reflect.DeepEqual(plan.Ranges, want) {
		t.Fatalf("ranges = %v, want %v", plan.Ranges, want)
	}
	if !reflect.DeepEqual(plan.Missing, []string{"zzz"}) {
		t.Fatalf("missing = %v", plan.Missing)
	}
	if plan.Ambiguous != nil {
		t.Fatalf("ambiguous = %v, want none", plan.Ambiguous)
	}
}

func TestPlanDeletionFromRows_RepeatedIDIsAmbiguous(t *testing.T) {
	rows := []core.RawRow{
		{Position: 2, ID: "dup"},
		{Position: 3, ID: "dup "},
		{Position: 4, ID: "x"},
	}
	plan := PlanDeletionFromRows(rows, []string{"dup", "x"})
	if want := []core.Range{{Start: 4, End: 4}}; !reflect.DeepEqual(plan.Ranges, want) {
		t.Fatalf("ranges = %v, want %v", plan.Ranges, want)
	}
	if !reflect.DeepEqual(plan.Ambiguous, []string{"dup"}) {
		t.Fatalf("ambiguous = %v, want [dup]", plan.Ambiguous)
	}

	only := PlanDeletionFromRows(rows, []string{"dup"})
	if !only.Empty() || only.Rows() != 0 || len(only.Missing) != 0 {
		t.Fatalf("repeated id alone must plan nothing, got %+v", only)
	}
}

func TestPlanGroupDeletion(t *testing.T) {
	rows := []core.RawRow{
		{Position: 2, ID: "1", GroupID: "G"},
		{Position: 3, ID: "2", GroupID: "H"},
		{Position: 4, ID: "3", GroupID: "G"},
		{Position: 5, ID: "G"},
		{Position: 6, ID: "S"},
	}
	tests := []struct {
		name      string
		group     string
		ranges    []core.Range
		missing   []string
		ambiguous []string
	}{
		{"members and head", "G", []core.Range{{Start: 4, End: 5}, {Start: 2, End: 2}}, nil, nil},
		{"standalone entry", "S", []core.Range{{Start: 6, End: 6}}, nil, nil},
		{"members only", "H", []core.Range{{Start: 3, End: 3}}, nil, nil},
		{"unknown", "Z", nil, []string{"Z"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanGroupDeletion(rows, tt.group)
			if !reflect.DeepEqual(plan.Ranges, tt.ranges) {
				t.Fatalf("ranges = %v, want %v", plan.Ranges, tt.ranges)
			}
			if !reflect.DeepEqual(plan.Missing, tt.missing) || !reflect.DeepEqual(plan.Ambiguous, tt.ambiguous) {
				t.Fatalf("unexpected plan %+v", plan)
			}
		})
	}
	if !PlanGroupDeletion(rows, " ").Empty() {
		t.Fatal("blank group id should match nothing")
	}
}

func TestPlanGroupDeletion_RepeatedStandaloneIDIsAmbiguous(t *testing.T) {
	rows := []core.RawRow{
		{Position: 2, ID: "dup"},
		{Position: 3, ID: "dup"},
	}
	plan := PlanGroupDeletion(rows, "dup")
	if !plan.Empty() || !reflect.DeepEqual(plan.Ambiguous, []string{"dup"}) || plan.Missing != nil {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

// applyPlan deletes ranges from a sheet modelled as a slice where index i
// holds the row at position i+2, the way a position-addressed store would.
func applyPlan(sheet []string, ranges []core.Range) []string {
	out := append([]string(nil), sheet...)
	for _, r := range ranges {
		lo, hi := r.Start-2, r.End-2
		out = append(out[:lo], out[hi+1:]...)
	}
	return out
}

func TestPlanDeletion_PermutationsRemoveExactlyRequested(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for n := 0; n < 100; n++ {
		size := 1 + r.Intn(30)
		sheet := make([]string, size)
		rows := make([]core.RawRow, size)
		for i := range sheet {
			sheet[i] = fmt.Sprintf("id-%d", i)
			rows[i] = core.RawRow{Position: i + 2, ID: sheet[i]}
		}
		var ids []string
		doomed := map[string]bool{}
		for _, id := range sheet {
			if r.Intn(3) == 0 {
				ids = append(ids, id)
				doomed[id] = true
			}
		}
		var want []string
		for _, id := range sheet {
			if !doomed[id] {
				want = append(want, id)
			}
		}

		var first []core.Range
		for p := 0; p < 5; p++ {
			r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			plan := PlanDeletionFromRows(rows, ids)
			if p == 0 {
				first = plan.Ranges
			} else if !reflect.DeepEqual(plan.Ranges, first) {
				t.Fatalf("plan depends on id order: %v vs %v", plan.Ranges, first)
			}
			if !sort.SliceIsSorted(plan.Ranges, func(i, j int) bool { return plan.Ranges[i].Start > plan.Ranges[j].Start }) {
				t.Fatalf("ranges not descending: %v", plan.Ranges)
			}
			got := applyPlan(sheet, plan.Ranges)
			if len(got) != len(want) || (len(want) > 0 && !reflect.DeepEqual(got, want)) {
				t.Fatalf("after delete got %v, want %v", got, want)
			}
		}
	}
}
