package ledger

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

const march = "03 - MARÇO"

func TestBuildGroups(t *testing.T) {
	invalid := budget("b5", "", 0, "", "X", "Y", "7")
	invalid.Issues = []core.Issue{core.IssueInvalidPeriod}
	items := []core.LineItem{
		budget("b1", "G2", 2024, march, "X", "Y", "100"),
		budget("b2", "G2", 2024, "04 - ABRIL", "X", "Y", "100"),
		budget("b3", "", 2024, march, "X", "Z", "40"),
		budget("b4", "G1", 2024, march, "W", "Y", "10"),
		actual("a1", "G2", 2024, march, "X", "Y", "999"),
		invalid,
	}
	groups := BuildGroups(items)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(groups), groups)
	}
	wantIDs := []string{"G1", "G2", "b3"}
	for i, g := range groups {
		if g.ID != wantIDs[i] {
			t.Fatalf("group %d id = %s, want %s", i, g.ID, wantIDs[i])
		}
	}
	g2 := groups[1]
	if !g2.BudgetedTotal.Equal(dec("200")) || g2.Members != 2 {
		t.Fatalf("G2 total=%s members=%d, want 200/2", g2.BudgetedTotal, g2.Members)
	}
	if g2.MonthLabel != march {
		t.Fatalf("dimensions must come from the first member, got %q", g2.MonthLabel)
	}
	if groups[2].Members != 1 || groups[2].Category != "Z" {
		t.Fatalf("standalone item should form its own group: %+v", groups[2])
	}
}

func TestReconcile_Scenario(t *testing.T) {
	items := []core.LineItem{
		budget("b1", "A", 2024, march, "X", "Y", "1000"),
		actual("a1", "A", 2024, march, "X", "Y", "400"),
		actual("a2", "", 2024, march, "X", "Y", "300"),
		actual("a3", "", 2024, march, "Z", "Y", "50"),
	}
	groups := BuildGroups(items)
	records, alerts := Reconcile(items, groups)

	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	r := records[0]
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"vinculated", r.VinculatedActual, "400"},
		{"fallback", r.FallbackActual, "300"},
		{"actual", r.ActualTotal, "700"},
		{"balance", r.Balance, "300"},
		{"usage", r.UsagePercent, "70"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if r.Status != core.StatusOK {
		t.Errorf("status = %s, want ok", r.Status)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %+v", alerts)
	}
	a := alerts[0]
	if a.Kind != core.AlertActualWithoutBudget || a.ItemID != "a3" || !a.Amount.Equal(dec("50")) {
		t.Fatalf("unexpected alert %+v", a)
	}
}

func TestReconcile_FallbackCandidate(t *testing.T) {
	t.Run("largest total wins", func(t *testing.T) {
		items := []core.LineItem{
			budget("b1", "A", 2024, march, "X", "Y", "100"),
			budget("b2", "B", 2024, march, "X", "Y", "500"),
			actual("a1", "", 2024, march, "X", "Y", "30"),
		}
		records, _ := Reconcile(items, BuildGroups(items))
		if !records[0].FallbackActual.IsZero() || !records[1].FallbackActual.Equal(dec("30")) {
			t.Fatalf("fallback should go to B only:\n%s", renderRecords(records))
		}
	})
	t.Run("tie goes to smallest id", func(t *testing.T) {
		items := []core.LineItem{
			budget("b1", "G2", 2024, march, "X", "Y", "100"),
			budget("b2", "G1", 2024, march, "X", "Y", "100"),
			actual("a1", "", 2024, march, "X", "Y", "30"),
		}
		records, _ := Reconcile(items, BuildGroups(items))
		if records[0].GroupID != "G1" || !records[0].FallbackActual.Equal(dec("30")) || !records[1].FallbackActual.IsZero() {
			t.Fatalf("fallback should go to G1 only:\n%s", renderRecords(records))
		}
	})
	t.Run("linked item never falls back", func(t *testing.T) {
		items := []core.LineItem{
			budget("b1", "A", 2024, march, "X", "Y", "100"),
			actual("a1", "missing-group", 2024, march, "X", "Y", "30"),
		}
		records, alerts := Reconcile(items, BuildGroups(items))
		if !records[0].ActualTotal.IsZero() {
			t.Fatalf("orphaned link must not count anywhere:\n%s", renderRecords(records))
		}
		if len(alerts) != 0 {
			t.Fatalf("orphaned link is not flagged, got %+v", alerts)
		}
	})
}

func TestReconcile_OverrunBoundary(t *testing.T) {
	cases := []struct {
		spent  string
		status core.Status
		alerts int
	}{
		{"99.99", core.StatusOK, 0},
		{"100", core.StatusOK, 0},
		{"100.01", core.StatusOverrun, 1},
	}
	for _, tc := range cases {
		items := []core.LineItem{
			budget("b1", "A", 2024, march, "X", "Y", "100"),
			actual("a1", "A", 2024, march, "X", "Y", tc.spent),
		}
		records, alerts := Reconcile(items, BuildGroups(items))
		if records[0].Status != tc.status {
			t.Errorf("spent %s: status %s, want %s", tc.spent, records[0].Status, tc.status)
		}
		if (records[0].Status == core.StatusOverrun) != records[0].Balance.IsNegative() {
			t.Errorf("spent %s: status must be overrun iff balance < 0", tc.spent)
		}
		if len(alerts) != tc.alerts {
			t.Errorf("spent %s: %d alerts, want %d", tc.spent, len(alerts), tc.alerts)
		}
		if tc.alerts == 1 && (alerts[0].Kind != core.AlertOverrun || alerts[0].GroupID != "A" || !alerts[0].Amount.Equal(dec("0.01"))) {
			t.Errorf("unexpected overrun alert %+v", alerts[0])
		}
	}
}

func TestReconcile_ZeroBudget(t *testing.T) {
	items := []core.LineItem{
		budget("b1", "A", 2024, march, "X", "Y", "0"),
		actual("a1", "A", 2024, march, "X", "Y", "10"),
	}
	records, _ := Reconcile(items, BuildGroups(items))
	if !records[0].UsagePercent.IsZero() {
		t.Fatalf("usage must be 0 for a zero budget, got %s", records[0].UsagePercent)
	}
	if records[0].Status != core.StatusOverrun {
		t.Fatalf("expected overrun, got %s", records[0].Status)
	}
}

func TestReconcile_InvalidActualIsReported(t *testing.T) {
	bad := actual("a1", "", 0, "", "X", "Y", "10")
	bad.Issues = []core.Issue{core.IssueInvalidPeriod}
	items := []core.LineItem{budget("b1", "A", 2024, march, "X", "Y", "100"), bad}
	records, alerts := Reconcile(items, BuildGroups(items))
	if !records[0].ActualTotal.IsZero() {
		t.Fatal("invalid item must not be fallback-matched")
	}
	if len(alerts) != 1 || alerts[0].ItemID != "a1" {
		t.Fatalf("expected an alert for the invalid actual, got %+v", alerts)
	}
}

// randomSnapshot builds a ledger where actuals link to existing groups, to
// missing groups, or to nothing, across a handful of dimension keys.
func randomSnapshot(r *rand.Rand) []core.LineItem {
	projects := []string{"X", "Y", "Z"}
	months := []string{"01 - JANEIRO", march}
	var items []core.LineItem
	for i := 0; i < 12; i++ {
		g := r.Intn(6)
		items = append(items, budget(fmt.Sprintf("b%d", i), fmt.Sprintf("G%d", g), 2024,
			months[g%2], projects[g%2], "C", fmt.Sprint(r.Intn(500))))
	}
	for i := 0; i < 40; i++ {
		link := ""
		if r.Intn(3) == 0 {
			link = fmt.Sprintf("G%d", r.Intn(8))
		}
		items = append(items, actual(fmt.Sprintf("a%d", i), link, 2024,
			months[r.Intn(2)], projects[r.Intn(3)], "C", fmt.Sprint(r.Intn(300))))
	}
	return items
}

func TestReconcile_AllocationProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		items := randomSnapshot(r)
		groups := BuildGroups(items)
		records, alerts := Reconcile(items, groups)

		known := map[string]bool{}
		for _, g := range groups {
			known[g.ID] = true
		}
		total, orphan, unmatched, allocated := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
		for _, it := range items {
			if it.Kind != core.KindActual {
				continue
			}
			total = total.Add(it.Amount)
			if it.LinkedBudgetID != "" && !known[it.LinkedBudgetID] {
				orphan = orphan.Add(it.Amount)
			}
		}
		for _, a := range alerts {
			if a.Kind == core.AlertActualWithoutBudget {
				unmatched = unmatched.Add(a.Amount)
			}
		}
		for _, rec := range records {
			allocated = allocated.Add(rec.ActualTotal)
			if !rec.ActualTotal.Equal(rec.VinculatedActual.Add(rec.FallbackActual)) {
				t.Fatalf("actual total must be vinculated + fallback: %+v", rec)
			}
		}
		if allocated.GreaterThan(total) {
			t.Fatalf("allocated %s exceeds actual sum %s", allocated, total)
		}
		// every actual amount lands in exactly one bucket
		if !allocated.Add(orphan).Add(unmatched).Equal(total) {
			t.Fatalf("allocated %s + orphan %s + unmatched %s != total %s", allocated, orphan, unmatched, total)
		}
		if allocated.Equal(total) != (orphan.IsZero() && unmatched.IsZero()) && !total.IsZero() {
			t.Fatalf("equality must hold iff every actual is matched")
		}
	}
}

func TestReconcile_PureAndOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	items := randomSnapshot(r)
	before := renderItems(items)
	groups := BuildGroups(items)

	first, firstAlerts := Reconcile(items, groups)
	second, secondAlerts := Reconcile(items, groups)
	if renderRecords(first) != renderRecords(second) || len(firstAlerts) != len(secondAlerts) {
		t.Fatal("reconcile is not idempotent")
	}
	if renderItems(items) != before {
		t.Fatal("reconcile mutated its input")
	}

	for n := 0; n < 20; n++ {
		shuffled := append([]core.LineItem(nil), items...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, _ := Reconcile(shuffled, BuildGroups(shuffled))
		if renderRecords(got) != renderRecords(first) {
			t.Fatalf("result depends on item order:\n%s\nvs\n%s", renderRecords(got), renderRecords(first))
		}
	}
}
