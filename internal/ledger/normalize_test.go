package ledger

import (
	"testing"

	"orcamento/internal/core"
)

func TestNormalize_AssignsMissingIDs(t *testing.T) {
	rows := []core.RawRow{
		{Position: 2, ID: "keep-me", Kind: "Orçado", Year: "2024", Month: "03 - MARÇO", Amount: "10"},
		{Position: 3, ID: "   ", Kind: "Orçado", Year: "2024", Month: "03 - MARÇO", Amount: "10"},
		{Position: 4, Kind: "Realizado", Year: "2024", Month: "03 - MARÇO", Amount: "10"},
	}
	items := Normalizer{NewID: sequence("gen")}.Normalize(rows)

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "keep-me" || items[0].HasIssue(core.IssueAssignedID) {
		t.Fatalf("existing id must be kept untouched, got %+v", items[0])
	}
	if items[1].ID != "gen-1" || !items[1].HasIssue(core.IssueAssignedID) {
		t.Fatalf("blank id should be assigned, got %q issues=%v", items[1].ID, items[1].Issues)
	}
	if items[2].ID != "gen-2" {
		t.Fatalf("expected gen-2, got %q", items[2].ID)
	}
	for i, it := range items {
		if it.Position != rows[i].Position {
			t.Fatalf("position not carried through: %d != %d", it.Position, rows[i].Position)
		}
	}
}

func TestNormalize_DefaultIDsAreUnique(t *testing.T) {
	rows := make([]core.RawRow, 50)
	seen := map[string]bool{}
	for _, it := range Normalize(rows) {
		if it.ID == "" || seen[it.ID] {
			t.Fatalf("duplicate or empty id %q", it.ID)
		}
		seen[it.ID] = true
	}
}

func TestNormalize_RepeatedIDIsFlagged(t *testing.T) {
	rows := []core.RawRow{
		{Position: 2, ID: "dup", Kind: "Orçado", Year: "2024", Month: "3", Amount: "100"},
		{Position: 3, ID: " dup", Kind: "Orçado", Year: "2024", Month: "3", Amount: "100"},
		{Position: 4, Kind: "Realizado", Year: "2024", Month: "3", Amount: "5"},
	}
	items := Normalizer{NewID: sequence("gen")}.Normalize(rows)

	if items[0].ID != "dup" || len(items[0].Issues) != 0 {
		t.Fatalf("first copy must keep its id, got %+v", items[0])
	}
	if items[1].ID != "gen-1" || !items[1].HasIssue(core.IssueDuplicateID) || items[1].HasIssue(core.IssueAssignedID) {
		t.Fatalf("second copy = %q issues=%v", items[1].ID, items[1].Issues)
	}
	if items[1].Invalid() {
		t.Fatal("a repeated id must not invalidate the row")
	}
	if items[2].ID != "gen-2" || items[2].HasIssue(core.IssueDuplicateID) {
		t.Fatalf("third row = %q issues=%v", items[2].ID, items[2].Issues)
	}
}

func TestNormalize_Period(t *testing.T) {
	cases := []struct {
		name      string
		row       core.RawRow
		wantYear  int
		wantMonth string
		invalid   bool
	}{
		{"stored values", core.RawRow{Year: "2023", Month: "3"}, 2023, "03 - MARÇO", false},
		{"canonical label", core.RawRow{Year: "2024", Month: "12 - DEZEMBRO"}, 2024, "12 - DEZEMBRO", false},
		{"month name without accent", core.RawRow{Year: "2024", Month: "marco"}, 2024, "03 - MARÇO", false},
		{"month abbreviation", core.RawRow{Year: "2024", Month: "Fev"}, 2024, "02 - FEVEREIRO", false},
		{"derived from date", core.RawRow{Date: "15/03/2024"}, 2024, "03 - MARÇO", false},
		{"iso date", core.RawRow{Date: "2024-07-01", Year: "abc", Month: "julho"}, 2024, "07 - JULHO", false},
		{"two digit year", core.RawRow{Date: "01/02/24"}, 2024, "02 - FEVEREIRO", false},
		{"float year", core.RawRow{Year: "2024.0", Month: "1"}, 2024, "01 - JANEIRO", false},
		{"stored year wins over date", core.RawRow{Year: "2023", Date: "10/10/2024"}, 2023, "10 - OUTUBRO", false},
		{"implausible year falls back to date", core.RawRow{Year: "24", Date: "05/05/2025"}, 2025, "05 - MAIO", false},
		{"no year anywhere", core.RawRow{Month: "03 - MARÇO"}, 0, "03 - MARÇO", true},
		{"no month anywhere", core.RawRow{Year: "2024"}, 2024, "", true},
		{"bad month label and no date", core.RawRow{Year: "2024", Month: "13"}, 2024, "", true},
		{"garbage date", core.RawRow{Date: "not a date"}, 0, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.row.ID = "x"
			tc.row.Kind = "Orçado"
			tc.row.Amount = "1"
			it := Normalize([]core.RawRow{tc.row})[0]
			if it.Year != tc.wantYear {
				t.Errorf("year = %d, want %d", it.Year, tc.wantYear)
			}
			if it.MonthLabel != tc.wantMonth {
				t.Errorf("month = %q, want %q", it.MonthLabel, tc.wantMonth)
			}
			if it.Invalid() != tc.invalid {
				t.Errorf("invalid = %v, want %v (issues %v)", it.Invalid(), tc.invalid, it.Issues)
			}
			if tc.invalid && !it.HasIssue(core.IssueInvalidPeriod) {
				t.Errorf("expected invalid_period issue, got %v", it.Issues)
			}
		})
	}
}

func TestNormalize_Kind(t *testing.T) {
	cases := map[string]core.Kind{
		"Orçado":     core.KindBudgeted,
		"ORCADO":     core.KindBudgeted,
		"planejado":  core.KindBudgeted,
		" Previsto ": core.KindBudgeted,
		"Budgeted":   core.KindBudgeted,
		"Realizado":  core.KindActual,
		"efetivado":  core.KindActual,
		"Pago":       core.KindActual,
		"actual":     core.KindActual,
		"":           core.KindUnknown,
		"talvez":     core.KindUnknown,
	}
	for label, want := range cases {
		it := Normalize([]core.RawRow{{ID: "x", Kind: label, Year: "2024", Month: "1", Amount: "1"}})[0]
		if it.Kind != want {
			t.Errorf("kind(%q) = %q, want %q", label, it.Kind, want)
		}
		if want == core.KindUnknown && (!it.Invalid() || !it.HasIssue(core.IssueUnknownKind)) {
			t.Errorf("kind(%q) should be flagged unknown, issues %v", label, it.Issues)
		}
	}
}

func TestNormalize_Amount(t *testing.T) {
	cases := []struct {
		raw   string
		want  string
		issue core.Issue
	}{
		{"R$ 1.234,56", "1234.56", ""},
		{"1.234", "1234", core.IssueAmbiguousAmount},
		{"", "0", core.IssueMissingAmount},
		{"abc", "0", core.IssueUnparsableAmount},
		{"-50,00", "50", core.IssueNegativeAmount},
	}
	for _, tc := range cases {
		it := Normalize([]core.RawRow{{ID: "x", Kind: "Realizado", Year: "2024", Month: "1", Amount: tc.raw}})[0]
		if !it.Amount.Equal(dec(tc.want)) {
			t.Errorf("amount(%q) = %s, want %s", tc.raw, it.Amount, tc.want)
		}
		if tc.issue != "" && !it.HasIssue(tc.issue) {
			t.Errorf("amount(%q) should record %s, got %v", tc.raw, tc.issue, it.Issues)
		}
		if it.Invalid() {
			t.Errorf("amount issues must not invalidate the item: %v", it.Issues)
		}
	}
}

func TestNormalize_TextAndMetadata(t *testing.T) {
	row := core.RawRow{
		ID: " id-1 ", GroupID: " g-1 ", Kind: "Orçado", Year: "2024", Month: "1", Amount: "1",
		Project: "  Casa   Nova ", Category: "Material\tde  obra", Description: " piso ",
		Installment: "2 de 12", Settled: "Sim", LinkedBudgetID: "should-drop",
	}
	it := Normalize([]core.RawRow{row})[0]
	if it.ID != "id-1" || it.GroupID != "g-1" {
		t.Fatalf("ids not trimmed: %q %q", it.ID, it.GroupID)
	}
	if it.Project != "Casa Nova" || it.Category != "Material de obra" || it.Description != "piso" {
		t.Fatalf("text not collapsed: %q %q %q", it.Project, it.Category, it.Description)
	}
	if it.InstallmentIndex != 2 || it.InstallmentTotal != 12 {
		t.Fatalf("installment = %d/%d, want 2/12", it.InstallmentIndex, it.InstallmentTotal)
	}
	if !it.Settled {
		t.Fatal("expected settled")
	}
	if it.LinkedBudgetID != "" {
		t.Fatalf("budgeted items never carry a link, got %q", it.LinkedBudgetID)
	}

	row.Kind = "Realizado"
	row.LinkedBudgetID = " A "
	it = Normalize([]core.RawRow{row})[0]
	if it.LinkedBudgetID != "A" {
		t.Fatalf("link = %q, want A", it.LinkedBudgetID)
	}
}

func TestParseInstallment(t *testing.T) {
	cases := []struct {
		in           string
		index, total int
	}{
		{"1 de 3", 1, 3},
		{"10 DE 12", 10, 12},
		{"3/10", 3, 10},
		{"", 0, 0},
		{"4 de 3", 0, 0},
		{"uma", 0, 0},
	}
	for _, tc := range cases {
		i, n := parseInstallment(tc.in)
		if i != tc.index || n != tc.total {
			t.Errorf("parseInstallment(%q) = %d/%d, want %d/%d", tc.in, i, n, tc.index, tc.total)
		}
	}
}

func TestMonthNumber(t *testing.T) {
	cases := map[string]int{
		"03 - MARÇO": 3,
		"3":          3,
		"Março":      3,
		"DEZ":        12,
		"setembro":   9,
		"0":          0,
		"13":         0,
		"":           0,
		"ma":         0,
	}
	for in, want := range cases {
		if got := MonthNumber(in); got != want {
			t.Errorf("MonthNumber(%q) = %d, want %d", in, got, want)
		}
	}
	if MonthLabel(3) != "03 - MARÇO" || MonthLabel(0) != "" {
		t.Fatalf("unexpected labels %q %q", MonthLabel(3), MonthLabel(0))
	}
}
