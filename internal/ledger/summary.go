package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

// Usage levels for budget consumption.
const (
	UsageOK       = "ok"
	UsageWarning  = "warning"
	UsageCritical = "critical"
)

var (
	warningThreshold  = decimal.NewFromInt(85)
	criticalThreshold = decimal.NewFromInt(100)
)

// Filter narrows a summary or a reconciliation result. Empty slices match
// everything; values within a slice are alternatives.
type Filter struct {
	Years      []int
	Months     []string
	Projects   []string
	Categories []string
	Kinds      []core.Kind
}

// IsZero reports whether f matches everything.
func (f Filter) IsZero() bool {
	return len(f.Years) == 0 && len(f.Months) == 0 && len(f.Projects) == 0 &&
		len(f.Categories) == 0 && len(f.Kinds) == 0
}

// Breakdown is the budgeted and actual total for one dimension value.
type Breakdown struct {
	Key      string          `json:"key"`
	Budgeted decimal.Decimal `json:"budgeted"`
	Actual   decimal.Decimal `json:"actual"`
}

// Summary is the aggregate view of the valid line items matching a filter.
type Summary struct {
	Budgeted       decimal.Decimal `json:"budgeted"`
	Actual         decimal.Decimal `json:"actual"`
	Balance        decimal.Decimal `json:"balance"`
	UsagePercent   decimal.Decimal `json:"usage_percent"`
	Level          string          `json:"level"`
	ActiveProjects int             `json:"active_projects"`
	Items          int             `json:"items"`
	ByMonth        []Breakdown     `json:"by_month"`
	ByProject      []Breakdown     `json:"by_project"`
	ByCategory     []Breakdown     `json:"by_category"`
}

// Summarize totals Budgeted and Actual amounts of the valid items matching f.
// Months are ordered by month number, projects and categories by name.
func Summarize(items []core.LineItem, f Filter) Summary {
	m := newMatcher(f)
	s := Summary{Budgeted: decimal.Zero, Actual: decimal.Zero}
	byMonth := make(map[string]*Breakdown)
	byProject := make(map[string]*Breakdown)
	byCategory := make(map[string]*Breakdown)
	for _, it := range items {
		if it.Invalid() || !m.match(it) {
			continue
		}
		s.Items++
		for _, b := range []*Breakdown{
			bucket(byMonth, it.MonthLabel),
			bucket(byProject, it.Project),
			bucket(byCategory, it.Category),
		} {
			add(b, it)
		}
		if it.Kind == core.KindBudgeted {
			s.Budgeted = s.Budgeted.Add(it.Amount)
		} else {
			s.Actual = s.Actual.Add(it.Amount)
		}
	}
	s.Balance = s.Budgeted.Sub(s.Actual)
	s.UsagePercent = decimal.Zero
	if !s.Budgeted.IsZero() {
		s.UsagePercent = s.Actual.Mul(hundred).DivRound(s.Budgeted, 2)
	}
	s.Level = UsageLevel(s.UsagePercent)
	s.ActiveProjects = len(byProject)

	s.ByMonth = flatten(byMonth, func(a, b string) bool {
		ma, mb := MonthNumber(a), MonthNumber(b)
		if ma == mb {
			return a < b
		}
		return ma < mb
	})
	s.ByProject = flatten(byProject, nil)
	s.ByCategory = flatten(byCategory, nil)
	return s
}

// UsageLevel classifies a usage percentage: ok up to 85, warning up to 100,
// critical above.
func UsageLevel(percent decimal.Decimal) string {
	switch {
	case percent.LessThanOrEqual(warningThreshold):
		return UsageOK
	case percent.LessThanOrEqual(criticalThreshold):
		return UsageWarning
	default:
		return UsageCritical
	}
}

type matcher struct {
	years      map[int]bool
	months     map[string]bool
	projects   map[string]bool
	categories map[string]bool
	kinds      map[core.Kind]bool
}

func newMatcher(f Filter) matcher {
	m := matcher{
		years:      make(map[int]bool),
		months:     make(map[string]bool),
		projects:   make(map[string]bool),
		categories: make(map[string]bool),
		kinds:      make(map[core.Kind]bool),
	}
	for _, k := range f.Kinds {
		m.kinds[k] = true
	}
	for _, y := range f.Years {
		m.years[y] = true
	}
	for _, label := range f.Months {
		// unrecognized labels stay as typed and match nothing
		l := MonthLabel(MonthNumber(label))
		if l == "" {
			l = collapse(label)
		}
		m.months[l] = true
	}
	for _, p := range f.Projects {
		m.projects[strings.ToLower(collapse(p))] = true
	}
	for _, c := range f.Categories {
		m.categories[strings.ToLower(collapse(c))] = true
	}
	return m
}

func (m matcher) match(it core.LineItem) bool {
	if len(m.kinds) > 0 && !m.kinds[it.Kind] {
		return false
	}
	return m.matchPeriod(it.Year, it.MonthLabel) && m.matchDims(it.Project, it.Category)
}

func (m matcher) matchGroup(g core.BudgetGroup) bool {
	return m.matchPeriod(g.Year, g.MonthLabel) && m.matchDims(g.Project, g.Category)
}

func (m matcher) matchPeriod(year int, month string) bool {
	if len(m.years) > 0 && !m.years[year] {
		return false
	}
	return len(m.months) == 0 || m.months[month]
}

func (m matcher) matchDims(project, category string) bool {
	if len(m.projects) > 0 && !m.projects[strings.ToLower(project)] {
		return false
	}
	return len(m.categories) == 0 || m.categories[strings.ToLower(category)]
}

func bucket(m map[string]*Breakdown, key string) *Breakdown {
	b, ok := m[key]
	if !ok {
		b = &Breakdown{Key: key, Budgeted: decimal.Zero, Actual: decimal.Zero}
		m[key] = b
	}
	return b
}

func add(b *Breakdown, it core.LineItem) {
	if it.Kind == core.KindBudgeted {
		b.Budgeted = b.Budgeted.Add(it.Amount)
	} else {
		b.Actual = b.Actual.Add(it.Amount)
	}
}

func flatten(m map[string]*Breakdown, less func(a, b string) bool) []Breakdown {
	out := make([]Breakdown, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Key, out[j].Key) })
	return out
}
