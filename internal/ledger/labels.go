package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"orcamento/internal/core"
)

// Month names as the ledger sheet writes them ("03 - MARÇO").
var monthNames = [12]string{
	"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
	"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO",
}

// Kind synonyms, keyed by folded label.
var kindSynonyms = map[string]core.Kind{
	"orcado":    core.KindBudgeted,
	"orcamento": core.KindBudgeted,
	"planejado": core.KindBudgeted,
	"previsto":  core.KindBudgeted,
	"budgeted":  core.KindBudgeted,
	"budget":    core.KindBudgeted,
	"planned":   core.KindBudgeted,
	"realizado": core.KindActual,
	"efetivado": core.KindActual,
	"pago":      core.KindActual,
	"gasto":     core.KindActual,
	"actual":    core.KindActual,
	"realized":  core.KindActual,
	"spent":     core.KindActual,
}

var kindLabels = map[core.Kind]string{
	core.KindBudgeted: "Orçado",
	core.KindActual:   "Realizado",
}

// fold lower-cases s and strips diacritics so "Orçado" and "ORCADO" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ParseKind maps a free-text type label to one of the two ledger kinds.
func ParseKind(label string) core.Kind {
	return kindSynonyms[fold(label)]
}

// KindLabel returns the label written to the ledger for a kind.
func KindLabel(k core.Kind) string {
	return kindLabels[k]
}

// MonthLabel returns the canonical label for month m (1-12), e.g. "03 - MARÇO".
func MonthLabel(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return fmt.Sprintf("%02d - %s", m, monthNames[m-1])
}

// MonthNumber extracts the month from a label. It accepts canonical labels,
// bare numbers and Portuguese month names or their three-letter
// abbreviations, ignoring case and accents. Zero means unrecognized.
func MonthNumber(label string) int {
	s := fold(label)
	if s == "" {
		return 0
	}
	digits := s
	if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits = s[:i]
	}
	if digits != "" {
		m, err := strconv.Atoi(digits)
		if err != nil || m < 1 || m > 12 {
			return 0
		}
		return m
	}
	for i, name := range monthNames {
		fn := fold(name)
		if s == fn || (len(s) == 3 && strings.HasPrefix(fn, s)) {
			return i + 1
		}
	}
	return 0
}

// collapse trims s and squeezes inner runs of whitespace to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
