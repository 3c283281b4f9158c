package google

import (
	"fmt"
	"strings"

	"orcamento/internal/core"
)

// Ledger columns A..O, in sheet order.
const (
	colDate = iota
	colYear
	colMonth
	colKind
	colProject
	colCategory
	colAmount
	colDescription
	colInstallment
	colSettled
	colInvolved
	colNotes
	colID
	colGroup
	colLink
	ledgerColumns
)

// idColumn is the A1 column letter holding the row id.
const idColumn = "M"

// LedgerHeader is the header row written by the original ledger sheet.
var LedgerHeader = []string{
	"Data", "Ano", "Mês", "Tipo", "Projeto", "Categoria", "Valor", "Descrição",
	"Parcela", "Abatido", "Envolvidos", "Info Gerais", "ID", "Grupo", "Vínculo",
}

// rowFromValues maps one values row onto a RawRow. Missing trailing cells
// read as empty.
func rowFromValues(cells []any, pos int) core.RawRow {
	return core.RawRow{
		Position:       pos,
		Date:           cell(cells, colDate),
		Year:           cell(cells, colYear),
		Month:          cell(cells, colMonth),
		Kind:           cell(cells, colKind),
		Project:        cell(cells, colProject),
		Category:       cell(cells, colCategory),
		Amount:         cell(cells, colAmount),
		Description:    cell(cells, colDescription),
		Installment:    cell(cells, colInstallment),
		Settled:        cell(cells, colSettled),
		Involved:       cell(cells, colInvolved),
		Notes:          cell(cells, colNotes),
		ID:             cell(cells, colID),
		GroupID:        cell(cells, colGroup),
		LinkedBudgetID: cell(cells, colLink),
	}
}

func rowValues(r core.RawRow) []any {
	out := make([]any, ledgerColumns)
	out[colDate] = r.Date
	out[colYear] = r.Year
	out[colMonth] = r.Month
	out[colKind] = r.Kind
	out[colProject] = r.Project
	out[colCategory] = r.Category
	out[colAmount] = r.Amount
	out[colDescription] = r.Description
	out[colInstallment] = r.Installment
	out[colSettled] = r.Settled
	out[colInvolved] = r.Involved
	out[colNotes] = r.Notes
	out[colID] = r.ID
	out[colGroup] = r.GroupID
	out[colLink] = r.LinkedBudgetID
	return out
}

// rowsFromValues converts a values matrix whose first row is the header.
// Blank rows are skipped but still occupy their position.
func rowsFromValues(values [][]any) []core.RawRow {
	var out []core.RawRow
	for i := 1; i < len(values); i++ {
		if isBlank(values[i]) {
			continue
		}
		out = append(out, rowFromValues(values[i], i+1))
	}
	return out
}

// registryFromValues reads the Tipo/Nome columns of the registry sheet,
// skipping the header and rows with an unknown kind.
func registryFromValues(values [][]any) []core.RegistryEntry {
	var out []core.RegistryEntry
	for _, row := range values {
		e := core.RegistryEntry{Kind: registryKind(cell(row, 0)), Name: cell(row, 1)}
		if e.Validate() != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

func registryKind(s string) core.RegistryKind {
	for _, k := range []core.RegistryKind{core.RegistryProject, core.RegistryCategory} {
		if strings.EqualFold(s, string(k)) {
			return k
		}
	}
	return core.RegistryKind(s)
}

func cell(cells []any, i int) string {
	if i < 0 || i >= len(cells) || cells[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(cells[i]))
}

func isBlank(cells []any) bool {
	for i := range cells {
		if cell(cells, i) != "" {
			return false
		}
	}
	return true
}

// a1 builds an A1 reference, quoting the sheet title.
func a1(title, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(title, "'", "''"), rng)
}
