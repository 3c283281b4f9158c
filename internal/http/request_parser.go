package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"orcamento/internal/core"
	"orcamento/internal/ledger"
)

const maxBodyBytes = 1 << 20

// entryPayload is the body of POST /api/entries. Amount and kind arrive as
// the labels a person would type into the sheet.
type entryPayload struct {
	Start          core.Date `json:"start"`
	Kind           string    `json:"kind"`
	Project        string    `json:"project"`
	Category       string    `json:"category"`
	Amount         string    `json:"amount"`
	Installments   int       `json:"installments"`
	Description    string    `json:"description"`
	Involved       string    `json:"involved"`
	Notes          string    `json:"notes"`
	LinkedBudgetID string    `json:"linked_budget_id"`
}

// toRequest converts the payload, defaulting to a single installment.
func (p entryPayload) toRequest() (ledger.EntryRequest, error) {
	amount, err := core.ParseAmountStrict(p.Amount)
	if err != nil {
		return ledger.EntryRequest{}, fmt.Errorf("%w: %q", err, p.Amount)
	}
	kind := ledger.ParseKind(p.Kind)
	if !kind.Valid() {
		return ledger.EntryRequest{}, fmt.Errorf("%w: %q", core.ErrInvalidKind, p.Kind)
	}
	installments := p.Installments
	if installments == 0 {
		installments = 1
	}
	return ledger.EntryRequest{
		Start:          p.Start,
		Kind:           kind,
		Project:        sanitizeInput(p.Project),
		Category:       sanitizeInput(p.Category),
		Amount:         amount,
		Installments:   installments,
		Description:    sanitizeInput(p.Description),
		Involved:       sanitizeInput(p.Involved),
		Notes:          sanitizeInput(p.Notes),
		LinkedBudgetID: strings.TrimSpace(p.LinkedBudgetID),
	}, nil
}

type idsPayload struct {
	IDs     []string `json:"ids"`
	Version string   `json:"version"`
}

// cleanIDs trims ids and drops blanks.
func (p idsPayload) cleanIDs() []string {
	out := make([]string, 0, len(p.IDs))
	for _, id := range p.IDs {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

type registryPayload struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// toEntry accepts the stored labels ("Projeto", "Categoria") or their
// English names.
func (p registryPayload) toEntry() core.RegistryEntry {
	kind := core.RegistryKind(strings.TrimSpace(p.Kind))
	switch strings.ToLower(string(kind)) {
	case "projeto", "project":
		kind = core.RegistryProject
	case "categoria", "category":
		kind = core.RegistryCategory
	}
	return core.RegistryEntry{Kind: kind, Name: sanitizeInput(p.Name)}
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON object")
	}
	return nil
}

// parseFilter reads repeatable year, month, project and category params.
// Years and months may also be comma-separated, so ?year=2023,2024 works;
// project and category names may contain commas and are taken whole.
func parseFilter(query url.Values) (ledger.Filter, error) {
	var f ledger.Filter
	for _, raw := range splitValues(query["year"]) {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid year %q", raw)
		}
		f.Years = append(f.Years, y)
	}
	f.Months = splitValues(query["month"])
	f.Projects = nonEmpty(query["project"])
	f.Categories = nonEmpty(query["category"])
	for _, raw := range splitValues(query["kind"]) {
		k := ledger.ParseKind(raw)
		if k == core.KindUnknown {
			return ledger.Filter{}, fmt.Errorf("invalid kind %q", raw)
		}
		f.Kinds = append(f.Kinds, k)
	}
	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// sanitizeInput trims the value and strips control characters.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s))
}
