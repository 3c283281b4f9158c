package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"orcamento/internal/core"
	ports "orcamento/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultLedgerSheet   = "lançamentos"
	DefaultRegistrySheet = "cadastros"
)

// ErrSheetNotFound is returned when a configured worksheet does not exist.
var ErrSheetNotFound = errors.New("worksheet not found")

// Options selects the spreadsheet and worksheets to use. Worksheet names
// are matched case-insensitively.
type Options struct {
	SpreadsheetID string
	LedgerSheet   string
	RegistrySheet string
}

type sheetRef struct {
	title string
	id    int64
}

type Client struct {
	svc  *gsheet.Service
	opts Options

	mu     sync.Mutex
	sheets map[string]sheetRef
}

// Ensure interface conformance
var (
	_ ports.LedgerStore   = (*Client)(nil)
	_ ports.IDBackfiller  = (*Client)(nil)
	_ ports.RegistryStore = (*Client)(nil)
)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, opts Options) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(opts.LedgerSheet) == "" {
		opts.LedgerSheet = DefaultLedgerSheet
	}
	if strings.TrimSpace(opts.RegistrySheet) == "" {
		opts.RegistrySheet = DefaultRegistrySheet
	}
	return &Client{svc: svc, opts: opts, sheets: make(map[string]sheetRef)}, nil
}

// Credentials holds a service account key, inline or as a file path.
type Credentials struct {
	JSON string
	File string
}

// Open authenticates with a service account and wraps the resulting service.
func Open(ctx context.Context, opts Options, creds Credentials) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, opts)
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS
// Optional sheet names: GOOGLE_LEDGER_SHEET_NAME (default "lançamentos"),
// GOOGLE_REGISTRY_SHEET_NAME (default "cadastros").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds := Credentials{
		JSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		File: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if strings.TrimSpace(creds.JSON) == "" && strings.TrimSpace(creds.File) == "" {
		creds.File = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	return Open(ctx, Options{
		SpreadsheetID: spreadsheetID,
		LedgerSheet:   os.Getenv("GOOGLE_LEDGER_SHEET_NAME"),
		RegistrySheet: os.Getenv("GOOGLE_REGISTRY_SHEET_NAME"),
	}, creds)
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// resolve finds a worksheet by name, ignoring case, and caches its title and id.
func (c *Client) resolve(ctx context.Context, name string) (sheetRef, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	c.mu.Lock()
	ref, ok := c.sheets[key]
	c.mu.Unlock()
	if ok {
		return ref, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.opts.SpreadsheetID).
		Fields("sheets.properties(sheetId,title)").Context(ctx).Do()
	if err != nil {
		return sheetRef{}, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties == nil || !strings.EqualFold(strings.TrimSpace(sh.Properties.Title), strings.TrimSpace(name)) {
			continue
		}
		ref = sheetRef{title: sh.Properties.Title, id: sh.Properties.SheetId}
		c.mu.Lock()
		c.sheets[key] = ref
		c.mu.Unlock()
		return ref, nil
	}
	return sheetRef{}, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
}

// FetchAll reads columns A:O of the ledger worksheet. Row 1 is the header.
func (c *Client) FetchAll(ctx context.Context) ([]core.RawRow, error) {
	sh, err := c.resolve(ctx, c.opts.LedgerSheet)
	if err != nil {
		return nil, err
	}
	rng := a1(sh.title, "A:O")
	resp, err := c.svc.Spreadsheets.Values.Get(c.opts.SpreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return rowsFromValues(resp.Values), nil
}

// Append adds rows after the last row of the ledger table.
func (c *Client) Append(ctx context.Context, rows []core.RawRow) error {
	if len(rows) == 0 {
		return nil
	}
	sh, err := c.resolve(ctx, c.opts.LedgerSheet)
	if err != nil {
		return err
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = rowValues(r)
	}
	rng := a1(sh.title, "A:O")
	_, err = c.svc.Spreadsheets.Values.Append(c.opts.SpreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %d rows to %s: %w", len(rows), sh.title, err)
	}
	return nil
}

// DeleteRanges removes row ranges in one batchUpdate. The API applies the
// requests in order, so the caller's bottom-up ordering is preserved.
func (c *Client) DeleteRanges(ctx context.Context, ranges []core.Range) error {
	if len(ranges) == 0 {
		return nil
	}
	sh, err := c.resolve(ctx, c.opts.LedgerSheet)
	if err != nil {
		return err
	}
	reqs := make([]*gsheet.Request, 0, len(ranges))
	for _, r := range ranges {
		if r.Start <= ports.HeaderRows || r.End < r.Start {
			return fmt.Errorf("delete rows %d-%d: %w", r.Start, r.End, ports.ErrRangeOutOfBounds)
		}
		reqs = append(reqs, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sh.id,
					Dimension:  "ROWS",
					StartIndex: int64(r.Start - 1),
					EndIndex:   int64(r.End),
					// sheet id 0 is valid and must not be dropped as empty
					ForceSendFields: []string{"SheetId"},
				},
			},
		})
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.opts.SpreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete %d ranges from %s: %w", len(ranges), sh.title, err)
	}
	return nil
}

// BackfillIDs writes generated ids into the ID column. Cells that already
// hold a value are left alone; the sheet has no conditional write, so the
// target cells are read back first.
func (c *Client) BackfillIDs(ctx context.Context, ids map[int]string) error {
	if len(ids) == 0 {
		return nil
	}
	sh, err := c.resolve(ctx, c.opts.LedgerSheet)
	if err != nil {
		return err
	}
	positions := make([]int, 0, len(ids))
	for pos := range ids {
		if pos <= ports.HeaderRows {
			return fmt.Errorf("backfill row %d: %w", pos, ports.ErrRangeOutOfBounds)
		}
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	cells := make([]string, len(positions))
	for i, pos := range positions {
		cells[i] = a1(sh.title, fmt.Sprintf("%s%d", idColumn, pos))
	}

	current, err := c.svc.Spreadsheets.Values.BatchGet(c.opts.SpreadsheetID).
		Ranges(cells...).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %d id cells in %s: %w", len(cells), sh.title, err)
	}
	data := make([]*gsheet.ValueRange, 0, len(positions))
	for i, pos := range positions {
		if i < len(current.ValueRanges) && cellText(current.ValueRanges[i].Values) != "" {
			continue
		}
		data = append(data, &gsheet.ValueRange{
			Range:  cells[i],
			Values: [][]any{{ids[pos]}},
		})
	}
	if len(data) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.opts.SpreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("backfill %d ids in %s: %w", len(data), sh.title, err)
	}
	return nil
}

// cellText returns the trimmed text of the first cell of a single-cell read.
func cellText(values [][]any) string {
	if len(values) == 0 || len(values[0]) == 0 || values[0][0] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(values[0][0]))
}

// ListRegistry reads the Tipo/Nome columns of the registry worksheet.
func (c *Client) ListRegistry(ctx context.Context) ([]core.RegistryEntry, error) {
	sh, err := c.resolve(ctx, c.opts.RegistrySheet)
	if err != nil {
		return nil, err
	}
	rng := a1(sh.title, "A:B")
	resp, err := c.svc.Spreadsheets.Values.Get(c.opts.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return registryFromValues(resp.Values), nil
}

// AddRegistry appends a registry entry unless an equivalent one exists.
func (c *Client) AddRegistry(ctx context.Context, e core.RegistryEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	existing, err := c.ListRegistry(ctx)
	if err != nil {
		return err
	}
	for _, have := range existing {
		if have.SameAs(e) {
			return core.ErrDuplicateRegistryEntry
		}
	}
	sh, err := c.resolve(ctx, c.opts.RegistrySheet)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{{string(e.Kind), strings.TrimSpace(e.Name)}}}
	_, err = c.svc.Spreadsheets.Values.Append(c.opts.SpreadsheetID, a1(sh.title, "A:B"), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append registry entry: %w", err)
	}
	return nil
}

// Ping checks that the ledger worksheet can be resolved.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.resolve(ctx, c.opts.LedgerSheet)
	return err
}
