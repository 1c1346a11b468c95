// Package google mirrors saved days into a Google Sheets spreadsheet, one
// tab per date and section ("2024-01-01 stock"). The mirror is written by
// the worker after a day is saved; it is never read back as primary data.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pillars/internal/core"
	ports "pillars/internal/sheets"
)

// SummaryTab is the tab suffix holding the derived summary of a day.
const SummaryTab = "summary"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ ports.DateLister = (*Client)(nil)

// Credentials selects the service account used to reach the spreadsheet.
type Credentials struct {
	SpreadsheetID      string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// New creates a client from explicit API options. Tests point it at a fake
// endpoint; production code goes through NewFromCredentials.
func New(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewFromCredentials creates a client authenticated as a service account.
// Inline JSON wins over the file; GOOGLE_APPLICATION_CREDENTIALS is the
// last resort.
func NewFromCredentials(ctx context.Context, creds Credentials) (*Client, error) {
	credentialsJSON, err := serviceAccountJSON(ctx, creds)
	if err != nil {
		return nil, err
	}
	return New(ctx, creds.SpreadsheetID,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func serviceAccountJSON(ctx context.Context, creds Credentials) ([]byte, error) {
	inline := strings.TrimSpace(creds.ServiceAccountJSON)
	file := strings.TrimSpace(creds.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// TabName returns the tab holding one table of a date.
func TabName(d core.Date, table string) string {
	return d.Key() + " " + table
}

// Tables returns the tab name and rows of every table mirrored for a day.
func Tables(day ports.Day, summary core.DailySummary) map[string][][]string {
	return map[string][][]string{
		TabName(day.Date, string(ports.SectionStock)):         ports.EncodeStock(day.Stock),
		TabName(day.Date, string(ports.SectionAccommodation)): ports.EncodeAccommodation(day.Accommodation),
		TabName(day.Date, string(ports.SectionExpenses)):      ports.EncodeExpenses(day.Expenses),
		TabName(day.Date, SummaryTab):                         ports.EncodeSummary(summary),
	}
}

func (c *Client) titles(ctx context.Context) ([]string, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	out := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			out = append(out, sh.Properties.Title)
		}
	}
	return out, nil
}

// EnsureTabs creates the missing tabs in a single batch update.
func (c *Client) EnsureTabs(ctx context.Context, names []string) error {
	existing, err := c.titles(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t] = true
	}
	var reqs []*gsheet.Request
	for _, n := range names {
		if have[n] {
			continue
		}
		have[n] = true
		reqs = append(reqs, &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: n},
		}})
	}
	if len(reqs) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add %d tab(s): %w", len(reqs), err)
	}
	slog.InfoContext(ctx, "Created spreadsheet tabs", "count", len(reqs))
	return nil
}

// WriteTable replaces the content of an existing tab with rows.
func (c *Client) WriteTable(ctx context.Context, tab string, rows [][]string) error {
	rng := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = v
		}
		values[i] = row
	}
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	return nil
}

// ListDates returns the dates that have at least one mirrored tab, most
// recent first.
func (c *Client) ListDates(ctx context.Context) ([]core.Date, error) {
	titles, err := c.titles(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []core.Date
	for _, t := range titles {
		key, _, ok := strings.Cut(t, " ")
		if !ok || seen[key] {
			continue
		}
		d, err := core.ParseDate(key)
		if err != nil {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j].Time) })
	return out, nil
}

// quoteTab quotes a tab name for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
