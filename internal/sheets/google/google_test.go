package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"

	"pillars/internal/core"
	ports "pillars/internal/sheets"
)

// fakeSheets is a minimal stand-in for the Sheets v4 REST API.
type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	added   []string
	cleared []string
	written map[string][][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct{ Title string } `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.added = append(f.added, rq.AddSheet.Properties.Title)
			f.titles = append(f.titles, rq.AddSheet.Properties.Title)
		}
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, path)
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		if f.written == nil {
			f.written = map[string][][]any{}
		}
		f.written[path] = vr.Values
		io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "sheet-id",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), " "); err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
}

func TestNewFromCredentials_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFromCredentials(context.Background(), Credentials{SpreadsheetID: "sheet-id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureTabsAddsOnlyMissing(t *testing.T) {
	f := &fakeSheets{titles: []string{"2024-01-01 stock"}}
	c := newTestClient(t, f)

	err := c.EnsureTabs(context.Background(), []string{"2024-01-01 stock", "2024-01-01 expenses", "2024-01-01 expenses"})
	if err != nil {
		t.Fatalf("EnsureTabs: %v", err)
	}
	if len(f.added) != 1 || f.added[0] != "2024-01-01 expenses" {
		t.Fatalf("added = %v", f.added)
	}
	// Nothing left to add: no batch update.
	if err := c.EnsureTabs(context.Background(), []string{"2024-01-01 expenses"}); err != nil {
		t.Fatal(err)
	}
	if len(f.added) != 1 {
		t.Fatalf("added = %v", f.added)
	}
}

func TestWriteTableClearsThenWrites(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	rows := ports.EncodeExpenses([]core.ExpenseLine{{Description: "Fuel", Amount: decimal.NewFromInt(500)}})

	if err := c.WriteTable(context.Background(), "2024-01-01 expenses", rows); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if len(f.cleared) != 1 || len(f.written) != 1 {
		t.Fatalf("cleared=%v written=%v", f.cleared, f.written)
	}
	for _, values := range f.written {
		if len(values) != 2 || values[1][0] != "Fuel" || values[1][1] != "500" {
			t.Fatalf("unexpected values: %v", values)
		}
	}
}

func TestListDatesFromTabs(t *testing.T) {
	f := &fakeSheets{titles: []string{"Sheet1", "2024-01-01 stock", "2024-02-01 summary", "2024-01-01 expenses", "notes 2024"}}
	c := newTestClient(t, f)
	dates, err := c.ListDates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 || dates[0].Key() != "2024-02-01" || dates[1].Key() != "2024-01-01" {
		t.Fatalf("ListDates = %v", dates)
	}
}

func TestTablesAndQuoting(t *testing.T) {
	d := core.NewDate(2024, 1, 1)
	tables := Tables(ports.Day{Date: d}, core.DailySummary{})
	for _, name := range []string{"2024-01-01 stock", "2024-01-01 accommodation", "2024-01-01 expenses", "2024-01-01 summary"} {
		if _, ok := tables[name]; !ok {
			t.Fatalf("missing table %q", name)
		}
	}
	if got := quoteTab("Bob's day"); got != "'Bob''s day'" {
		t.Fatalf("quoteTab = %s", got)
	}
}
