package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ledger/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type recordedCall struct {
	method string
	path   string
	query  string
	values [][]any
}

// fakeSheets serves just enough of the Sheets values API to observe writes.
func fakeSheets(t *testing.T, status int) (*Client, func() []recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if r.Method == http.MethodPut {
			var body struct {
				Values [][]any `json:"values"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			call.values = body.Values
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := newWithService(svc, Options{SpreadsheetID: "sheet-id", CategoriesSheet: "By Category"})
	return c, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	got, err := loadCredentials(Options{CredentialsJSON: ` {"type":"service_account"} `, CredentialsFile: "/does/not/exist"})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Errorf("inline JSON should win, got %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = loadCredentials(Options{CredentialsFile: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Errorf("file credentials: got %q, %v", got, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if _, err := loadCredentials(Options{}); err != nil {
		t.Errorf("GOOGLE_APPLICATION_CREDENTIALS fallback: %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err = loadCredentials(Options{})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("expected missing credentials error, got %v", err)
	}
}

func TestWriteMonthly(t *testing.T) {
	c, calls := fakeSheets(t, http.StatusOK)

	err := c.WriteMonthly(context.Background(), []core.MonthTotal{
		{Month: "2026-01", Expenses: core.Money{Cents: 12050}, Income: core.Money{Cents: 300000}},
		{Month: "2026-02", Expenses: core.Money{Cents: 5000}},
	})
	if err != nil {
		t.Fatalf("WriteMonthly: %v", err)
	}

	got := calls()
	if len(got) != 2 {
		t.Fatalf("expected clear and update calls, got %d", len(got))
	}
	if got[0].method != http.MethodPost || !strings.HasSuffix(got[0].path, "/values/Monthly!A:D:clear") {
		t.Errorf("first call should clear the monthly range, got %s %s", got[0].method, got[0].path)
	}
	if got[1].method != http.MethodPut || !strings.HasSuffix(got[1].path, "/values/Monthly!A1") {
		t.Errorf("second call should update from A1, got %s %s", got[1].method, got[1].path)
	}
	if !strings.Contains(got[1].query, "valueInputOption=USER_ENTERED") {
		t.Errorf("update should use USER_ENTERED, query=%s", got[1].query)
	}

	vals := got[1].values
	if len(vals) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(vals))
	}
	if vals[0][0] != "Month" || vals[1][0] != "2026-01" {
		t.Errorf("unexpected values: %v", vals)
	}
	// JSON numbers decode as float64
	if vals[1][3] != 2879.5 || vals[2][3] != -50.0 {
		t.Errorf("net column = %v, %v", vals[1][3], vals[2][3])
	}
}

func TestWriteBreakdownQuotesSheetName(t *testing.T) {
	c, calls := fakeSheets(t, http.StatusOK)

	err := c.WriteBreakdown(context.Background(), []core.CategoryTotal{
		{Category: "food", Expenses: core.Money{Cents: 450}},
	})
	if err != nil {
		t.Fatalf("WriteBreakdown: %v", err)
	}
	got := calls()
	if len(got) != 2 || !strings.HasSuffix(got[1].path, "/values/'By Category'!A1") {
		t.Fatalf("unexpected calls: %+v", got)
	}
	if got[1].values[1][0] != "food" || got[1].values[1][3] != 4.5 {
		t.Errorf("unexpected row: %v", got[1].values[1])
	}
}

func TestWriteFailsOnAPIError(t *testing.T) {
	c, calls := fakeSheets(t, http.StatusInternalServerError)

	err := c.WriteMonthly(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "clear") {
		t.Fatalf("expected clear error, got %v", err)
	}
	if n := len(calls()); n == 0 {
		t.Error("expected the clear request to reach the server")
	}
}

func TestWriteWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.WriteMonthly(context.Background(), nil); err == nil {
		t.Fatal("expected error without a sheets service")
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Monthly":     "Monthly",
		"By Category": "'By Category'",
		"Bob's":       "'Bob''s'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
