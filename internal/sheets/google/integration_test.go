//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"ledger/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_WriteReports(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Options{
		SpreadsheetID:   spreadsheetID,
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.WriteMonthly(ctx, []core.MonthTotal{
		{Month: "2026-01", Expenses: core.Money{Cents: 1000}, Income: core.Money{Cents: 2500}},
	}); err != nil {
		t.Fatalf("WriteMonthly: %v", err)
	}
	if err := client.WriteBreakdown(ctx, []core.CategoryTotal{
		{Category: "food", Expenses: core.Money{Cents: 1000}},
	}); err != nil {
		t.Fatalf("WriteBreakdown: %v", err)
	}
}
