package sheets

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the exported report ranges with fresh totals.
	ReportWriter interface {
		// WriteMonthly rewrites the monthly trend, oldest month first.
		WriteMonthly(ctx context.Context, rows []core.MonthTotal) error
		// WriteBreakdown rewrites the per-category totals.
		WriteBreakdown(ctx context.Context, rows []core.CategoryTotal) error
	}
)
