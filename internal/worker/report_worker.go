package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sheets"
)

// ReportSource is the slice of the stats service the worker reads.
type ReportSource interface {
	Monthly(ctx context.Context, f core.Filter, limit int) ([]core.MonthTotal, error)
	Breakdown(ctx context.Context, f core.Filter) ([]core.CategoryTotal, error)
}

// ReportWorker keeps the exported spreadsheet reports current. Change events
// mark the reports dirty; a single loop rewrites them, so a burst of events
// costs one export. A nil writer turns the worker into an event logger.
type ReportWorker struct {
	source   ReportSource
	writer   sheets.ReportWriter
	interval time.Duration
	dirty    chan struct{}
}

func NewReportWorker(source ReportSource, writer sheets.ReportWriter, interval time.Duration) *ReportWorker {
	return &ReportWorker{
		source:   source,
		writer:   writer,
		interval: interval,
		dirty:    make(chan struct{}, 1),
	}
}

// HandleChangeEvent is the AMQP consumer callback.
func (w *ReportWorker) HandleChangeEvent(ctx context.Context, event *amqp.ChangeEvent) error {
	slog.InfoContext(ctx, "Processing change event",
		applog.FieldEventID, event.ID,
		applog.FieldEventKind, event.Kind,
		applog.FieldTransactionID, event.TransactionID,
		applog.FieldMonth, event.Month,
		applog.FieldCount, event.Count)

	if w.writer == nil {
		return nil
	}
	select {
	case w.dirty <- struct{}{}:
	default:
	}
	return nil
}

// Run exports once at startup, then on every tick and after change events,
// until ctx is done.
func (w *ReportWorker) Run(ctx context.Context) error {
	if w.writer == nil {
		slog.InfoContext(ctx, "Report export disabled - no spreadsheet configured")
		<-ctx.Done()
		return ctx.Err()
	}

	if err := w.Sync(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup report sync failed", applog.FieldError, err)
	}

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		case <-w.dirty:
		}
		if err := w.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "Report sync failed", applog.FieldError, err)
		}
	}
}

// Sync rewrites both report ranges from the full, unfiltered history.
func (w *ReportWorker) Sync(ctx context.Context) error {
	if w.writer == nil {
		return nil
	}
	start := time.Now()

	monthly, err := w.source.Monthly(ctx, core.Filter{}, 0)
	if err != nil {
		return fmt.Errorf("load monthly totals: %w", err)
	}
	breakdown, err := w.source.Breakdown(ctx, core.Filter{})
	if err != nil {
		return fmt.Errorf("load category totals: %w", err)
	}

	if err := w.writer.WriteMonthly(ctx, monthly); err != nil {
		return fmt.Errorf("write monthly report: %w", err)
	}
	if err := w.writer.WriteBreakdown(ctx, breakdown); err != nil {
		return fmt.Errorf("write category report: %w", err)
	}

	slog.InfoContext(ctx, "Reports exported",
		applog.FieldOperation, applog.OpSync,
		"months", len(monthly),
		"categories", len(breakdown),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
