package services

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"ledger/internal/core"
	"ledger/internal/csvimport"
	applog "ledger/internal/log"
	"ledger/internal/storage"

	"github.com/google/uuid"
)

// ImportService loads transactions from CSV uploads.
type ImportService struct {
	store    Store
	notifier *Notifier
	maxBytes int64
	now      func() time.Time
}

func NewImportService(store Store, notifier *Notifier, maxBytes int64) *ImportService {
	return &ImportService{
		store:    store,
		notifier: notifier,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// MaxBytes is the largest CSV file accepted.
func (s *ImportService) MaxBytes() int64 {
	if s.maxBytes <= 0 {
		return csvimport.DefaultMaxBytes
	}
	return s.maxBytes
}

// ImportCSV validates the upload and commits each valid row in its own
// database transaction. Bad rows are reported and skipped; file-level
// problems abort before any row is written.
func (s *ImportService) ImportCSV(ctx context.Context, filename string, r io.Reader) (core.ImportResult, error) {
	if err := csvimport.ValidateFilename(filename); err != nil {
		return core.ImportResult{}, err
	}
	parsed, err := csvimport.Parse(r, s.maxBytes)
	if err != nil {
		return core.ImportResult{}, err
	}

	result := core.ImportResult{
		ImportID: uuid.NewString(),
		Errors:   []string{},
	}
	rowErrs := slices.Clone(parsed.Errors)

	months := map[string]int{}
	for _, row := range parsed.Rows {
		err := s.store.InTx(ctx, func(q *storage.Queries) error {
			_, err := createTransaction(ctx, q, row.Input, s.now())
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			slog.WarnContext(ctx, "CSV row rejected",
				applog.FieldImportID, result.ImportID, "row", row.Number, applog.FieldError, err)
			rowErrs = append(rowErrs, csvimport.RowError{Number: row.Number, Msg: rowMessage(err)})
			continue
		}
		result.Imported++
		months[core.MonthKey(row.Input.Date)]++
	}

	slices.SortStableFunc(rowErrs, func(a, b csvimport.RowError) int {
		return cmp.Compare(a.Number, b.Number)
	})
	for _, rowErr := range rowErrs {
		result.Errors = append(result.Errors, rowErr.Error())
	}

	slog.InfoContext(ctx, "CSV import finished",
		applog.FieldImportID, result.ImportID,
		"file", filename,
		applog.FieldCount, result.Imported,
		"errors", len(result.Errors))

	for month, n := range months {
		s.notifier.Notify(ctx, core.Change{Kind: core.TransactionsAdded, Month: month, Count: n, At: s.now()})
	}
	return result, nil
}

// rowMessage keeps storage internals out of user-facing row errors.
func rowMessage(err error) string {
	if core.IsValidationError(err) || core.IsConflictError(err) {
		return err.Error()
	}
	return "could not save row"
}
