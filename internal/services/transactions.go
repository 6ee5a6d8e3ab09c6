package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"

	"cloud.google.com/go/civil"
)

// TransactionService creates, changes and lists transactions.
type TransactionService struct {
	store    Store
	notifier *Notifier
	now      func() time.Time
}

func NewTransactionService(store Store, notifier *Notifier) *TransactionService {
	return &TransactionService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *TransactionService) today() civil.Date {
	return civil.DateOf(s.now())
}

// ParseFilter applies the service clock to raw filter parameters.
func (s *TransactionService) ParseFilter(p core.FilterParams) core.Filter {
	return core.ParseFilter(p, s.today())
}

// Create validates the input and stores it with its category and tags in
// one database transaction.
func (s *TransactionService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	in, err := in.Normalize()
	if err != nil {
		return core.Transaction{}, err
	}

	var tx core.Transaction
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		tx, err = createTransaction(ctx, q, in, s.now())
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		applog.FieldTransactionID, tx.ID,
		applog.FieldDescription, tx.Description,
		applog.FieldAmountCents, tx.Amount.Cents,
		applog.FieldType, string(tx.Type),
		applog.FieldCategory, tx.Category())

	s.notifier.Notify(ctx, core.Change{
		Kind:          core.TransactionCreated,
		TransactionID: tx.ID,
		Month:         tx.Month(),
		Count:         1,
		At:            s.now(),
	})
	return tx, nil
}

// createTransaction is the single create path shared by the API, sample data
// and CSV import. in must already be normalized.
func createTransaction(ctx context.Context, q *storage.Queries, in core.TransactionInput, now time.Time) (core.Transaction, error) {
	id, err := q.InsertTransaction(ctx, in, now)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := attachTags(ctx, q, id, in, now); err != nil {
		return core.Transaction{}, err
	}
	return q.GetTransaction(ctx, id)
}

// attachTags gives the transaction its single category and its plain tags.
func attachTags(ctx context.Context, q *storage.Queries, id int64, in core.TransactionInput, now time.Time) error {
	names := make([]string, 0, len(in.Tags)+1)
	if in.Category != "" {
		names = append(names, core.CategoryTagName(in.Category))
	}
	names = append(names, in.Tags...)

	for _, name := range names {
		tag, err := getOrCreateTag(ctx, q, name, now)
		if err != nil {
			return err
		}
		if err := q.AttachTag(ctx, id, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// Update re-validates the input and replaces every field, category and tag.
func (s *TransactionService) Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	in, err := in.Normalize()
	if err != nil {
		return core.Transaction{}, err
	}

	var (
		tx       core.Transaction
		oldMonth string
	)
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		oldMonth = old.Month()

		now := s.now()
		if err := q.UpdateTransaction(ctx, id, in, now); err != nil {
			return err
		}
		if err := q.DetachAllTags(ctx, id); err != nil {
			return err
		}
		if err := attachTags(ctx, q, id, in, now); err != nil {
			return err
		}
		tx, err = q.GetTransaction(ctx, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		applog.FieldTransactionID, tx.ID,
		applog.FieldAmountCents, tx.Amount.Cents,
		applog.FieldCategory, tx.Category())

	s.notifier.Notify(ctx, core.Change{Kind: core.TransactionUpdated, TransactionID: id, Month: tx.Month(), Count: 1, At: s.now()})
	if oldMonth != tx.Month() {
		s.notifier.Notify(ctx, core.Change{Kind: core.TransactionUpdated, TransactionID: id, Month: oldMonth, Count: 1, At: s.now()})
	}
	return tx, nil
}

// Delete removes a transaction; its tags are kept. Deleting a missing
// transaction succeeds.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	var (
		deleted bool
		month   string
	)
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		tx, err := q.GetTransaction(ctx, id)
		if core.IsNotFoundError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		month = tx.Month()
		deleted, err = q.DeleteTransaction(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if !deleted {
		slog.DebugContext(ctx, "Transaction already absent", applog.FieldTransactionID, id)
		return nil
	}

	slog.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	s.notifier.Notify(ctx, core.Change{Kind: core.TransactionDeleted, TransactionID: id, Month: month, Count: 1, At: s.now()})
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := s.store.Queries().GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// List returns one month of the filtered transactions. Pages are months,
// newest first; page is clamped to [1, months].
func (s *TransactionService) List(ctx context.Context, f core.Filter, page int) (core.TransactionPage, error) {
	q := s.store.Queries()

	months, err := q.ListMonths(ctx, f)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	total, err := q.CountTransactions(ctx, f)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}

	page = clampPage(page, len(months))
	result := core.TransactionPage{
		Transactions: []core.Transaction{},
		Total:        total,
		Page:         page,
		TotalPages:   len(months),
		Months:       months,
	}
	if result.Months == nil {
		result.Months = []string{}
	}
	if len(months) == 0 {
		return result, nil
	}

	month := months[page-1]
	txs, err := q.ListTransactions(ctx, f, month)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	if txs != nil {
		result.Transactions = txs
	}
	result.CurrentMonth = &month
	return result, nil
}

// clampPage keeps page within [1, pages]; with no pages it is 1.
func clampPage(page, pages int) int {
	switch {
	case page < 1, pages == 0:
		return 1
	case page > pages:
		return pages
	}
	return page
}

// ClearAll deletes every transaction. Tags and categories survive.
func (s *TransactionService) ClearAll(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		n, err = q.DeleteAllTransactions(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}

	slog.InfoContext(ctx, "All transactions cleared", applog.FieldCount, n)
	s.notifier.Notify(ctx, core.Change{Kind: core.TransactionsCleared, Count: int(n), At: s.now()})
	return n, nil
}

type sample struct {
	description string
	cents       int64
	txType      core.TransactionType
	daysAgo     int
	category    string
}

var sampleTransactions = []sample{
	{"Monthly Salary", 500000, core.Income, 1, "salary"},
	{"Grocery Shopping", 12550, core.Expense, 2, "food"},
	{"Gas Station", 4500, core.Expense, 3, "transport"},
	{"Restaurant Dinner", 8530, core.Expense, 5, "food"},
	{"Freelance Project", 150000, core.Income, 7, "salary"},
}

// SeedSampleData inserts a fixed set of transactions dated relative to today.
func (s *TransactionService) SeedSampleData(ctx context.Context) (int, error) {
	today := s.today()
	now := s.now()

	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		for _, smp := range sampleTransactions {
			in, err := core.TransactionInput{
				Description: smp.description,
				Amount:      core.Money{Cents: smp.cents},
				Type:        smp.txType,
				Date:        today.AddDays(-smp.daysAgo),
				Category:    smp.category,
			}.Normalize()
			if err != nil {
				return err
			}
			if _, err := createTransaction(ctx, q, in, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed sample data: %w", err)
	}

	slog.InfoContext(ctx, "Sample data loaded", applog.FieldCount, len(sampleTransactions))
	s.notifier.Notify(ctx, core.Change{Kind: core.TransactionsAdded, Count: len(sampleTransactions), At: now})
	return len(sampleTransactions), nil
}
