package core

import "time"

// Summary totals income and expenses over a filter.
type Summary struct {
	Income   Money
	Expenses Money
}

func (s Summary) Net() Money {
	return s.Income.Sub(s.Expenses)
}

// CategoryTotal is one row of the category breakdown.
type CategoryTotal struct {
	Category string
	Expenses Money
	Income   Money
}

func (c CategoryTotal) Total() Money {
	return c.Expenses.Add(c.Income)
}

// MonthTotal is one YYYY-MM bucket of the monthly trend.
type MonthTotal struct {
	Month    string
	Expenses Money
	Income   Money
}

func (m MonthTotal) Net() Money {
	return m.Income.Sub(m.Expenses)
}

// TransactionPage is one month of a filtered listing.
// CurrentMonth is nil when nothing matched.
type TransactionPage struct {
	Transactions []Transaction
	CurrentMonth *string
	Total        int
	Page         int
	TotalPages   int
	Months       []string
}

// StatsReport combines summary, breakdown and one page of the monthly trend.
type StatsReport struct {
	Summary    Summary
	Breakdown  []CategoryTotal
	Monthly    []MonthTotal
	Page       int
	TotalPages int
}

// ChartData feeds the dashboard charts.
type ChartData struct {
	Breakdown []CategoryTotal
	Monthly   []MonthTotal
}

// ImportResult reports a CSV import. Errors are human-readable per-row messages.
type ImportResult struct {
	ImportID string
	Imported int
	Errors   []string
}

// CategoryInfo pairs a category tag name with its bare name.
type CategoryInfo struct {
	FullName string
	Name     string
}

const (
	TransactionCreated  ChangeKind = "transaction.created"
	TransactionUpdated  ChangeKind = "transaction.updated"
	TransactionDeleted  ChangeKind = "transaction.deleted"
	TransactionsCleared ChangeKind = "transactions.cleared"
	TransactionsAdded   ChangeKind = "transactions.imported"
	TagsChanged         ChangeKind = "tags.changed"
)

// ChangeKind names a committed mutation.
type ChangeKind string

// Change describes a committed mutation for listeners.
type Change struct {
	Kind          ChangeKind
	TransactionID int64
	Month         string
	Count         int
	At            time.Time
}
