package storage

import (
	"context"
	"fmt"

	"ledger/internal/core"

	sq "github.com/Masterminds/squirrel"
)

// sumCents keeps SUM an integer in both dialects and zero over no rows.
func sumCents(cond string) string {
	return "COALESCE(CAST(SUM(CASE WHEN " + cond + " THEN t.amount_cents ELSE 0 END) AS BIGINT), 0)"
}

var (
	expenseSum = sumCents("t.type = 'expense'")
	incomeSum  = sumCents("t.type = 'income'")
)

// SumByType totals income and expenses of the filtered transactions.
func (q *Queries) SumByType(ctx context.Context, f core.Filter) (core.Summary, error) {
	b, err := applyFilter(q.sb.Select(incomeSum, expenseSum).From("transactions t"), f)
	if err != nil {
		return core.Summary{}, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return core.Summary{}, fmt.Errorf("build summary: %w", err)
	}

	var s core.Summary
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&s.Income.Cents, &s.Expenses.Cents); err != nil {
		return core.Summary{}, fmt.Errorf("summary: %w", err)
	}
	return s, nil
}

// SumByCategory totals the filtered transactions per category. Each
// transaction counts once, under its lowest-id category tag; transactions
// without a category are left out. Rows come back ordered by tag name.
func (q *Queries) SumByCategory(ctx context.Context, f core.Filter) ([]core.CategoryTotal, error) {
	b := q.sb.Select("g.name", expenseSum, incomeSum).
		From("transactions t").
		Join("transaction_tags tt ON tt.transaction_id = t.id").
		Join("tags g ON g.id = tt.tag_id").
		Where(sq.Expr(`g.id = (
			SELECT MIN(g2.id) FROM transaction_tags tt2
			JOIN tags g2 ON g2.id = tt2.tag_id
			WHERE tt2.transaction_id = t.id AND substr(g2.name, 1, ?) = ?)`,
			categoryPrefixLen, core.CategoryPrefix))

	b, err := applyFilter(b, f)
	if err != nil {
		return nil, err
	}
	query, args, err := b.GroupBy("g.name").OrderBy("g.name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category breakdown: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var (
			name string
			ct   core.CategoryTotal
		)
		if err := rows.Scan(&name, &ct.Expenses.Cents, &ct.Income.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.Category, _ = core.CategoryName(name)
		out = append(out, ct)
	}
	return out, rows.Err()
}

// SumByMonth totals the filtered transactions per YYYY-MM, oldest first.
func (q *Queries) SumByMonth(ctx context.Context, f core.Filter) ([]core.MonthTotal, error) {
	b, err := applyFilter(q.sb.Select(monthExpr+" AS month", expenseSum, incomeSum).From("transactions t"), f)
	if err != nil {
		return nil, err
	}
	query, args, err := b.GroupBy(monthExpr).OrderBy("month").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build monthly trend: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	defer rows.Close()

	var out []core.MonthTotal
	for rows.Next() {
		var mt core.MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Expenses.Cents, &mt.Income.Cents); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}
