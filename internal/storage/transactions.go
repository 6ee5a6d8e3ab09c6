package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ledger/internal/core"

	sq "github.com/Masterminds/squirrel"
)

// tagLoadBatch keeps IN lists well under driver parameter limits.
const tagLoadBatch = 500

var transactionColumns = []string{
	"t.id", "t.description", "t.amount_cents", "t.type", "t.date", "t.created_at", "t.updated_at",
}

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx               core.Transaction
		txType, date     string
		created, updated dbTime
	)
	if err := row.Scan(&tx.ID, &tx.Description, &tx.Amount.Cents, &txType, &date, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d has invalid date %q", tx.ID, date)
	}
	tx.Type = core.TransactionType(txType)
	tx.Date = d
	tx.CreatedAt = created.Time
	tx.UpdatedAt = updated.Time
	return tx, nil
}

// InsertTransaction stores a normalized input without tags and returns its id.
func (q *Queries) InsertTransaction(ctx context.Context, in core.TransactionInput, now time.Time) (int64, error) {
	query, args, err := q.sb.Insert("transactions").
		Columns("description", "amount_cents", "type", "date", "created_at", "updated_at").
		Values(in.Description, in.Amount.Cents, string(in.Type), in.Date.String(), now.UTC(), now.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert transaction: %w", err)
	}

	var id int64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// UpdateTransaction rewrites the scalar fields; tags are handled separately.
func (q *Queries) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput, now time.Time) error {
	query, args, err := q.sb.Update("transactions").
		Set("description", in.Description).
		Set("amount_cents", in.Amount.Cents).
		Set("type", string(in.Type)).
		Set("date", in.Date.String()).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update transaction: %w", err)
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("transaction", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteTransaction removes a transaction and its associations, never its tags.
func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	if _, err := q.exec(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete transaction %d associations: %w", id, err)
	}
	n, err := q.exec(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return n > 0, nil
}

// DeleteAllTransactions empties the ledger; tags and categories are kept.
func (q *Queries) DeleteAllTransactions(ctx context.Context) (int64, error) {
	if _, err := q.exec(ctx, `DELETE FROM transaction_tags`); err != nil {
		return 0, fmt.Errorf("delete all associations: %w", err)
	}
	n, err := q.exec(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("delete all transactions: %w", err)
	}
	return n, nil
}

func (q *Queries) AttachTag(ctx context.Context, transactionID, tagID int64) error {
	_, err := q.exec(ctx, `
		INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)
		ON CONFLICT (transaction_id, tag_id) DO NOTHING`, transactionID, tagID)
	if err != nil {
		return fmt.Errorf("attach tag %d to transaction %d: %w", tagID, transactionID, err)
	}
	return nil
}

func (q *Queries) DetachAllTags(ctx context.Context, transactionID int64) error {
	if _, err := q.exec(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, transactionID); err != nil {
		return fmt.Errorf("detach tags from transaction %d: %w", transactionID, err)
	}
	return nil
}

// GetTransaction loads one transaction with its tags.
func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	query, args, err := q.sb.Select(transactionColumns...).
		From("transactions t").
		Where(sq.Eq{"t.id": id}).
		ToSql()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("build get transaction: %w", err)
	}

	tx, err := scanTransaction(q.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewNotFoundError("transaction", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}

	txs := []core.Transaction{tx}
	if err := q.loadTags(ctx, txs); err != nil {
		return core.Transaction{}, err
	}
	return txs[0], nil
}

// ListTransactions returns the filtered transactions ordered by date then id,
// newest first. A non-empty month restricts the result to that YYYY-MM bucket.
func (q *Queries) ListTransactions(ctx context.Context, f core.Filter, month string) ([]core.Transaction, error) {
	b, err := applyFilter(q.sb.Select(transactionColumns...).From("transactions t"), f)
	if err != nil {
		return nil, err
	}
	if month != "" {
		b = b.Where(sq.Eq{monthExpr: month})
	}

	query, args, err := b.OrderBy("t.date DESC", "t.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list transactions: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	rows.Close()

	if err := q.loadTags(ctx, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// ListMonths returns the distinct YYYY-MM buckets of the filtered
// transactions, newest first.
func (q *Queries) ListMonths(ctx context.Context, f core.Filter) ([]string, error) {
	b, err := applyFilter(q.sb.Select(monthExpr+" AS month").Distinct().From("transactions t"), f)
	if err != nil {
		return nil, err
	}
	query, args, err := b.OrderBy("month DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list months: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// CountTransactions counts the filtered transactions.
func (q *Queries) CountTransactions(ctx context.Context, f core.Filter) (int, error) {
	b, err := applyFilter(q.sb.Select("COUNT(*)").From("transactions t"), f)
	if err != nil {
		return 0, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count transactions: %w", err)
	}

	var n int
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// loadTags fills Tags for each transaction, ordered by tag id.
func (q *Queries) loadTags(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	index := make(map[int64]int, len(txs))
	for i := range txs {
		index[txs[i].ID] = i
		txs[i].Tags = []core.Tag{}
	}

	for start := 0; start < len(txs); start += tagLoadBatch {
		end := min(start+tagLoadBatch, len(txs))
		ids := make([]int64, 0, end-start)
		for _, tx := range txs[start:end] {
			ids = append(ids, tx.ID)
		}

		query, args, err := q.sb.Select("tt.transaction_id", "g.id", "g.name", "g.created_at").
			From("transaction_tags tt").
			Join("tags g ON g.id = tt.tag_id").
			Where(sq.Eq{"tt.transaction_id": ids}).
			OrderBy("tt.transaction_id", "g.id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build load tags: %w", err)
		}

		if err := q.scanTagRows(ctx, query, args, txs, index); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) scanTagRows(ctx context.Context, query string, args []any, txs []core.Transaction, index map[int64]int) error {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txID    int64
			tag     core.Tag
			created dbTime
		)
		if err := rows.Scan(&txID, &tag.ID, &tag.Name, &created); err != nil {
			return fmt.Errorf("scan tag row: %w", err)
		}
		tag.CreatedAt = created.Time
		if i, ok := index[txID]; ok {
			txs[i].Tags = append(txs[i].Tags, tag)
		}
	}
	return rows.Err()
}
