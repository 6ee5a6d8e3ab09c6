package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs parameterized statements against a connection or a
// transaction. Mutations go through a *Queries bound with WithTx.
type Queries struct {
	db     DBTX
	driver Driver
	sb     sq.StatementBuilderType
}

func New(db DBTX, driver Driver) *Queries {
	return &Queries{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(driver.placeholders()),
	}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db:     tx,
		driver: q.driver,
		sb:     q.sb,
	}
}

// rebind rewrites "?" placeholders of a fixed statement for the dialect.
func (q *Queries) rebind(query string) string {
	if q.driver != Postgres {
		return query
	}
	out, _ := sq.Dollar.ReplacePlaceholders(query)
	return out
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// dbTime scans timestamps stored natively (postgres) or as text (sqlite).
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised time format %q", s)
}
