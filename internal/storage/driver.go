package storage

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

// Driver selects the SQL dialect and database/sql driver.
type Driver string

func (d Driver) IsValid() bool {
	return d == SQLite || d == Postgres
}

func (d Driver) String() string {
	return string(d)
}

// sqlDriverName is the name registered with database/sql.
func (d Driver) sqlDriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Driver) placeholders() sq.PlaceholderFormat {
	if d == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// sqliteDSN enables foreign keys (cascades), waits on locks and takes the
// write lock when a transaction begins.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func dsnFor(d Driver, cfg Config) (string, error) {
	switch d {
	case SQLite:
		if cfg.SQLitePath == "" {
			return "", errors.New("sqlite path is required")
		}
		return sqliteDSN(cfg.SQLitePath), nil
	case Postgres:
		if cfg.DatabaseURL == "" {
			return "", errors.New("database url is required for postgres")
		}
		return cfg.DatabaseURL, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", d)
	}
}

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure in either dialect.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
