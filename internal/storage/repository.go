package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Driver      Driver
	SQLitePath  string
	DatabaseURL string
}

// Repository owns the connection pool and runs units of work.
type Repository struct {
	db      *sql.DB
	driver  Driver
	queries *Queries
}

// Open connects, pings and migrates the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	if !cfg.Driver.IsValid() {
		return nil, fmt.Errorf("unsupported driver: %q", cfg.Driver)
	}
	dsn, err := dsnFor(cfg.Driver, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == SQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver.sqlDriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == SQLite {
		// One writer at a time; WAL lets readers proceed.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(cfg.Driver, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		driver:  cfg.Driver,
		queries: New(db, cfg.Driver),
	}, nil
}

// Queries returns read queries bound to the pool.
func (r *Repository) Queries() *Queries {
	return r.queries
}

func (r *Repository) Driver() Driver {
	return r.driver
}

// InTx runs fn inside one database transaction. Any error from fn rolls
// everything back; otherwise the transaction is committed.
func (r *Repository) InTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
