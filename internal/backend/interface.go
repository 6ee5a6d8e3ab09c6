package backend

import (
	"context"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// Backend is the wired service graph for one database.
type Backend struct {
	Repo         *storage.Repository
	Notifier     *services.Notifier
	Transactions *services.TransactionService
	Tags         *services.TagService
	Stats        *services.StatsService
	Imports      *services.ImportService
	Caches       *cache.Manager

	// Publisher is nil when AMQP is disabled or the broker was unreachable.
	Publisher *amqp.Client
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the database and builds the services on top of it.
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Storage storage.Config

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	StatsCacheSize int
	StatsCacheTTL  time.Duration
	ImportMaxBytes int64
}

// AMQPEnabled reports whether change events should be published.
func (c Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}
