package backend

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.Open(ctx, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s repository: %w", config.Storage.Driver, err)
	}

	stats := services.NewStatsService(repo, services.StatsConfig{
		CacheSize: config.StatsCacheSize,
		CacheTTL:  config.StatsCacheTTL,
	})
	notifier := services.NewNotifier(stats)

	// AMQP is optional; a broker outage at startup only disables publishing
	var publisher *amqp.Client
	if config.AMQPEnabled() {
		publisher, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events",
				applog.FieldErrorType, applog.ErrorTypeNetwork,
				applog.FieldError, err)
			publisher = nil
		} else {
			notifier.Subscribe(services.PublishListener(publisher))
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	caches := cache.NewManager()
	stats.RegisterCaches(caches)
	if config.StatsCacheTTL > 0 {
		caches.StartCleanup(config.StatsCacheTTL)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"driver", config.Storage.Driver.String(),
		"amqp_enabled", publisher != nil)

	return &Backend{
		Repo:         repo,
		Notifier:     notifier,
		Transactions: services.NewTransactionService(repo, notifier),
		Tags:         services.NewTagService(repo, notifier),
		Stats:        stats,
		Imports:      services.NewImportService(repo, notifier, config.ImportMaxBytes),
		Caches:       caches,
		Publisher:    publisher,
	}, nil
}

// Close stops cache cleanup and releases the broker and database
// connections.
func (b *Backend) Close() error {
	b.Caches.Stop()

	var errs []error
	if b.Publisher != nil {
		if err := b.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp client: %w", err))
		}
	}
	if err := b.Repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repository: %w", err))
	}
	return errors.Join(errs...)
}
