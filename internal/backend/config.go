package backend

import (
	"fmt"

	"ledger/internal/config"
	"ledger/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	driver := storage.Driver(appConfig.DBDriver)
	if !driver.IsValid() {
		return Config{}, fmt.Errorf("invalid database driver in config: %s", appConfig.DBDriver)
	}

	return Config{
		Storage: storage.Config{
			Driver:      driver,
			SQLitePath:  appConfig.SQLiteDBPath,
			DatabaseURL: appConfig.DatabaseURL,
		},

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		StatsCacheSize: appConfig.StatsCacheSize,
		StatsCacheTTL:  appConfig.StatsCacheTTL,
		ImportMaxBytes: appConfig.ImportMaxBytes,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Storage.Driver.IsValid() {
		return fmt.Errorf("invalid database driver: %s", c.Storage.Driver)
	}

	switch c.Storage.Driver {
	case storage.SQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for the sqlite driver")
		}
	case storage.Postgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for the postgres driver")
		}
	}

	// AMQP is optional, but a URL needs somewhere to publish
	if c.AMQPEnabled() && c.AMQPExchange == "" {
		return fmt.Errorf("AMQP exchange is required when AMQP URL is set")
	}

	return nil
}
