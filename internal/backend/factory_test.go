package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/storage"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DBDriver:       "postgres",
		DatabaseURL:    "postgres://localhost/ledger",
		AMQPURL:        "amqp://localhost:5672/",
		AMQPExchange:   "ledger",
		AMQPQueue:      "ledger_events",
		StatsCacheSize: 8,
		StatsCacheTTL:  time.Minute,
		ImportMaxBytes: 1024,
	}

	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, storage.Postgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/ledger", cfg.Storage.DatabaseURL)
	assert.True(t, cfg.AMQPEnabled())
	assert.Equal(t, 8, cfg.StatsCacheSize)
	assert.Equal(t, int64(1024), cfg.ImportMaxBytes)

	_, err = FromAppConfig(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "sqlite",
			config:  Config{Storage: storage.Config{Driver: storage.SQLite, SQLitePath: "ledger.db"}},
			wantErr: false,
		},
		{
			name:    "sqlite without path",
			config:  Config{Storage: storage.Config{Driver: storage.SQLite}},
			wantErr: true,
		},
		{
			name:    "postgres without url",
			config:  Config{Storage: storage.Config{Driver: storage.Postgres}},
			wantErr: true,
		},
		{
			name: "amqp without exchange",
			config: Config{
				Storage: storage.Config{Driver: storage.SQLite, SQLitePath: "ledger.db"},
				AMQPURL: "amqp://localhost:5672/",
			},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			config:  Config{Storage: storage.Config{Driver: "oracle"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateBackendSQLite(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	b, err := f.CreateBackend(ctx, Config{
		Storage: storage.Config{
			Driver:     storage.SQLite,
			SQLitePath: filepath.Join(t.TempDir(), "ledger.db"),
		},
		StatsCacheSize: 4,
		StatsCacheTTL:  time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, b.Close()) })

	assert.Nil(t, b.Publisher)
	require.NoError(t, b.Repo.Ping(ctx))

	before, err := b.Stats.Report(ctx, core.Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), before.Summary.Expenses.Cents)

	_, err = b.Transactions.Create(ctx, core.TransactionInput{
		Description: "Coffee",
		Amount:      core.Money{Cents: 450},
		Type:        core.Expense,
		Date:        civil.DateOf(time.Now()),
		Category:    "food",
	})
	require.NoError(t, err)

	// The notifier wired by the factory must drop the cached report.
	after, err := b.Stats.Report(ctx, core.Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(450), after.Summary.Expenses.Cents)
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{})
	assert.Error(t, err)
}
