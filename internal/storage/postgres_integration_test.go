//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newPostgresRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ledger"),
		postgres.WithUsername("ledger"),
		postgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := Open(ctx, Config{Driver: Postgres, DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPostgresRepository(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	cats, err := repo.Queries().ListTags(ctx, true)
	require.NoError(t, err)
	assert.Len(t, cats, len(core.DefaultCategories))

	lunch := seedTx(t, repo, "Lunch", 1250, core.Expense, "2024-03-10", "category:food", "work")
	seedTx(t, repo, "Salary", 300000, core.Income, "2024-03-01", "category:salary")
	seedTx(t, repo, "Bus", 275, core.Expense, "2024-02-20", "category:transport", "work")

	tx, err := repo.Queries().GetTransaction(ctx, lunch)
	require.NoError(t, err)
	assert.Equal(t, "food", tx.Category())
	assert.Equal(t, testNow, tx.CreatedAt.UTC())

	txs, err := repo.Queries().ListTransactions(ctx, core.Filter{Tags: []string{"work"}}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lunch", "Bus"}, descriptions(txs))

	months, err := repo.Queries().ListMonths(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03", "2024-02"}, months)

	sum, err := repo.Queries().SumByType(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(300000), sum.Income.Cents)
	assert.Equal(t, int64(1525), sum.Expenses.Cents)

	breakdown, err := repo.Queries().SumByCategory(ctx, core.Filter{Categories: []string{"food", "transport"}})
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{
		{Category: "food", Expenses: core.Money{Cents: 1250}},
		{Category: "transport", Expenses: core.Money{Cents: 275}},
	}, breakdown)

	monthly, err := repo.Queries().SumByMonth(ctx, core.Filter{Start: datePtr("2024-03-01")})
	require.NoError(t, err)
	assert.Equal(t, []core.MonthTotal{
		{Month: "2024-03", Expenses: core.Money{Cents: 1250}, Income: core.Money{Cents: 300000}},
	}, monthly)

	food, err := repo.Queries().GetTagByName(ctx, "category:food")
	require.NoError(t, err)
	work, err := repo.Queries().GetTagByName(ctx, "work")
	require.NoError(t, err)
	require.NoError(t, repo.InTx(ctx, func(q *Queries) error {
		_, err := q.MoveTagAssociations(ctx, work.ID, food.ID)
		return err
	}))
	n, err := repo.Queries().CountTagUsage(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	err = repo.InTx(ctx, func(q *Queries) error {
		_, err := q.InsertTag(ctx, "work", testNow)
		return err
	})
	assert.True(t, core.IsConflictError(err))
}
