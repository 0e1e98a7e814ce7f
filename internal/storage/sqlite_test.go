package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	tick := time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}
	return repo
}

func mustExpense(t *testing.T, amount string, cur core.Currency, category, desc string) core.Expense {
	t.Helper()
	m, err := core.NewMoney(amount, cur)
	require.NoError(t, err)
	e, err := core.NewExpense(core.NewDate(2025, 7, 14), m, category, desc)
	require.NoError(t, err)
	return e
}

func TestSQLiteAppendAndListRecent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.Append(ctx, mustExpense(t, "10", core.USD, "lunch", ""))
	require.NoError(t, err)
	assert.Equal(t, "sqlite:1", first.Ref)
	_, err = repo.Append(ctx, mustExpense(t, "12.50", core.EUR, "coffee", "Starbucks"))
	require.NoError(t, err)
	_, err = repo.Append(ctx, mustExpense(t, "20", core.NoCurrency, "gas", ""))
	require.NoError(t, err)

	got, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "gas", got[0].Category)
	assert.Equal(t, "20.0", got[0].Amount.String())
	assert.Equal(t, "EUR12.5", got[1].Amount.String())
	assert.Equal(t, "Starbucks", got[1].Description)
	assert.Equal(t, "2025-07-14", got[2].Date.String())
	assert.True(t, got[0].RecordedAt.After(got[2].RecordedAt))

	got, err = repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteTotalsAndCategories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, e := range []core.Expense{
		mustExpense(t, "10", core.USD, "food", ""),
		mustExpense(t, "0.1", core.NoCurrency, "food", ""),
		mustExpense(t, "0.2", core.NoCurrency, "food", ""),
		mustExpense(t, "40", core.NoCurrency, "gas", ""),
	} {
		_, err := repo.Append(ctx, e)
		require.NoError(t, err)
	}

	totals, err := repo.SumByCategory(ctx, "Food")
	require.NoError(t, err)
	assert.Equal(t, "10.3", core.FormatDecimal(totals.Total))
	require.Len(t, totals.ByCategory, 2)
	assert.Equal(t, "gas", totals.ByCategory[1].Name)

	totals, err = repo.SumByCategory(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "50.3", core.FormatDecimal(totals.Total))

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "gas"}, cats)
}

func TestSQLiteEmptyLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	totals, err := repo.SumByCategory(ctx, "")
	require.NoError(t, err)
	assert.True(t, totals.Total.IsZero())
	assert.Empty(t, totals.ByCategory)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	_, err = repo.Append(ctx, mustExpense(t, "3", core.GBP, "bus", ""))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GBP3.0", got[0].Amount.String())
}

func TestSQLiteClosedIsReported(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.ListRecent(context.Background(), 5)
	assert.ErrorIs(t, err, ledger.ErrOperationFailed)
	assert.ErrorIs(t, repo.Ping(context.Background()), ledger.ErrUnavailable)
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("LEDGERBOT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGERBOT_TEST_DATABASE_URL not set, skipping Postgres test")
	}
	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, url, nil)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.Append(ctx, mustExpense(t, "7.25", core.USD, "parking", "downtown"))
	require.NoError(t, err)
	got, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "parking", got[0].Category)
}
