package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/core"
)

func TestFormatRow(t *testing.T) {
	m, err := core.NewMoney("12.50", core.EUR)
	require.NoError(t, err)
	e, err := core.NewExpense(core.NewDate(2025, 7, 14), m, "coffee", "Starbucks")
	require.NoError(t, err)

	row := formatRow(e, time.Date(2025, 7, 14, 18, 30, 5, 0, time.UTC))
	assert.Equal(t, []any{"2025-07-14", "12.5", "EUR", "coffee", "Starbucks", "2025-07-14 18:30:05"}, row)
}

func TestRowForFollowsHeader(t *testing.T) {
	m, err := core.NewMoney("12.50", core.EUR)
	require.NoError(t, err)
	e, err := core.NewExpense(core.NewDate(2025, 7, 14), m, "coffee", "Starbucks")
	require.NoError(t, err)
	at := time.Date(2025, 7, 14, 18, 30, 5, 0, time.UTC)

	tests := []struct {
		name   string
		header []string
		want   []any
	}{
		{"current layout", Header, []any{"2025-07-14", "12.5", "EUR", "coffee", "Starbucks", "2025-07-14 18:30:05"}},
		{"original layout", []string{"Date", "Amount", "Category", "Description", "Timestamp"},
			[]any{"2025-07-14", "EUR12.5", "coffee", "Starbucks", "2025-07-14 18:30:05"}},
		{"reordered with extra column", []string{"category", "Notes", "Amount", "Currency"},
			[]any{"coffee", "", "12.5", "EUR"}},
		{"empty sheet", nil, []any{"2025-07-14", "12.5", "EUR", "coffee", "Starbucks", "2025-07-14 18:30:05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rowFor(tt.header, e, at))
		})
	}
}

func TestParseRowsCurrentLayout(t *testing.T) {
	values := [][]any{
		{"Date", "Amount", "Currency", "Category", "Description", "Timestamp"},
		{"2025-07-14", "10.0", "USD", "lunch", "", "2025-07-14 12:00:00"},
		{"2025-07-14", "20.0", "", "gas", "", "2025-07-14 13:00:00"},
		{},
		{"2025-07-14", "oops", "", "gas", "", "2025-07-14 14:00:00"},
	}
	entries, skipped := parseRows(values, "Expenses")
	require.Len(t, entries, 2)
	assert.Equal(t, 1, skipped)

	assert.Equal(t, "USD10.0", entries[0].Amount.String())
	assert.Equal(t, "lunch", entries[0].Category)
	assert.Equal(t, "2025-07-14", entries[0].Date.String())
	assert.Equal(t, "Expenses!A2", entries[0].Ref)
	assert.Equal(t, "20.0", entries[1].Amount.String())
	assert.Equal(t, 13, entries[1].RecordedAt.Hour())
}

func TestParseRowsOlderLayout(t *testing.T) {
	// Rows written before the Currency column existed.
	values := [][]any{
		{"Date", "Amount", "Category", "Description", "Timestamp"},
		{"2025-03-01", "INR150.0", "travel", "cab fare", "2025-03-01 09:15:00"},
		{"2025-03-02", 15.99, "groceries", "at Walmart", "2025-03-02 10:00:00"},
	}
	entries, skipped := parseRows(values, "Expenses")
	require.Len(t, entries, 2)
	assert.Zero(t, skipped)
	assert.Equal(t, core.INR, entries[0].Amount.Currency)
	assert.Equal(t, "INR150.0", entries[0].Amount.String())
	assert.Equal(t, "cab fare", entries[0].Description)
	assert.Equal(t, "15.99", entries[1].Amount.String())
}

func TestParseRowsWithoutHeader(t *testing.T) {
	values := [][]any{
		{"2025-07-14", "3", "GBP", "bus", "", "2025-07-14 08:00:00"},
	}
	entries, _ := parseRows(values, "Expenses")
	require.Len(t, entries, 1)
	assert.Equal(t, "GBP3.0", entries[0].Amount.String())
	assert.Equal(t, "Expenses!A1", entries[0].Ref)
}

func TestNewestFirst(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2025, 7, 14, h, 0, 0, 0, time.UTC) }
	entries := []core.Entry{
		{Ref: "a", RecordedAt: at(9)},
		{Ref: "b", RecordedAt: at(11)},
		{Ref: "c", RecordedAt: at(10)},
		{Ref: "d", RecordedAt: at(11)},
	}
	newestFirst(entries)

	refs := make([]string, len(entries))
	for i, e := range entries {
		refs[i] = e.Ref
	}
	assert.Equal(t, []string{"d", "b", "c", "a"}, refs)
}
