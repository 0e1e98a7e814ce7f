package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/ledger/memory"
	"ledgerbot/internal/middleware/ratelimit"
	"ledgerbot/internal/parser"
	"ledgerbot/internal/services"
)

func newDispatcher(t *testing.T, store ledger.Store) *Dispatcher {
	t.Helper()
	p := parser.New(parser.WithClock(func() time.Time {
		return time.Date(2025, 7, 14, 18, 30, 0, 0, time.UTC)
	}))
	svc := services.NewExpenseService(store, services.WithParser(p))
	return New(svc, DefaultConfig(), nil, nil)
}

func send(t *testing.T, d *Dispatcher, text string) string {
	t.Helper()
	reply, ok := d.Handle(context.Background(), Message{AuthorID: "u1", ChannelID: "c1", Text: text})
	require.True(t, ok, "expected a reply to %q", text)
	return reply
}

func TestExpenseReplies(t *testing.T) {
	d := newDispatcher(t, memory.NewStore())

	assert.Equal(t, "✅ Expense saved: USD10.0 for lunch - ", send(t, d, "$10 lunch"))
	assert.Equal(t, "✅ Expense saved: EUR12.5 for coffee - Starbucks", send(t, d, "€12.50 coffee Starbucks"))
	assert.Equal(t, ReplyNotUnderstood, send(t, d, "hello there"))
	assert.Equal(t, ReplyNotUnderstood, send(t, d, ""))
}

func TestExpenseStoreFailures(t *testing.T) {
	d := newDispatcher(t, ledger.Offline{Cause: errors.New("missing GOOGLE_SHEET_ID")})
	assert.Equal(t, ReplyUnavailable, send(t, d, "$10 lunch"))
	assert.Equal(t, ReplyUnavailable, send(t, d, "!recent"))
	assert.Equal(t, ReplyUnavailable, send(t, d, "!total"))
	assert.Equal(t, ReplyUnavailable, send(t, d, "!categories"))

	d = newDispatcher(t, failingStore{Store: memory.NewStore()})
	assert.Equal(t, "❌ Error processing expense: quota exceeded", send(t, d, "$10 lunch"))
	assert.Equal(t, "❌ Error retrieving categories: quota exceeded", send(t, d, "!categories"))
}

type failingStore struct{ ledger.Store }

func (failingStore) Append(context.Context, core.Expense) (core.Entry, error) {
	return core.Entry{}, ledger.Failed("append", errors.New("quota exceeded"))
}

func (failingStore) ListCategories(context.Context) ([]string, error) {
	return nil, ledger.Failed("list categories", errors.New("quota exceeded"))
}

func TestRecentCommand(t *testing.T) {
	d := newDispatcher(t, memory.NewStore())
	assert.Equal(t, ReplyNoRecent, send(t, d, "!recent"))

	for _, msg := range []string{"$10 lunch", "20 gas", "₹100 groceries"} {
		send(t, d, msg)
	}

	reply := send(t, d, "!recent 2")
	assert.Equal(t, "**Recent Expenses:**\n• 2025-07-14: INR100.0 for groceries - \n• 2025-07-14: 20.0 for gas - ", reply)

	reply = send(t, d, "!recent")
	assert.Equal(t, 3, strings.Count(reply, "• "))

	assert.Contains(t, send(t, d, "!recent 0"), "between 1 and 25")
	assert.Contains(t, send(t, d, "!recent 26"), "between 1 and 25")
	assert.Contains(t, send(t, d, "!recent many"), "Usage")
}

func TestTotalCommand(t *testing.T) {
	d := newDispatcher(t, memory.NewStore())
	for _, msg := range []string{"$10 food", "2.5 food", "40 gas"} {
		send(t, d, msg)
	}

	assert.Equal(t, "**Total Expenses for Food:** 12.50", send(t, d, "!total FOOD"))
	assert.Equal(t, "**Total Expenses for Rent:** 0.00", send(t, d, "!total rent"))
	assert.Equal(t,
		"**Total Expenses:** 52.50\n\n**Breakdown by Category:**\n• food: 12.50\n• gas: 40.00",
		send(t, d, "!total"))
}

func TestCategoriesAndHelp(t *testing.T) {
	d := newDispatcher(t, memory.NewStore())
	assert.Equal(t, ReplyNoCategories, send(t, d, "!categories"))

	send(t, d, "20 gas")
	send(t, d, "$10 food")
	assert.Equal(t, "**Available Categories:**\n• food\n• gas", send(t, d, "!categories"))

	help := send(t, d, "!expensehelp")
	assert.Contains(t, help, "`!recent [n]`")
	assert.Contains(t, help, "(default: 5)")
}

func TestUnknownCommandHasNoReply(t *testing.T) {
	d := newDispatcher(t, memory.NewStore())
	for _, text := range []string{"!dance", "!", "  !  "} {
		_, ok := d.Handle(context.Background(), Message{AuthorID: "u1", Text: text})
		assert.False(t, ok, text)
	}
}

func TestCustomPrefix(t *testing.T) {
	svc := services.NewExpenseService(memory.NewStore())
	d := New(svc, Config{Prefix: "?"}, nil, nil)

	reply, ok := d.Handle(context.Background(), Message{Text: "?categories"})
	require.True(t, ok)
	assert.Equal(t, ReplyNoCategories, reply)

	// With another prefix, "!categories" is just unparseable text.
	reply, ok = d.Handle(context.Background(), Message{Text: "!categories"})
	require.True(t, ok)
	assert.Equal(t, ReplyNotUnderstood, reply)
}

func TestRateLimitedAuthor(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2, CleanupInterval: time.Hour})
	defer limiter.Stop()
	svc := services.NewExpenseService(memory.NewStore())
	d := New(svc, DefaultConfig(), limiter, nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		reply, _ := d.Handle(ctx, Message{AuthorID: "spammer", Text: "1 food"})
		assert.NotEqual(t, ReplyRateLimited, reply)
	}
	reply, ok := d.Handle(ctx, Message{AuthorID: "spammer", Text: "1 food"})
	assert.True(t, ok)
	assert.Equal(t, ReplyRateLimited, reply)

	reply, _ = d.Handle(ctx, Message{AuthorID: "someone-else", Text: "1 food"})
	assert.NotEqual(t, ReplyRateLimited, reply)
}
