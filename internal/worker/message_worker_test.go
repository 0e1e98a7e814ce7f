package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/bot"
	"ledgerbot/internal/ledger/memory"
	"ledgerbot/internal/log"
	"ledgerbot/internal/services"
)

type replyRecorder struct {
	mu      sync.Mutex
	replies []amqp.ReplyMessage
	err     error
}

func (r *replyRecorder) PublishReply(_ context.Context, reply amqp.ReplyMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.replies = append(r.replies, reply)
	return nil
}

// sliceConsumer hands a fixed list of messages to the handler.
type sliceConsumer struct {
	msgs []amqp.InboundMessage
	errs []error
}

func (c *sliceConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.msgs {
		c.errs = append(c.errs, handler(ctx, m))
	}
	return nil
}

func newWorker(t *testing.T) (*MessageWorker, *memory.Store, *replyRecorder) {
	t.Helper()
	store := memory.NewStore()
	svc := services.NewExpenseService(store)
	d := bot.New(svc, bot.DefaultConfig(), nil, log.Discard())
	rec := &replyRecorder{}
	return NewMessageWorker(d, rec, log.Discard()), store, rec
}

func TestMessageWorker_RecordsAndReplies(t *testing.T) {
	w, store, rec := newWorker(t)

	consumer := &sliceConsumer{msgs: []amqp.InboundMessage{
		{MessageID: "m1", AuthorID: "u1", ChannelID: "c1", Text: "$10 lunch"},
		{MessageID: "m2", AuthorID: "u1", ChannelID: "c1", Text: "hello there"},
		{MessageID: "m3", AuthorID: "u1", ChannelID: "c1", Text: "!nosuchcommand"},
		{MessageID: "m4", AuthorID: "u1", ChannelID: "c1", Text: "!total"},
	}}
	require.NoError(t, w.Run(context.Background(), consumer))

	for _, err := range consumer.errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, store.Len())

	require.Len(t, rec.replies, 3)
	assert.Equal(t, "m1", rec.replies[0].CorrelationID)
	assert.Equal(t, "c1", rec.replies[0].ChannelID)
	assert.True(t, strings.HasPrefix(rec.replies[0].Text, "✅ Expense saved: USD10.0 for lunch"))
	assert.Equal(t, bot.ReplyNotUnderstood, rec.replies[1].Text)
	assert.Equal(t, "m4", rec.replies[2].CorrelationID)
	assert.Contains(t, rec.replies[2].Text, "10.00")

	assert.Equal(t, Stats{Processed: 4, Replied: 3, Unanswered: 1}, w.Stats())
}

func TestMessageWorker_ReplyFailureIsNotRequeued(t *testing.T) {
	w, store, rec := newWorker(t)
	rec.err = errors.New("channel closed")

	err := w.HandleMessage(context.Background(), amqp.InboundMessage{MessageID: "m1", AuthorID: "u1", Text: "20 gas"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(1), w.Stats().ReplyFailed)
}

func TestMessageWorker_CancelledContextRequeues(t *testing.T) {
	w, store, rec := newWorker(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	cancel()

	err := w.HandleMessage(ctx, amqp.InboundMessage{MessageID: "m1", AuthorID: "u1", Text: "20 gas"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Len())
	assert.Empty(t, rec.replies)
}

type cancelledConsumer struct{}

func (cancelledConsumer) Consume(ctx context.Context, _ amqp.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestMessageWorker_RunStopsCleanly(t *testing.T) {
	w, _, _ := newWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx, cancelledConsumer{}))
}
