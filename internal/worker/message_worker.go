// Package worker connects the AMQP inbound queue to the dispatcher.
package worker

import (
	"context"
	"errors"
	"sync/atomic"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/bot"
	"ledgerbot/internal/log"
)

// Dispatcher answers one chat message.
type Dispatcher interface {
	Handle(ctx context.Context, m bot.Message) (string, bool)
}

// ReplyPublisher sends replies back to the chat side.
type ReplyPublisher interface {
	PublishReply(ctx context.Context, reply amqp.ReplyMessage) error
}

// Consumer feeds inbound messages to a handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Stats counts what the worker has done since start.
type Stats struct {
	Processed   int64
	Replied     int64
	ReplyFailed int64
	Unanswered  int64
}

// MessageWorker handles chat messages arriving on the inbound queue
type MessageWorker struct {
	dispatcher Dispatcher
	replies    ReplyPublisher
	logger     *log.Logger

	processed   atomic.Int64
	replied     atomic.Int64
	replyFailed atomic.Int64
	unanswered  atomic.Int64
}

func NewMessageWorker(d Dispatcher, replies ReplyPublisher, logger *log.Logger) *MessageWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MessageWorker{
		dispatcher: d,
		replies:    replies,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes until ctx is cancelled. Cancellation is a clean stop.
func (w *MessageWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Message worker started", log.FieldOperation, log.OpStartup)
	err := c.Consume(ctx, w.HandleMessage)
	w.logger.InfoContext(ctx, "Message worker stopped", log.FieldOperation, log.OpShutdown)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleMessage dispatches msg and publishes the reply. A message that
// arrives after shutdown began is returned to the queue untouched. Reply
// failures are logged, not retried: the expense may already be stored and
// a redelivery would record it twice.
func (w *MessageWorker) HandleMessage(ctx context.Context, msg amqp.InboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.processed.Add(1)

	reply, ok := w.dispatcher.Handle(ctx, bot.Message{
		ID:        msg.MessageID,
		AuthorID:  msg.AuthorID,
		ChannelID: msg.ChannelID,
		Text:      msg.Text,
	})
	if !ok {
		w.unanswered.Add(1)
		w.logger.DebugContext(ctx, "No reply for message",
			log.FieldMessageID, msg.MessageID,
			log.FieldAuthorID, msg.AuthorID)
		return nil
	}

	err := w.replies.PublishReply(ctx, amqp.ReplyMessage{
		CorrelationID: msg.MessageID,
		ChannelID:     msg.ChannelID,
		Text:          reply,
	})
	if err != nil {
		w.replyFailed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to publish reply",
			log.FieldOperation, log.OpPublish,
			log.FieldMessageID, msg.MessageID,
			log.FieldError, err)
		return nil
	}
	w.replied.Add(1)
	return nil
}

func (w *MessageWorker) Stats() Stats {
	return Stats{
		Processed:   w.processed.Load(),
		Replied:     w.replied.Load(),
		ReplyFailed: w.replyFailed.Load(),
		Unanswered:  w.unanswered.Load(),
	}
}
