// Package bot turns one chat message into one reply. Transports (Discord,
// AMQP, HTTP) hand messages to a Dispatcher and send back whatever it
// returns.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
	"ledgerbot/internal/middleware/ratelimit"
	"ledgerbot/internal/parser"
)

// Message is a chat message as seen by the dispatcher.
type Message struct {
	ID        string
	AuthorID  string
	ChannelID string
	Text      string
}

// Service is the expense service the dispatcher drives.
type Service interface {
	Record(ctx context.Context, text string) (core.Entry, error)
	Recent(ctx context.Context, n int) ([]core.Entry, error)
	Totals(ctx context.Context, category string) (core.Totals, error)
	Categories(ctx context.Context) ([]string, error)
}

type Config struct {
	Prefix        string
	DefaultRecent int
	MaxRecent     int
}

func DefaultConfig() Config {
	return Config{Prefix: "!", DefaultRecent: 5, MaxRecent: 25}
}

type Dispatcher struct {
	svc     Service
	cfg     Config
	limiter *ratelimit.Limiter
	logger  *log.Logger
}

// New builds a Dispatcher. limiter may be nil to disable rate limiting.
func New(svc Service, cfg Config, limiter *ratelimit.Limiter, logger *log.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.MaxRecent <= 0 {
		cfg.MaxRecent = def.MaxRecent
	}
	if cfg.DefaultRecent <= 0 || cfg.DefaultRecent > cfg.MaxRecent {
		cfg.DefaultRecent = min(def.DefaultRecent, cfg.MaxRecent)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Dispatcher{svc: svc, cfg: cfg, limiter: limiter, logger: logger.WithComponent(log.ComponentBot)}
}

// Handle returns the reply for m. ok is false when the message deserves no
// reply, e.g. an unknown command.
func (d *Dispatcher) Handle(ctx context.Context, m Message) (reply string, ok bool) {
	if d.limiter != nil && !d.limiter.Allow(m.AuthorID) {
		d.logger.WarnContext(ctx, "Rate limited author", log.FieldAuthorID, m.AuthorID)
		return ReplyRateLimited, true
	}

	text := strings.TrimSpace(m.Text)
	if strings.HasPrefix(text, d.cfg.Prefix) {
		return d.command(ctx, m, strings.Fields(text[len(d.cfg.Prefix):]))
	}
	return d.expense(ctx, m), true
}

func (d *Dispatcher) expense(ctx context.Context, m Message) string {
	entry, err := d.svc.Record(ctx, m.Text)
	switch {
	case err == nil:
		return savedReply(entry.Expense)
	case errors.Is(err, parser.ErrNoMatch):
		return ReplyNotUnderstood
	case errors.Is(err, ledger.ErrUnavailable):
		return ReplyUnavailable
	default:
		d.logger.ErrorContext(ctx, "Error processing expense",
			log.FieldAuthorID, m.AuthorID,
			log.FieldMessageID, m.ID,
			log.FieldError, err)
		return errorReply("processing expense", ledger.Reason(err))
	}
}

func (d *Dispatcher) command(ctx context.Context, m Message, args []string) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	name := strings.ToLower(args[0])
	d.logger.DebugContext(ctx, "Command received", log.FieldCommand, name, log.FieldAuthorID, m.AuthorID)

	switch name {
	case "expensehelp":
		return helpText(d.cfg.Prefix, d.cfg.DefaultRecent), true
	case "recent":
		return d.recent(ctx, args[1:]), true
	case "total":
		category := ""
		if len(args) > 1 {
			category = args[1]
		}
		t, err := d.svc.Totals(ctx, category)
		if err != nil {
			return d.queryError(ctx, "retrieving total expenses", err), true
		}
		return totalReply(t), true
	case "categories":
		cats, err := d.svc.Categories(ctx)
		if err != nil {
			return d.queryError(ctx, "retrieving categories", err), true
		}
		return categoriesReply(cats), true
	default:
		return "", false
	}
}

func (d *Dispatcher) recent(ctx context.Context, args []string) string {
	n := d.cfg.DefaultRecent
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 || v > d.cfg.MaxRecent {
			return fmt.Sprintf("❓ Usage: `%srecent [n]` where n is between 1 and %d", d.cfg.Prefix, d.cfg.MaxRecent)
		}
		n = v
	}
	entries, err := d.svc.Recent(ctx, n)
	if err != nil {
		return d.queryError(ctx, "retrieving recent expenses", err)
	}
	return recentReply(entries)
}

func (d *Dispatcher) queryError(ctx context.Context, what string, err error) string {
	if errors.Is(err, ledger.ErrUnavailable) {
		return ReplyUnavailable
	}
	d.logger.ErrorContext(ctx, "Query failed", "query", what, log.FieldError, err)
	return errorReply(what, ledger.Reason(err))
}
