package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/bot"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/discord"
	apphttp "ledgerbot/internal/http"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
	"ledgerbot/internal/middleware/ratelimit"
	"ledgerbot/internal/services"
	"ledgerbot/internal/worker"
)

var errNoTransport = errors.New("no transport enabled: set DISCORD_BOT_TOKEN, AMQP_URL or HTTP_PORT")

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot on every configured transport until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg := a.cfg
	if !cfg.DiscordEnabled() && !cfg.AMQPEnabled() && !cfg.HTTPEnabled() {
		return errNoTransport
	}

	ctx, stop := cli.SignalContext(parent, a.logger)
	defer stop()

	res := cli.OpenBackend(ctx, cfg, a.logger)
	defer func() {
		if err := res.Cleanup(); err != nil {
			a.logger.Error("Failed to close ledger backend", log.FieldBackend, res.Type.String(), log.FieldError, err)
		}
	}()

	opts := []services.Option{services.WithLogger(a.logger)}
	var mq *amqp.Client
	if cfg.AMQPEnabled() {
		mq = amqp.New(amqp.Config{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
			ReplyKey: cfg.AMQPReplyKey,
			EventKey: cfg.AMQPEventKey,
		}, a.logger)
		defer mq.Close()
		opts = append(opts, services.WithPublisher(mq))
	}
	svc := services.NewExpenseService(res.Store, opts...)

	var authorLimiter *ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		authorLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
		defer authorLimiter.Stop()
	}
	dispatcher := bot.New(svc, a.botConfig(), authorLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.DiscordEnabled() {
		b, err := discord.New(cfg.DiscordToken, dispatcher, a.logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return b.Run(gctx) })
	}

	if mq != nil {
		w := worker.NewMessageWorker(dispatcher, mq, a.logger)
		g.Go(func() error { return w.Run(gctx, mq) })
	}

	if cfg.HTTPEnabled() {
		// Keyed by client IP, so kept apart from the per-author limiter.
		var ipLimiter *ratelimit.Limiter
		if cfg.RateLimitPerMinute > 0 {
			ipLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
			defer ipLimiter.Stop()
		}
		srv := apphttp.NewServer(cfg.HTTPAddr(), apphttp.Deps{
			Dispatcher:    dispatcher,
			Service:       svc,
			Ready:         func(ctx context.Context) error { return ledger.Ping(ctx, res.Store) },
			Limiter:       ipLimiter,
			Logger:        a.logger,
			DefaultRecent: cfg.DefaultRecentCount,
			MaxRecent:     cfg.MaxRecentCount,
		})
		g.Go(func() error { return srv.Run(gctx) })
	}

	a.logger.InfoContext(ctx, "ledgerbot started",
		log.FieldOperation, log.OpStartup,
		log.FieldBackend, res.Type.String(),
		"offline", res.Offline(),
		"discord", cfg.DiscordEnabled(),
		"amqp", cfg.AMQPEnabled(),
		"http", cfg.HTTPEnabled())

	err := g.Wait()
	a.logger.Info("ledgerbot stopped", log.FieldOperation, log.OpShutdown)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
