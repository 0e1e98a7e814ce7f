package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ledgerbot/internal/backend"
	"ledgerbot/internal/bot"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/services"
)

// cliAuthor is the author id one-shot commands dispatch as.
const cliAuthor = "cli"

// session is an opened ledger plus the service and dispatcher over it.
type session struct {
	backend    *backend.BackendResult
	svc        *services.ExpenseService
	dispatcher *bot.Dispatcher
}

// open builds the configured backend. Unlike serve, one-shot commands fail
// when the ledger cannot be reached.
func (a *app) open(ctx context.Context) (*session, error) {
	res := cli.OpenBackend(ctx, a.cfg, a.logger)
	if res.Offline() {
		return nil, fmt.Errorf("open %s backend: %w", res.Type, res.Cause)
	}
	svc := services.NewExpenseService(res.Store, services.WithLogger(a.logger))
	return &session{
		backend:    res,
		svc:        svc,
		dispatcher: bot.New(svc, a.botConfig(), nil, a.logger),
	}, nil
}

func (s *session) close() error { return s.backend.Cleanup() }

func (a *app) botConfig() bot.Config {
	return bot.Config{
		Prefix:        a.cfg.CommandPrefix,
		DefaultRecent: a.cfg.DefaultRecentCount,
		MaxRecent:     a.cfg.MaxRecentCount,
	}
}

// withSession opens the ledger, runs fn and closes the ledger again.
func (a *app) withSession(ctx context.Context, fn func(*session) error) (err error) {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = fmt.Errorf("close backend: %w", cerr)
		}
	}()
	return fn(s)
}

// runCommand sends a prefixed command through the dispatcher and prints
// the reply, the same text a chat user would see.
func (a *app) runCommand(cmd *cobra.Command, words ...string) error {
	return a.withSession(cmd.Context(), func(s *session) error {
		reply, ok := s.dispatcher.Handle(cmd.Context(), bot.Message{
			ID:       "cli",
			AuthorID: cliAuthor,
			Text:     a.cfg.CommandPrefix + strings.Join(words, " "),
		})
		if !ok {
			return fmt.Errorf("unknown command %q", words[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	})
}

func newAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "add <text>",
		Short:   "Record an expense, e.g. ledgerbot add '$10 lunch'",
		Args:    cobra.MinimumNArgs(1),
		Example: "  ledgerbot add '€12.50 coffee Starbucks'\n  ledgerbot add 20 gas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				entry, err := s.svc.Record(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("record expense: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s: %s %s for %s - %s\n",
					entry.Ref, entry.Date, entry.Amount, entry.Category, entry.Description)
				return nil
			})
		},
	}
}

func newRecentCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recent [n]",
		Short: "Show the most recent expenses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand(cmd, append([]string{"recent"}, args...)...)
		},
	}
}

func newTotalCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "total [category]",
		Short: "Show expense totals, overall or for one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand(cmd, append([]string{"total"}, args...)...)
		},
	}
}

func newCategoriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories used so far",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand(cmd, "categories")
		},
	}
}
