package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ledgerbot/internal/parser"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text>",
		Short: "Parse an expense message without recording it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := parser.Parse(strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("parse expense: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "date:        %s\n", e.Date)
			fmt.Fprintf(out, "amount:      %s\n", e.Amount.Value())
			fmt.Fprintf(out, "currency:    %s\n", e.Amount.Currency)
			fmt.Fprintf(out, "category:    %s\n", e.Category)
			fmt.Fprintf(out, "description: %s\n", e.Description)
			return nil
		},
	}
}
