package bot

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
)

const (
	ReplyNotUnderstood = "❓ I couldn't understand that expense format. Try something like: '$10 lunch' or '20 gas'"
	ReplyUnavailable   = "❌ Ledger connection not established. Try again later."
	ReplyRateLimited   = "⏳ You're sending messages too quickly. Please wait a minute and try again."
	ReplyNoRecent      = "No recent expenses found."
	ReplyNoCategories  = "No expense categories found yet."
)

func helpText(prefix string, defaultRecent int) string {
	var b strings.Builder
	b.WriteString("**Expense Tracker Bot Help**\n\n")
	b.WriteString("**Direct Message Format:**\n")
	b.WriteString("Simply send me a message with your expense like:\n")
	b.WriteString("- `$10 lunch`\n")
	b.WriteString("- `20 gas`\n")
	b.WriteString("- `€12.50 coffee Starbucks`\n")
	b.WriteString("- `15.99 groceries at Walmart`\n\n")
	b.WriteString("Currencies: $ ₹ € ¥ £ or a code (USD, INR, EUR, GBP, JPY) before the amount.\n")
	fmt.Fprintf(&b, "Suggested categories: %s\n\n", strings.Join(core.DefaultCategories, ", "))
	b.WriteString("**Commands:**\n")
	fmt.Fprintf(&b, "- `%sexpensehelp` - Show this help message\n", prefix)
	fmt.Fprintf(&b, "- `%srecent [n]` - Show your n most recent expenses (default: %d)\n", prefix, defaultRecent)
	fmt.Fprintf(&b, "- `%stotal [category]` - Show total expenses [in a category]\n", prefix)
	fmt.Fprintf(&b, "- `%scategories` - List all expense categories\n\n", prefix)
	b.WriteString("I'll save your expenses to the ledger automatically!")
	return b.String()
}

func savedReply(e core.Expense) string {
	return fmt.Sprintf("✅ Expense saved: %s for %s - %s", e.Amount, e.Category, e.Description)
}

func errorReply(what string, reason string) string {
	return fmt.Sprintf("❌ Error %s: %s", what, reason)
}

func recentReply(entries []core.Entry) string {
	if len(entries) == 0 {
		return ReplyNoRecent
	}
	var b strings.Builder
	b.WriteString("**Recent Expenses:**")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n• %s: %s for %s - %s", e.Date, e.Amount, e.Category, e.Description)
	}
	return b.String()
}

func totalReply(t core.Totals) string {
	if t.Filter != "" {
		return fmt.Sprintf("**Total Expenses for %s:** %s", capitalize(t.Filter), formatTotal(t.Total))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Total Expenses:** %s", formatTotal(t.Total))
	if len(t.ByCategory) > 0 {
		b.WriteString("\n\n**Breakdown by Category:**")
		for _, c := range t.ByCategory {
			fmt.Fprintf(&b, "\n• %s: %s", c.Name, formatTotal(c.Amount))
		}
	}
	return b.String()
}

func categoriesReply(cats []string) string {
	if len(cats) == 0 {
		return ReplyNoCategories
	}
	return "**Available Categories:**\n• " + strings.Join(cats, "\n• ")
}

// formatTotal renders sums with two decimals. Sums may mix currencies, so
// no code is shown.
func formatTotal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
