package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Totals is the answer to a sum-by-category query. Total honours Filter,
// ByCategory always covers every record.
type Totals struct {
	Filter     string
	Total      decimal.Decimal
	ByCategory []CategoryAmount
}

// Summarize aggregates entries the way every ledger backend reports totals.
// Amounts are summed by value; currencies are not converted.
func Summarize(expenses []Expense, filter string) Totals {
	pairs := make([]CategoryAmount, len(expenses))
	for i, e := range expenses {
		pairs[i] = CategoryAmount{Name: e.Category, Amount: e.Amount.Amount}
	}
	return SummarizeAmounts(pairs, filter)
}

// SummarizeAmounts is Summarize over (category, amount) pairs, which may
// already be partially grouped, e.g. by a SQL GROUP BY.
func SummarizeAmounts(pairs []CategoryAmount, filter string) Totals {
	filter = strings.TrimSpace(filter)
	total := decimal.Zero
	byCat := map[string]decimal.Decimal{}
	for _, p := range pairs {
		if filter == "" || strings.EqualFold(p.Name, filter) {
			total = total.Add(p.Amount)
		}
		byCat[p.Name] = byCat[p.Name].Add(p.Amount)
	}
	list := make([]CategoryAmount, 0, len(byCat))
	for name, amt := range byCat {
		list = append(list, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return Totals{Filter: filter, Total: total, ByCategory: list}
}

// DistinctCategories returns the sorted set of non-empty categories.
func DistinctCategories(expenses []Expense) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, e := range expenses {
		c := strings.TrimSpace(e.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DefaultCategories are suggested in help text; any token is accepted.
var DefaultCategories = []string{
	"food", "groceries", "gas", "transportation", "utilities", "rent",
	"entertainment", "shopping", "health", "education", "travel", "other",
}
