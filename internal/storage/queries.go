package storage

import (
	sq "github.com/Masterminds/squirrel"

	"ledgerbot/internal/core"
)

const expensesTable = "expenses"

// queries builds the statements shared by the SQLite and Postgres
// repositories. Only the placeholder style and a few casts differ.
type queries struct {
	ph         sq.PlaceholderFormat
	amountCol  string
	amountExpr string
	sumExpr    string
}

var (
	sqliteQueries = queries{
		ph:         sq.Question,
		amountCol:  "amount",
		amountExpr: "?",
	}
	postgresQueries = queries{
		ph:         sq.Dollar,
		amountCol:  "amount::text",
		amountExpr: "?::numeric",
		sumExpr:    "SUM(amount)::text",
	}
)

func (q queries) insert(e core.Expense, date, recordedAt any) sq.InsertBuilder {
	return sq.Insert(expensesTable).
		Columns("expense_date", "amount", "currency", "category", "description", "recorded_at").
		Values(date, sq.Expr(q.amountExpr, e.Amount.Value()), string(e.Amount.Currency), e.Category, e.Description, recordedAt).
		Suffix("RETURNING id").
		PlaceholderFormat(q.ph)
}

func (q queries) recent(n int) sq.SelectBuilder {
	return sq.Select("id", "expense_date", q.amountCol, "currency", "category", "description", "recorded_at").
		From(expensesTable).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(uint64(n)).
		PlaceholderFormat(q.ph)
}

// amountsByCategory yields one (category, amount) row per group when the
// backend can sum exactly, otherwise one row per record.
func (q queries) amountsByCategory() sq.SelectBuilder {
	if q.sumExpr == "" {
		return sq.Select("category", q.amountCol).From(expensesTable).PlaceholderFormat(q.ph)
	}
	return sq.Select("category", q.sumExpr).
		From(expensesTable).
		GroupBy("category").
		PlaceholderFormat(q.ph)
}

func (q queries) categories() sq.SelectBuilder {
	return sq.Select("DISTINCT category").
		From(expensesTable).
		Where(sq.NotEq{"TRIM(category)": ""}).
		OrderBy("category").
		PlaceholderFormat(q.ph)
}
