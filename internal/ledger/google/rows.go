package google

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ledgerbot/internal/core"
)

// TimestampLayout is how the append time is written to the sheet.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the first row of a worksheet created by this package.
var Header = []string{"Date", "Amount", "Currency", "Category", "Description", "Timestamp"}

func formatRow(e core.Expense, now time.Time) []any {
	return []any{
		e.Date.String(),
		e.Amount.Value(),
		string(e.Amount.Currency),
		e.Category,
		e.Description,
		now.UTC().Format(TimestampLayout),
	}
}

// rowFor lays e out under header. Without a Currency column the code goes
// into the amount cell ("USD10.0"), as the original bot wrote it. An
// unrecognised or missing header gets the layout of Header.
func rowFor(header []string, e core.Expense, now time.Time) []any {
	cols, ok := headerColumns(header)
	if !ok {
		return formatRow(e, now)
	}
	row := make([]any, len(header))
	for i := range row {
		row[i] = ""
	}
	set := func(i int, v string) {
		if i >= 0 {
			row[i] = v
		}
	}
	amount := e.Amount.Value()
	if cols.currency < 0 {
		amount = e.Amount.String()
	}
	set(cols.date, e.Date.String())
	set(cols.amount, amount)
	set(cols.currency, string(e.Amount.Currency))
	set(cols.category, e.Category)
	set(cols.description, e.Description)
	set(cols.timestamp, now.UTC().Format(TimestampLayout))
	return row
}

// columns maps header names to indexes. Older sheets have no Currency column
// and carry the code inside the amount cell ("USD10.0").
type columns struct {
	date, amount, currency, category, description, timestamp int
}

func headerColumns(header []string) (columns, bool) {
	cols := columns{
		date:        indexOf(header, "Date"),
		amount:      indexOf(header, "Amount"),
		currency:    indexOf(header, "Currency"),
		category:    indexOf(header, "Category"),
		description: indexOf(header, "Description"),
		timestamp:   indexOf(header, "Timestamp"),
	}
	return cols, cols.amount >= 0 && cols.category >= 0
}

// parseRows converts a values matrix whose first row is the header. Rows
// without a readable amount are skipped and counted.
func parseRows(values [][]any, worksheet string) ([]core.Entry, int) {
	out := make([]core.Entry, 0)
	if len(values) == 0 {
		return out, 0
	}
	start := 1
	cols, ok := headerColumns(toStrings(values[0]))
	if !ok {
		// No recognisable header: assume the layout this package writes.
		cols = columns{0, 1, 2, 3, 4, 5}
		start = 0
	}

	skipped := 0
	for i := start; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		amount, err := core.ParseMoney(safeGet(row, cols.amount), core.Currency(strings.ToUpper(safeGet(row, cols.currency))))
		if err != nil {
			skipped++
			continue
		}
		date, _ := core.ParseDate(safeGet(row, cols.date))
		recorded, _ := time.Parse(TimestampLayout, safeGet(row, cols.timestamp))
		out = append(out, core.Entry{
			Expense: core.Expense{
				Date:        date,
				Amount:      amount,
				Category:    safeGet(row, cols.category),
				Description: safeGet(row, cols.description),
			},
			RecordedAt: recorded,
			Ref:        fmt.Sprintf("%s!A%d", worksheet, i+1),
		})
	}
	return out, skipped
}

// newestFirst orders entries by append time, latest row first on ties.
func newestFirst(entries []core.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RecordedAt.After(entries[j].RecordedAt)
	})
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
