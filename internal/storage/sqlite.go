package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
)

// recordedAtLayout is fixed width so text ordering matches time ordering.
const recordedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db     *sql.DB
	q      queries
	now    func() time.Time
	logger *log.Logger
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}
	return &SQLiteRepository{
		db:     db,
		q:      sqliteQueries,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentLedger).With(log.FieldBackend, "sqlite"),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, ledger.Failed("append", err)
	}
	at := r.now().UTC()
	query, args, err := r.q.insert(e, e.Date.String(), at.Format(recordedAtLayout)).ToSql()
	if err != nil {
		return core.Entry{}, ledger.Failed("append", fmt.Errorf("build insert: %w", err))
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return core.Entry{}, ledger.Classify("append", fmt.Errorf("create expense: %w", err))
	}

	ref := "sqlite:" + strconv.FormatInt(id, 10)
	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.FieldLedgerRef, ref,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category)
	return core.Entry{Expense: e, RecordedAt: at, Ref: ref}, nil
}

func (r *SQLiteRepository) ListRecent(ctx context.Context, n int) ([]core.Entry, error) {
	if n <= 0 {
		return []core.Entry{}, nil
	}
	query, args, err := r.q.recent(n).ToSql()
	if err != nil {
		return nil, ledger.Failed("list recent", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.Classify("list recent", err)
	}
	defer rows.Close()

	out := make([]core.Entry, 0, n)
	for rows.Next() {
		var (
			id                                int64
			date, amount, currency            string
			category, description, recordedAt string
		)
		if err := rows.Scan(&id, &date, &amount, &currency, &category, &description, &recordedAt); err != nil {
			return nil, ledger.Failed("list recent", err)
		}
		entry, err := buildEntry(date, amount, currency, category, description)
		if err != nil {
			return nil, ledger.Failed("list recent", fmt.Errorf("row %d: %w", id, err))
		}
		entry.RecordedAt, _ = time.Parse(recordedAtLayout, recordedAt)
		entry.Ref = "sqlite:" + strconv.FormatInt(id, 10)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Classify("list recent", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SumByCategory(ctx context.Context, filter string) (core.Totals, error) {
	query, args, err := r.q.amountsByCategory().ToSql()
	if err != nil {
		return core.Totals{}, ledger.Failed("sum by category", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return core.Totals{}, ledger.Classify("sum by category", err)
	}
	defer rows.Close()

	var pairs []core.CategoryAmount
	for rows.Next() {
		var category, amount string
		if err := rows.Scan(&category, &amount); err != nil {
			return core.Totals{}, ledger.Failed("sum by category", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return core.Totals{}, ledger.Failed("sum by category", fmt.Errorf("amount %q: %w", amount, err))
		}
		pairs = append(pairs, core.CategoryAmount{Name: category, Amount: d})
	}
	if err := rows.Err(); err != nil {
		return core.Totals{}, ledger.Classify("sum by category", err)
	}
	return core.SummarizeAmounts(pairs, filter), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	query, args, err := r.q.categories().ToSql()
	if err != nil {
		return nil, ledger.Failed("list categories", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.Classify("list categories", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, ledger.Failed("list categories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Classify("list categories", err)
	}
	sort.Strings(out)
	return out, nil
}

// Ping reports whether the database file is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return ledger.Unavailable("ping", err)
	}
	return nil
}

func buildEntry(date, amount, currency, category, description string) (core.Entry, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Entry{}, err
	}
	m, err := core.NewMoney(amount, core.Currency(currency))
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{Expense: core.Expense{
		Date:        d,
		Amount:      m,
		Category:    category,
		Description: description,
	}}, nil
}
