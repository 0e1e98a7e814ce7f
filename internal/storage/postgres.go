package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
)

type PostgresRepository struct {
	pool   *pgxpool.Pool
	q      queries
	now    func() time.Time
	logger *log.Logger
}

var _ ledger.Store = (*PostgresRepository)(nil)

// NewPostgresRepository migrates the schema, then opens a connection pool.
func NewPostgresRepository(ctx context.Context, databaseURL string, logger *log.Logger) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}
	return &PostgresRepository{
		pool:   pool,
		q:      postgresQueries,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentLedger).With(log.FieldBackend, "postgres"),
	}, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) Append(ctx context.Context, e core.Expense) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, ledger.Failed("append", err)
	}
	// timestamptz keeps microseconds.
	at := r.now().UTC().Truncate(time.Microsecond)
	query, args, err := r.q.insert(e, e.Date.Time, at).ToSql()
	if err != nil {
		return core.Entry{}, ledger.Failed("append", fmt.Errorf("build insert: %w", err))
	}

	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return core.Entry{}, classifyPg("append", fmt.Errorf("create expense: %w", err))
	}

	ref := "postgres:" + strconv.FormatInt(id, 10)
	r.logger.InfoContext(ctx, "Expense saved to Postgres",
		log.FieldLedgerRef, ref,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category)
	return core.Entry{Expense: e, RecordedAt: at, Ref: ref}, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, n int) ([]core.Entry, error) {
	if n <= 0 {
		return []core.Entry{}, nil
	}
	query, args, err := r.q.recent(n).ToSql()
	if err != nil {
		return nil, ledger.Failed("list recent", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPg("list recent", err)
	}
	defer rows.Close()

	out := make([]core.Entry, 0, n)
	for rows.Next() {
		var (
			id                               int64
			date, recordedAt                 time.Time
			amount, currency, category, desc string
		)
		if err := rows.Scan(&id, &date, &amount, &currency, &category, &desc, &recordedAt); err != nil {
			return nil, ledger.Failed("list recent", err)
		}
		entry, err := pgEntry(id, date, amount, currency, category, desc, recordedAt)
		if err != nil {
			return nil, ledger.Failed("list recent", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPg("list recent", err)
	}
	return out, nil
}

func (r *PostgresRepository) SumByCategory(ctx context.Context, filter string) (core.Totals, error) {
	query, args, err := r.q.amountsByCategory().ToSql()
	if err != nil {
		return core.Totals{}, ledger.Failed("sum by category", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return core.Totals{}, classifyPg("sum by category", err)
	}
	defer rows.Close()

	var groups []core.CategoryAmount
	for rows.Next() {
		var category, sum string
		if err := rows.Scan(&category, &sum); err != nil {
			return core.Totals{}, ledger.Failed("sum by category", err)
		}
		d, err := pgSum(sum)
		if err != nil {
			return core.Totals{}, ledger.Failed("sum by category", err)
		}
		groups = append(groups, core.CategoryAmount{Name: category, Amount: d})
	}
	if err := rows.Err(); err != nil {
		return core.Totals{}, classifyPg("sum by category", err)
	}
	return core.SummarizeAmounts(groups, filter), nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]string, error) {
	query, args, err := r.q.categories().ToSql()
	if err != nil {
		return nil, ledger.Failed("list categories", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPg("list categories", err)
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
		return nil, classifyPg("list categories", err)
	}
	// Database collation may not be byte order.
	sort.Strings(out)
	return out, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return ledger.Unavailable("ping", err)
	}
	return nil
}

// pgEntry converts a scanned row. The amount arrives as amount::text so the
// stored scale survives without a float round trip.
func pgEntry(id int64, date time.Time, amount, currency, category, desc string, recordedAt time.Time) (core.Entry, error) {
	m, err := core.NewMoney(amount, core.Currency(currency))
	if err != nil {
		return core.Entry{}, fmt.Errorf("row %d: %w", id, err)
	}
	return core.Entry{
		Expense: core.Expense{
			Date:        core.DateOf(date),
			Amount:      m,
			Category:    category,
			Description: desc,
		},
		RecordedAt: recordedAt.UTC(),
		Ref:        "postgres:" + strconv.FormatInt(id, 10),
	}, nil
}

func pgSum(sum string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("category sum %q: %w", sum, err)
	}
	return d, nil
}

// classifyPg treats connection failures as an unreachable store.
func classifyPg(op string, err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return ledger.Unavailable(op, err)
	}
	return ledger.Classify(op, err)
}
