// Package google stores ledger records in a Google Sheets worksheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
)

// DefaultWorksheet is used when no worksheet name is configured.
const DefaultWorksheet = "Expenses"

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID string
	Worksheet     string
	// CredentialsJSON holds an inline service account key. When empty,
	// CredentialsFile is read instead.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	worksheet     string
	now           func() time.Time
	logger        *log.Logger
}

var _ ledger.Store = (*Client)(nil)

// New authenticates with a service account, then makes sure the worksheet
// exists with its header row.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SHEET_ID")
	}
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	c := newClient(svc, cfg.SpreadsheetID, cfg.Worksheet, logger)
	if err := c.ensureWorksheet(ctx); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Connected to Google Sheets", "worksheet", c.worksheet)
	return c, nil
}

func newClient(svc *gsheet.Service, spreadsheetID, worksheet string, logger *log.Logger) *Client {
	if strings.TrimSpace(worksheet) == "" {
		worksheet = DefaultWorksheet
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		now:           time.Now,
		logger:        logger.WithComponent(log.ComponentLedger).With(log.FieldBackend, "sheets"),
	}
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) ensureWorksheet(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return classify("open spreadsheet", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.worksheet {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: c.worksheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify("create worksheet", err)
	}
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.worksheet+"!A1", &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify("write header", err)
	}
	c.logger.InfoContext(ctx, "Created worksheet", "worksheet", c.worksheet)
	return nil
}

// Ping checks that the spreadsheet is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return ledger.Unavailable("ping", errors.New("sheets service not initialised"))
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return classify("ping", err)
	}
	return nil
}

// Append writes e in the worksheet's own column order, so sheets kept from
// the original bot (no Currency column) stay readable.
func (c *Client) Append(ctx context.Context, e core.Expense) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, ledger.Failed("append", fmt.Errorf("validation failed: %w", err))
	}
	if c.svc == nil {
		return core.Entry{}, ledger.Unavailable("append", errors.New("sheets service not initialized"))
	}

	header, err := c.readHeader(ctx)
	if err != nil {
		return core.Entry{}, classify("append", err)
	}
	// The sheet stores seconds only.
	at := c.now().UTC().Truncate(time.Second)
	vr := &gsheet.ValueRange{Values: [][]any{rowFor(header, e, at)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.worksheet+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to append expense", log.FieldError, err)
		return core.Entry{}, classify("append", err)
	}

	ref := c.worksheet
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Appended expense", log.FieldLedgerRef, ref, log.FieldCategory, e.Category)
	return core.Entry{Expense: e, RecordedAt: at, Ref: ref}, nil
}

// readHeader returns the worksheet's first row, or nil when it is empty.
func (c *Client) readHeader(ctx context.Context) ([]string, error) {
	rng := c.worksheet + "!1:1"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0]), nil
}

func (c *Client) ListRecent(ctx context.Context, n int) ([]core.Entry, error) {
	if n <= 0 {
		return []core.Entry{}, nil
	}
	entries, err := c.readAll(ctx, "list recent")
	if err != nil {
		return nil, err
	}
	newestFirst(entries)
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

func (c *Client) SumByCategory(ctx context.Context, filter string) (core.Totals, error) {
	entries, err := c.readAll(ctx, "sum by category")
	if err != nil {
		return core.Totals{}, err
	}
	return core.Summarize(expensesOf(entries), filter), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	entries, err := c.readAll(ctx, "list categories")
	if err != nil {
		return nil, err
	}
	return core.DistinctCategories(expensesOf(entries)), nil
}

func (c *Client) readAll(ctx context.Context, op string) ([]core.Entry, error) {
	if c.svc == nil {
		return nil, ledger.Unavailable(op, errors.New("sheets service not initialized"))
	}
	rng := c.worksheet + "!A:F"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify(op, fmt.Errorf("read %s: %w", rng, err))
	}
	entries, skipped := parseRows(resp.Values, c.worksheet)
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped unreadable rows", "worksheet", c.worksheet, "skipped", skipped)
	}
	return entries, nil
}

// classify maps Sheets API failures onto the ledger error classes: quota and
// server errors mean the store is unreachable for now.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code >= http.StatusInternalServerError || gerr.Code == http.StatusTooManyRequests {
			return ledger.Unavailable(op, err)
		}
		return ledger.Failed(op, err)
	}
	return ledger.Classify(op, err)
}

func expensesOf(entries []core.Entry) []core.Expense {
	out := make([]core.Expense, len(entries))
	for i, e := range entries {
		out[i] = e.Expense
	}
	return out
}
