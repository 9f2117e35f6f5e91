// Package ledger stores income, expense and debt records in the ledger
// partition of the tabular store.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// Columns is the layout of the ledger partition.
var Columns = []string{
	"timestamp", "user_name", "type", "amount",
	"category", "description", "due_date", "status",
}

// Ledger is the record store used by the session engine and the analyzer.
type Ledger interface {
	// Append writes a committed record.
	Append(ctx context.Context, r models.Record) error

	// Records returns every readable record in insertion order.
	Records(ctx context.Context) ([]models.Record, error)
}

// Book implements Ledger on a storage partition.
type Book struct {
	partition storage.Partition
	loc       *time.Location
	timeout   time.Duration
	logger    *slog.Logger
}

var _ Ledger = (*Book)(nil)

// NewBook creates a Book on the ledger partition of tab.
func NewBook(tab storage.Tabular, loc *time.Location, timeout time.Duration, logger *slog.Logger) *Book {
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Book{
		partition: tab.Partition(storage.PartitionLedger),
		loc:       loc,
		timeout:   timeout,
		logger:    logger,
	}
}

// EnsureHeaders writes the ledger header row.
func (b *Book) EnsureHeaders(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.partition.EnsureHeaders(ctx, Columns); err != nil {
		return fmt.Errorf("failed to ensure ledger headers: %w", err)
	}
	return nil
}

// Append writes r. A zero timestamp is set to now and an empty status to completed.
func (b *Book) Append(ctx context.Context, r models.Record) error {
	if !models.FiniteAmount(r.Amount) {
		return models.NewValidationError("amount", "not_a_number")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().In(b.loc)
	}
	if r.Status == "" {
		r.Status = models.RecordStatusCompleted
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.partition.AppendRow(ctx, recordRow(r, b.loc)); err != nil {
		return fmt.Errorf("%w: failed to append ledger record: %w", models.ErrBackendUnavailable, err)
	}
	return nil
}

// Records reads the whole ledger. Rows of the wrong width or with an
// unknown type are skipped. A timestamp that cannot be parsed leaves the
// record with a zero time, so it never matches a month filter.
func (b *Book) Records(ctx context.Context) ([]models.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	rows, err := b.partition.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read ledger: %w", models.ErrBackendUnavailable, err)
	}

	records := make([]models.Record, 0, len(rows))
	for i, row := range rows {
		r, err := b.parse(row)
		if err != nil {
			b.logger.Warn("skipping malformed ledger row", "row", i, "error", err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func recordRow(r models.Record, loc *time.Location) storage.Row {
	return storage.Row{
		r.Timestamp.In(loc).Format(models.TimestampLayout),
		r.UserName,
		string(r.Type),
		decimal.NewFromFloat(r.Amount).String(),
		r.Category,
		r.Description,
		r.DueDate,
		r.Status,
	}
}

func (b *Book) parse(row storage.Row) (models.Record, error) {
	if len(row) != len(Columns) {
		return models.Record{}, fmt.Errorf("%w: expected %d cells, got %d", models.ErrDataCorruption, len(Columns), len(row))
	}
	t, err := models.ParseRecordType(row[2])
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: %w", models.ErrDataCorruption, err)
	}

	ts, err := time.ParseInLocation(models.TimestampLayout, strings.TrimSpace(row[0]), b.loc)
	if err != nil {
		ts = time.Time{}
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row[3]), ",", ""))
	if err != nil {
		amount = decimal.Zero
	}

	return models.Record{
		Timestamp:   ts,
		UserName:    row[1],
		Type:        t,
		Amount:      amount.InexactFloat64(),
		Category:    row[4],
		Description: row[5],
		DueDate:     row[6],
		Status:      row[7],
	}, nil
}
