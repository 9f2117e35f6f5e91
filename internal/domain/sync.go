package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// withTimeout bounds a single tabular store call.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

// upsert writes row into the partition using upsert-by-scan: the first row
// whose key columns equal the new row's is overwritten cell by cell,
// otherwise the row is appended. Failures are logged and counted; the
// caller's in-memory state is not rolled back.
func (s *Store) upsert(ctx context.Context, partition string, key []int, row storage.Row) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreLatency("upsert", time.Since(start)) }()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.upsertRow(ctx, s.tab.Partition(partition), key, row); err != nil {
		s.syncFailed(partition, err)
	}
}

func (s *Store) upsertRow(ctx context.Context, p storage.Partition, key []int, row storage.Row) error {
	rows, err := p.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan partition: %w", err)
	}

	for i, existing := range rows {
		if !keyMatches(existing, row, key) {
			continue
		}
		for col, value := range row {
			if col < len(existing) && existing[col] == value {
				continue
			}
			if err := p.UpdateCell(ctx, i, col, value); err != nil {
				return fmt.Errorf("failed to update row %d: %w", i, err)
			}
		}
		return nil
	}

	if err := p.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

func keyMatches(existing, row storage.Row, key []int) bool {
	for _, col := range key {
		if col >= len(existing) || col >= len(row) || existing[col] != row[col] {
			return false
		}
	}
	return true
}

// appendRow adds a row to an append-only partition.
func (s *Store) appendRow(ctx context.Context, partition string, row storage.Row) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreLatency("append", time.Since(start)) }()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.tab.Partition(partition).AppendRow(ctx, row); err != nil {
		s.syncFailed(partition, err)
	}
}

func (s *Store) syncFailed(partition string, err error) {
	err = fmt.Errorf("%w: %w", models.ErrBackendUnavailable, err)
	s.logger.Warn("failed to sync partition, keeping in-memory state",
		"partition", partition,
		"error", err,
	)
	s.metrics.RecordSyncFailure(partition)
}
