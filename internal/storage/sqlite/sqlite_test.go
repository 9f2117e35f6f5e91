package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mmynk/finduo/internal/storage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "finduo-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	dbPath := filepath.Join(tempDir, "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func TestStore(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	header := []string{"user_id", "category", "amount"}

	t.Run("EnsureHeaders on empty partition", func(t *testing.T) {
		p := store.Partition("budgets")
		if err := p.EnsureHeaders(ctx, header); err != nil {
			t.Fatalf("EnsureHeaders failed: %v", err)
		}
		rows, err := p.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("Expected no data rows, got %d", len(rows))
		}
	})

	t.Run("AppendRow keeps insertion order", func(t *testing.T) {
		p := store.Partition("budgets")
		if err := p.AppendRow(ctx, storage.Row{"1", "Food", "100"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		if err := p.AppendRow(ctx, storage.Row{"2", "Rent", "500"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}

		rows, err := p.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("Expected 2 rows, got %d", len(rows))
		}
		if !slices.Equal(rows[0], storage.Row{"1", "Food", "100"}) {
			t.Errorf("Unexpected first row: %v", rows[0])
		}
		if !slices.Equal(rows[1], storage.Row{"2", "Rent", "500"}) {
			t.Errorf("Unexpected second row: %v", rows[1])
		}
	})

	t.Run("UpdateCell overwrites one cell", func(t *testing.T) {
		p := store.Partition("budgets")
		if err := p.UpdateCell(ctx, 0, 2, "150"); err != nil {
			t.Fatalf("UpdateCell failed: %v", err)
		}
		rows, err := p.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if rows[0][2] != "150" {
			t.Errorf("Expected amount 150, got %s", rows[0][2])
		}
		if rows[1][2] != "500" {
			t.Errorf("Expected second row untouched, got %s", rows[1][2])
		}
	})

	t.Run("UpdateCell rejects missing row", func(t *testing.T) {
		p := store.Partition("budgets")
		err := p.UpdateCell(ctx, 5, 0, "x")
		if !errors.Is(err, storage.ErrRowOutOfRange) {
			t.Errorf("Expected ErrRowOutOfRange, got %v", err)
		}
	})

	t.Run("EnsureHeaders is idempotent", func(t *testing.T) {
		p := store.Partition("budgets")
		if err := p.EnsureHeaders(ctx, header); err != nil {
			t.Fatalf("EnsureHeaders failed: %v", err)
		}
		rows, _ := p.ListAll(ctx)
		if len(rows) != 2 {
			t.Errorf("Expected rows to survive matching header, got %d", len(rows))
		}
	})

	t.Run("EnsureHeaders resets on mismatch", func(t *testing.T) {
		p := store.Partition("budgets")
		if err := p.EnsureHeaders(ctx, []string{"user_id", "amount"}); err != nil {
			t.Fatalf("EnsureHeaders failed: %v", err)
		}
		rows, _ := p.ListAll(ctx)
		if len(rows) != 0 {
			t.Errorf("Expected partition reset, got %d rows", len(rows))
		}
	})

	t.Run("Partitions are isolated", func(t *testing.T) {
		goals := store.Partition("goals")
		if err := goals.AppendRow(ctx, storage.Row{"1", "Vacation"}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
		rows, _ := store.Partition("budgets").ListAll(ctx)
		if len(rows) != 0 {
			t.Errorf("Expected budgets untouched, got %d rows", len(rows))
		}
	})
}

func TestStoreReopen(t *testing.T) {
	store, dbPath := newTestStore(t)
	ctx := context.Background()

	if err := store.Partition("users").AppendRow(ctx, storage.Row{"42", "Ana"}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}
	store.Close()

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	rows, err := reopened.Partition("users").ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(rows) != 1 || rows[0][1] != "Ana" {
		t.Errorf("Expected persisted row, got %v", rows)
	}
}
