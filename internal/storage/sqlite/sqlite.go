// Package sqlite provides a SQLite-backed implementation of storage.Tabular.
//
// Every partition is stored cell by cell in a single table so that the
// adapter behaves like a spreadsheet: rows are addressed by position and
// cells are plain text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/finduo/internal/storage"
)

// Ensure Store implements storage.Tabular
var _ storage.Tabular = (*Store)(nil)

// Store implements storage.Tabular using SQLite.
type Store struct {
	db *sql.DB

	mu         sync.Mutex
	partitions map[string]*partition
}

// New creates a new Store with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps SQLite writers from tripping over each other.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, partitions: make(map[string]*partition)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Partition returns the named partition.
func (s *Store) Partition(name string) storage.Partition {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[name]
	if !ok {
		p = &partition{db: s.db, name: name}
		s.partitions[name] = p
	}
	return p
}

type partition struct {
	db   *sql.DB
	name string
}

func (p *partition) ListAll(ctx context.Context) ([]storage.Row, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT row, col, value FROM partition_cells WHERE partition = ? ORDER BY row, col`,
		p.name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", p.name, err)
	}
	defer rows.Close()

	var (
		result  []storage.Row
		lastRow = -1
	)
	for rows.Next() {
		var (
			row, col int
			value    string
		)
		if err := rows.Scan(&row, &col, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p.name, err)
		}
		if row != lastRow {
			result = append(result, storage.Row{})
			lastRow = row
		}
		current := &result[len(result)-1]
		for len(*current) < col {
			*current = append(*current, "")
		}
		*current = append(*current, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", p.name, err)
	}
	return result, nil
}

func (p *partition) AppendRow(ctx context.Context, row storage.Row) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row) + 1, 0) FROM partition_cells WHERE partition = ?`,
		p.name,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to find next row of %s: %w", p.name, err)
	}

	// An empty row still needs one cell to occupy its position.
	cells := row
	if len(cells) == 0 {
		cells = storage.Row{""}
	}
	for col, value := range cells {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO partition_cells (partition, row, col, value) VALUES (?, ?, ?, ?)`,
			p.name, next, col, value,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cell into %s: %w", p.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit row: %w", err)
	}
	return nil
}

func (p *partition) UpdateCell(ctx context.Context, rowIndex, colIndex int, value string) error {
	if rowIndex < 0 || colIndex < 0 {
		return fmt.Errorf("%s[%d][%d]: %w", p.name, rowIndex, colIndex, storage.ErrRowOutOfRange)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Rows are stored under their insertion position, so translate the
	// visible index into the stored one.
	var stored int
	err = tx.QueryRowContext(ctx,
		`SELECT row FROM partition_cells WHERE partition = ?
		 GROUP BY row ORDER BY row LIMIT 1 OFFSET ?`,
		p.name, rowIndex,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s[%d]: %w", p.name, rowIndex, storage.ErrRowOutOfRange)
	}
	if err != nil {
		return fmt.Errorf("failed to locate row in %s: %w", p.name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO partition_cells (partition, row, col, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (partition, row, col) DO UPDATE SET value = excluded.value`,
		p.name, stored, colIndex, value,
	)
	if err != nil {
		return fmt.Errorf("failed to update cell in %s: %w", p.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cell: %w", err)
	}
	return nil
}

func (p *partition) EnsureHeaders(ctx context.Context, expected []string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT name FROM partition_headers WHERE partition = ? ORDER BY col`,
		p.name,
	)
	if err != nil {
		return fmt.Errorf("failed to query headers of %s: %w", p.name, err)
	}
	var current []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan header: %w", err)
		}
		current = append(current, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate headers: %w", err)
	}

	if slices.Equal(current, expected) {
		return nil
	}

	// A header mismatch resets the partition. Rows written under another
	// layout cannot be interpreted with the new one.
	if len(current) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM partition_cells WHERE partition = ?`, p.name); err != nil {
			return fmt.Errorf("failed to reset %s: %w", p.name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM partition_headers WHERE partition = ?`, p.name); err != nil {
		return fmt.Errorf("failed to clear headers of %s: %w", p.name, err)
	}
	for col, name := range expected {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO partition_headers (partition, col, name) VALUES (?, ?, ?)`,
			p.name, col, name,
		)
		if err != nil {
			return fmt.Errorf("failed to write header of %s: %w", p.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit headers: %w", err)
	}
	return nil
}
