// Package memory provides an in-memory implementation of storage.Tabular.
// It is used when FINDUO_STORE_DRIVER=memory and by tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mmynk/finduo/internal/storage"
)

var _ storage.Tabular = (*Store)(nil)

// Store keeps every partition in memory.
type Store struct {
	mu         sync.Mutex
	partitions map[string]*partition
	failWith   error
}

// New creates an empty Store.
func New() *Store {
	return &Store{partitions: make(map[string]*partition)}
}

// Partition returns the named partition.
func (s *Store) Partition(name string) storage.Partition {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[name]
	if !ok {
		p = &partition{store: s, name: name}
		s.partitions[name] = p
	}
	return p
}

// FailWith makes every subsequent call return err. Passing nil restores normal operation.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Header returns the current header of a partition.
func (s *Store) Header(name string) []string {
	p := s.Partition(name).(*partition)
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(p.header)
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

type partition struct {
	store  *Store
	name   string
	header []string
	rows   []storage.Row
}

// lock acquires the store mutex and reports the injected failure, if any.
func (p *partition) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.store.mu.Lock()
	if p.store.failWith != nil {
		err := p.store.failWith
		p.store.mu.Unlock()
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

func (p *partition) ListAll(ctx context.Context) ([]storage.Row, error) {
	if err := p.lock(ctx); err != nil {
		return nil, err
	}
	defer p.store.mu.Unlock()

	out := make([]storage.Row, len(p.rows))
	for i, r := range p.rows {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

func (p *partition) AppendRow(ctx context.Context, row storage.Row) error {
	if err := p.lock(ctx); err != nil {
		return err
	}
	defer p.store.mu.Unlock()

	p.rows = append(p.rows, slices.Clone(row))
	return nil
}

func (p *partition) UpdateCell(ctx context.Context, rowIndex, colIndex int, value string) error {
	if err := p.lock(ctx); err != nil {
		return err
	}
	defer p.store.mu.Unlock()

	if rowIndex < 0 || rowIndex >= len(p.rows) || colIndex < 0 {
		return fmt.Errorf("%s[%d][%d]: %w", p.name, rowIndex, colIndex, storage.ErrRowOutOfRange)
	}
	row := p.rows[rowIndex]
	for len(row) <= colIndex {
		row = append(row, "")
	}
	row[colIndex] = value
	p.rows[rowIndex] = row
	return nil
}

func (p *partition) EnsureHeaders(ctx context.Context, expected []string) error {
	if err := p.lock(ctx); err != nil {
		return err
	}
	defer p.store.mu.Unlock()

	if slices.Equal(p.header, expected) {
		return nil
	}
	if len(p.header) > 0 {
		p.rows = nil
	}
	p.header = slices.Clone(expected)
	return nil
}
