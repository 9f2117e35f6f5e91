// Package storage defines the contract of the tabular store that backs the
// domain store and the ledger.
//
// The store is a set of named partitions. Each partition is a flat table
// whose first row is the header and whose column order defines the schema.
// There are no transactions and no indexes: every lookup is a scan over
// ListAll.
package storage

import (
	"context"
	"errors"
)

// Partition names used by finduo.
const (
	PartitionUsers      = "users"
	PartitionGroups     = "groups"
	PartitionBudgets    = "budgets"
	PartitionGoals      = "goals"
	PartitionCategories = "categories"
	PartitionPaydays    = "paydays"
	PartitionLedger     = "ledger"
)

// ErrRowOutOfRange is returned by UpdateCell when the row or column does not exist.
var ErrRowOutOfRange = errors.New("row index out of range")

// Row is one data row. Cells are stored as text, like a spreadsheet.
type Row []string

// Partition is one logical table.
type Partition interface {
	// ListAll returns every data row in insertion order. The header is not included.
	ListAll(ctx context.Context) ([]Row, error)

	// AppendRow adds a row after the last data row.
	AppendRow(ctx context.Context, row Row) error

	// UpdateCell overwrites a single cell. rowIndex and colIndex are 0-based
	// and count data rows only, so rowIndex 0 is the row after the header.
	UpdateCell(ctx context.Context, rowIndex, colIndex int, value string) error

	// EnsureHeaders makes the header row equal to expected. When the partition
	// is empty the header is written; when the existing header differs the
	// partition is reset to just the expected header. It is a no-op otherwise.
	EnsureHeaders(ctx context.Context, expected []string) error
}

// Tabular opens partitions by name.
// This abstraction allows swapping the backing store (SQLite, in-memory, a
// hosted spreadsheet) without changing the domain store.
type Tabular interface {
	// Partition returns the partition with the given name, creating it on first use.
	Partition(name string) Partition

	// Close releases any resources held by the store.
	Close() error
}
