package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RecordType classifies a ledger record.
type RecordType string

const (
	RecordIncome  RecordType = "income"
	RecordExpense RecordType = "expense"
	RecordDebt    RecordType = "debt"
)

// RecordTypes lists every record type in menu order.
var RecordTypes = []RecordType{RecordIncome, RecordExpense, RecordDebt}

// ParseRecordType converts a stored or user supplied value into a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(strings.ToLower(strings.TrimSpace(s))) {
	case RecordIncome:
		return RecordIncome, nil
	case RecordExpense:
		return RecordExpense, nil
	case RecordDebt:
		return RecordDebt, nil
	}
	return "", fmt.Errorf("unknown record type %q", s)
}

// RecordStatusCompleted is the status of every record committed by the bot.
const RecordStatusCompleted = "completed"

// Record is a single income, expense or debt entry in the ledger.
type Record struct {
	Timestamp time.Time

	// UserName is the display name at the time of the commit.
	// Records are attributed by name, not by id.
	UserName string

	Type        RecordType
	Amount      float64
	Category    string
	Description string

	// DueDate is free text ("DD/MM/YYYY") and only used for debts.
	DueDate string
	Status  string
}

// FiniteAmount reports whether v can be written to a row.
func FiniteAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
