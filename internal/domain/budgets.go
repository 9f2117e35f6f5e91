package domain

import (
	"strings"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// SetBudget stores amount for (userID, category). The last write wins.
func (tx *Tx) SetBudget(userID int64, category string, amount float64) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return models.NewValidationError("category", "empty")
	}
	if !models.FiniteAmount(amount) {
		return models.NewValidationError("amount", "not_a_number")
	}
	if amount < 0 {
		return models.NewValidationError("amount", "not_positive")
	}

	b, ok := tx.s.budgets[userID]
	if !ok {
		b = make(map[string]float64)
		tx.s.budgets[userID] = b
	}
	b[category] = amount

	row := budgetRow(userID, tx.DisplayName(userID), category, amount, tx.Now())
	tx.s.upsert(tx.ctx, storage.PartitionBudgets, budgetKey, row)
	return nil
}

// Budgets returns a copy of the user's budgets with an amount above zero.
func (tx *Tx) Budgets(userID int64) map[string]float64 {
	out := make(map[string]float64)
	for category, amount := range tx.s.budgets[userID] {
		if amount > 0 {
			out[category] = amount
		}
	}
	return out
}
