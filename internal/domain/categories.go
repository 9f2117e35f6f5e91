package domain

import (
	"slices"
	"strings"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// AddCustomCategory appends name to the user's custom categories for t.
// Adding a name that is already a custom category of t is a no-op.
func (tx *Tx) AddCustomCategory(userID int64, t models.RecordType, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.NewValidationError("category", "empty")
	}

	byType, ok := tx.s.categories[userID]
	if !ok {
		byType = make(map[models.RecordType][]string)
		tx.s.categories[userID] = byType
	}
	if slices.Contains(byType[t], name) {
		return nil
	}
	byType[t] = append(byType[t], name)

	tx.s.appendRow(tx.ctx, storage.PartitionCategories, categoryRow(userID, t, name, tx.Now()))
	return nil
}

// UserCategories returns the built-in categories for t followed by the
// user's custom categories. A custom name equal to a built-in one is listed twice.
func (tx *Tx) UserCategories(userID int64, t models.RecordType) []string {
	return append(models.BuiltinCategories(t), tx.s.categories[userID][t]...)
}
