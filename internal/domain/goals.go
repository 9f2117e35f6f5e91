package domain

import (
	"slices"
	"strings"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// AddGoal appends a goal. Goals with the same name are allowed.
// A zero CreatedAt is set to now.
func (tx *Tx) AddGoal(userID int64, g models.Goal) error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return models.NewValidationError("goal_name", "empty")
	}
	if !models.FiniteAmount(g.TargetAmount) || !models.FiniteAmount(g.SavedAmount) {
		return models.NewValidationError("goal_amount", "not_a_number")
	}
	if g.TargetAmount <= 0 {
		return models.NewValidationError("goal_amount", "not_positive")
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = tx.Now()
	}

	tx.s.goals[userID] = append(tx.s.goals[userID], g)
	tx.s.appendRow(tx.ctx, storage.PartitionGoals, goalRow(userID, tx.DisplayName(userID), g))
	return nil
}

// Goals returns a copy of the user's goals in creation order.
func (tx *Tx) Goals(userID int64) []models.Goal {
	return slices.Clone(tx.s.goals[userID])
}
