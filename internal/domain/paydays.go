package domain

import (
	"fmt"

	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// Payday returns a copy of the user's schedule, or nil when none is set.
func (tx *Tx) Payday(userID int64) *models.PaydaySchedule {
	p, ok := tx.s.paydays[userID]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// SavePayday stores the schedule and mirrors it onto the user row.
// Validation of the day and month belongs to the payday scheduler.
func (tx *Tx) SavePayday(p *models.PaydaySchedule) error {
	if p == nil || p.UserID <= 0 {
		return models.NewValidationError("user_id", "not_positive")
	}
	c := *p
	tx.s.paydays[p.UserID] = &c

	if u, ok := tx.s.users[p.UserID]; ok {
		mirrored := *u
		if p.IsLegacy() {
			mirrored.PaydayDay = p.Day
			mirrored.PaydayDate = ""
		} else {
			mirrored.PaydayDay = 0
			mirrored.PaydayDate = fmt.Sprintf("%02d/%02d", p.Day, p.Month)
		}
		if mirrored != *u {
			tx.s.users[p.UserID] = &mirrored
			tx.s.upsert(tx.ctx, storage.PartitionUsers, userKey, userRow(&mirrored))
		}
	}

	tx.s.upsert(tx.ctx, storage.PartitionPaydays, paydayKey, paydayRow(&c, tx.DisplayName(p.UserID)))
	return nil
}
