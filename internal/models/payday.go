package models

import "time"

// PaydaySchedule describes when a user gets paid.
//
// A schedule with Month set recurs yearly on Day/Month. A schedule with
// Month == 0 is the legacy form that only knows the day of the month and
// recurs monthly.
type PaydaySchedule struct {
	UserID int64
	Day    int
	Month  int

	// NextPayday caches the next occurrence. It must be recomputed before use
	// once it falls before today.
	NextPayday time.Time

	// UpdatedAt is when NextPayday was last recomputed.
	UpdatedAt time.Time
}

// IsLegacy reports whether the schedule only carries a day of the month.
func (p *PaydaySchedule) IsLegacy() bool {
	return p.Month == 0
}
