package models

import "time"

// Goal is a savings target. Several goals may share a name.
type Goal struct {
	Name         string
	TargetAmount float64

	// SavedAmount starts at 0.
	SavedAmount float64

	// TargetDate is a calendar date at midnight in the configured time zone.
	TargetDate time.Time

	CreatedAt time.Time
}
