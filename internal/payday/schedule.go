package payday

import (
	"time"

	"github.com/mmynk/finduo/internal/models"
)

// referenceYear is the leap year day/month combinations are validated against.
const referenceYear = 2024

// ValidateDay checks a day of the month.
func ValidateDay(day int) error {
	if day < 1 || day > 31 {
		return models.NewValidationError("payday_day", "out_of_range")
	}
	return nil
}

// ValidateDayMonth checks a yearly payday. Combinations that never exist,
// such as 31 April or 30 February, are rejected. 29 February is accepted
// and falls on 28 February in non-leap years.
func ValidateDayMonth(day, month int) error {
	if err := ValidateDay(day); err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return models.NewValidationError("payday_month", "out_of_range")
	}
	if day > models.DaysIn(referenceYear, time.Month(month)) {
		return models.NewValidationError("payday_date", "invalid_date")
	}
	return nil
}

// clampedDate builds year/month/day at midnight, moving day back to the
// last day of the month when the month is shorter.
func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := models.DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// Next returns the first occurrence of the schedule on or after the
// calendar day of today. Yearly schedules roll forward by a year and
// legacy schedules by a month.
func Next(p *models.PaydaySchedule, today time.Time) time.Time {
	today = models.Midnight(today)
	loc := today.Location()

	if p.IsLegacy() {
		candidate := clampedDate(today.Year(), today.Month(), p.Day, loc)
		if candidate.Before(today) {
			first := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, loc)
			candidate = clampedDate(first.Year(), first.Month(), p.Day, loc)
		}
		return candidate
	}

	candidate := clampedDate(today.Year(), time.Month(p.Month), p.Day, loc)
	if candidate.Before(today) {
		candidate = clampedDate(today.Year()+1, time.Month(p.Month), p.Day, loc)
	}
	return candidate
}

// nextRun returns the first instant at or after now whose wall clock in
// now's location reads hour:minute, excluding now itself.
func nextRun(now time.Time, hour, minute int) time.Time {
	y, m, d := now.Date()
	run := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !run.After(now) {
		run = time.Date(y, m, d+1, hour, minute, 0, 0, now.Location())
	}
	return run
}
