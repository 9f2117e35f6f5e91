package models

import (
	"fmt"
	"strings"
	"time"
)

// Preferences holds the per-user settings that drive reminders and display.
type Preferences struct {
	Currency         string `json:"currency"`
	Notifications    bool   `json:"notifications"`
	Language         string `json:"language"`
	PaydayReminders  bool   `json:"payday_reminders"`
	ReminderLeadDays int    `json:"reminder_lead_days"`
}

// DefaultReminderLeadDays is used when a user has no lead time configured.
const DefaultReminderLeadDays = 3

// DefaultPreferences returns the preferences a newly registered user starts with.
func DefaultPreferences(currency, language string, leadDays int) Preferences {
	if leadDays < 0 {
		leadDays = DefaultReminderLeadDays
	}
	return Preferences{
		Currency:         currency,
		Notifications:    true,
		Language:         language,
		PaydayReminders:  true,
		ReminderLeadDays: leadDays,
	}
}

// User represents a person talking to the bot.
type User struct {
	// ID is assigned by the chat transport and never changes.
	ID int64

	// DisplayName is the name chosen during registration.
	// Until then it holds the placeholder returned by PlaceholderName.
	DisplayName string

	// RegisteredAt is when the user first reached the bot.
	RegisteredAt time.Time

	// LastActivity is updated whenever the user commits a transaction.
	LastActivity time.Time

	// MonthlyIncome is an optional self-reported figure.
	MonthlyIncome float64

	// PaydayDay mirrors the legacy day-of-month payday (0 when unset).
	PaydayDay int

	// PaydayDate mirrors the full payday as "DD/MM" (empty when unset).
	PaydayDate string

	Preferences Preferences
}

// PlaceholderName is the display name given to users who have not picked one yet.
func PlaceholderName(id int64) string {
	return fmt.Sprintf("User%d", id)
}

// IsRegistered reports whether the user completed the name step of registration.
func (u *User) IsRegistered() bool {
	if u == nil {
		return false
	}
	name := strings.TrimSpace(u.DisplayName)
	return name != "" && name != PlaceholderName(u.ID)
}
