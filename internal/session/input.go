package session

import (
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/mmynk/finduo/internal/models"
)

// Input bounds, in characters.
const (
	MinUsernameLength       = 2
	MaxUsernameLength       = 25
	MinCustomCategoryLength = 2
	MaxCategoryLength       = 30
	MinGoalNameLength       = 3
	MaxGoalNameLength       = 50
	MaxDescriptionLength    = 200
)

// MaxAmount is the largest amount accepted from user input.
const MaxAmount = 1_000_000_000_000

var maxAmount = decimal.NewFromInt(MaxAmount)

// skipInput is typed to leave an optional field empty.
const skipInput = "-"

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup from free text, trims it and cuts it to limit runes.
func Sanitize(text string, limit int) string {
	clean := html.UnescapeString(strictPolicy.Sanitize(text))
	clean = strings.Join(strings.Fields(clean), " ")
	if limit > 0 && utf8.RuneCountInString(clean) > limit {
		clean = string([]rune(clean)[:limit])
	}
	return clean
}

// ParseAmount reads a positive amount. Currency signs, spaces and thousands
// separators are ignored.
func ParseAmount(field, text string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", " ", "", ",", "").Replace(strings.TrimSpace(text))
	if cleaned == "" {
		return 0, models.NewValidationError(field, "empty")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, models.NewValidationError(field, "not_a_number")
	}
	r := d.Round(2)
	if !r.IsPositive() {
		return 0, models.NewValidationError(field, "not_positive")
	}
	if r.GreaterThan(maxAmount) {
		return 0, models.NewValidationError(field, "too_large")
	}
	v, _ := r.Float64()
	return v, nil
}

// ParseInt reads an integer within [lo, hi].
func ParseInt(field, text string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, models.NewValidationError(field, "not_a_number")
	}
	if n < lo || n > hi {
		return 0, models.NewValidationError(field, "out_of_range")
	}
	return n, nil
}

// ValidateUsername checks a display name: letters and spaces only.
func ValidateUsername(text string) (string, error) {
	name := Sanitize(text, 0)
	n := utf8.RuneCountInString(name)
	if n < MinUsernameLength {
		return "", models.NewValidationError("username", "too_short")
	}
	if n > MaxUsernameLength {
		return "", models.NewValidationError("username", "too_long")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' {
			return "", models.NewValidationError("username", "not_alphabetic")
		}
	}
	return name, nil
}

// ParseDate reads a DD/MM/YYYY date at midnight in loc.
func ParseDate(field, text string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(models.InputDateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, models.NewValidationError(field, "bad_format")
	}
	return t, nil
}

// parseLength checks a free text field against rune bounds.
func parseLength(field, text string, lo, hi int) (string, error) {
	s := Sanitize(text, 0)
	n := utf8.RuneCountInString(s)
	if n < lo {
		return "", models.NewValidationError(field, "too_short")
	}
	if hi > 0 && n > hi {
		return "", models.NewValidationError(field, "too_long")
	}
	return s, nil
}
