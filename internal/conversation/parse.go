package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"deadlinebot/internal/models"
)

// Date validation errors. Each maps to its own corrective prompt.
var (
	ErrDateFormat     = errors.New("date must be DD.MM.YYYY")
	ErrDateRange      = errors.New("date field out of range")
	ErrDateImpossible = errors.New("date does not exist")
	ErrNotNumeric     = errors.New("task id must be a number")
)

const (
	minYear = 1000
	maxYear = 2100

	// longer fields are out of range anyway and would overflow Atoi
	maxFieldDigits = 9
)

// ParseDate parses DD.MM.YYYY into an ISO date (YYYY-MM-DD).
// Years of one or two digits are expanded: 00-49 to 20xx, 50-99 to 19xx.
// Numeric input that is out of range is ErrDateRange, not ErrDateFormat.
func ParseDate(text string) (string, error) {
	parts := strings.Split(strings.TrimSpace(text), ".")
	if len(parts) != 3 {
		return "", ErrDateFormat
	}
	for _, p := range parts {
		if !digits(p, 1, len(p)) {
			return "", ErrDateFormat
		}
	}
	for _, p := range parts {
		if len(p) > maxFieldDigits {
			return "", ErrDateRange
		}
	}
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])

	if len(parts[2]) <= 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < minYear || year > maxYear {
		return "", ErrDateRange
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", ErrDateImpossible
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

var noTimeWords = map[string]bool{
	"нет": true,
	"no":  true,
	"-":   true,
}

// ParseTime normalizes H:MM or HH:MM. Anything else, including the "нет"
// sentinel and out-of-range values, yields the default deadline time.
func ParseTime(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if noTimeWords[t] {
		return models.DefaultDeadlineTime
	}
	hh, mm, ok := strings.Cut(t, ":")
	if !ok || !digits(hh, 1, 2) || !digits(mm, 2, 2) {
		return models.DefaultDeadlineTime
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h > 23 || m > 59 {
		return models.DefaultDeadlineTime
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func digits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseTaskID parses a task id. Any integer is accepted; ids that match
// no active task are reported by the lookup, not here.
func ParseTaskID(text string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, ErrNotNumeric
	}
	return id, nil
}
