package domain

import (
	"fmt"
	"strings"
)

// Weekday is a collection day. Sunday is not a collection day.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
)

// CanonicalWeekdays is the Monday→Saturday order used for tie-breaks.
var CanonicalWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseWeekday normalizes and validates a day name.
func ParseWeekday(value string) (Weekday, error) {
	day := Weekday(strings.ToLower(strings.TrimSpace(value)))
	if day.Index() < 0 {
		return "", fmt.Errorf("invalid pickup day %q", value)
	}
	return day, nil
}

// Index returns the canonical position of d, or -1 if d is unknown.
func (d Weekday) Index() int {
	for i, candidate := range CanonicalWeekdays {
		if candidate == d {
			return i
		}
	}
	return -1
}

// AllowedWeekdays intersects the configured days with a zone's service days
// and returns them in canonical order. An empty zone list means every
// configured day; an empty configured list means every canonical day.
func AllowedWeekdays(configured, zoneDays []string) []Weekday {
	allowed := make(map[Weekday]bool, len(CanonicalWeekdays))
	if len(configured) == 0 {
		for _, d := range CanonicalWeekdays {
			allowed[d] = true
		}
	} else {
		for _, raw := range configured {
			if d, err := ParseWeekday(raw); err == nil {
				allowed[d] = true
			}
		}
	}

	if len(zoneDays) > 0 {
		inZone := make(map[Weekday]bool, len(zoneDays))
		for _, raw := range zoneDays {
			if d, err := ParseWeekday(raw); err == nil {
				inZone[d] = true
			}
		}
		for d := range allowed {
			if !inZone[d] {
				delete(allowed, d)
			}
		}
	}

	result := make([]Weekday, 0, len(allowed))
	for _, d := range CanonicalWeekdays {
		if allowed[d] {
			result = append(result, d)
		}
	}
	return result
}
