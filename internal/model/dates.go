package model

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for due dates. Layouts without a zone are read in the
// caller's location.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDueDate parses an ISO-8601 date or date-time.
func ParseDueDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDueDate parses value and re-encodes it as UTC RFC3339 so that
// lexical order of the stored column matches chronological order.
func NormalizeDueDate(value string, loc *time.Location) (string, error) {
	t, ok := ParseDueDate(value, loc)
	if !ok {
		return "", fmt.Errorf("invalid due date %q", value)
	}
	return FormatDueDate(t), nil
}

// FormatDueDate encodes t the way the dueDate column stores it.
func FormatDueDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in b's location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
