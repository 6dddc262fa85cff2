package utils

import (
	"fmt"
	"strings"
	"time"
)

// statementDateFormats are the layouts accepted in uploaded statements,
// tried in order. Day-first formats come before ISO because European bank
// exports dominate the inputs.
var statementDateFormats = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

// ParseStatementDate parses a date cell from an uploaded statement.
func ParseStatementDate(dateStr string) (time.Time, error) {
	s := strings.TrimSpace(dateStr)
	for _, layout := range statementDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", dateStr)
}

// Day truncates a time to midnight UTC so movements on the same calendar day
// compare equal regardless of the time component.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute number of calendar days between two dates.
func DaysBetween(a, b time.Time) int {
	d := int(Day(b).Sub(Day(a)).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// NormalizeDescription lowercases a description and collapses internal
// whitespace, for duplicate fingerprinting.
func NormalizeDescription(desc string) string {
	return strings.Join(strings.Fields(strings.ToLower(desc)), " ")
}
