package person

import (
	"strconv"
	"strings"
)

// UnknownDate is what the API sends when a date is not known at all.
// Partial dates zero the missing month or day ("1900-00-00").
const UnknownDate = "0000-00-00"

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownDate
	}
	return s
}

// Year returns the year part of a date, or 0 when unknown.
func Year(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func dateKnown(date string) bool { return Year(date) > 0 }

// sortKey puts unknown dates after every known one.
func sortKey(date string) string {
	if !dateKnown(date) {
		return "9999-99-99"
	}
	return strings.TrimSpace(date)
}
