package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Partial dates. MusicBrainz reports first-release-date with year, year-month
// or year-month-day precision ("2010", "2010-01", "2010-01-02"). They are
// stored as a single int YYYYMMDD with unknown components zero-filled, so
// 20100100 is January 2010 with an unknown day. Precision can change between
// catalog fetches for the same release group; the int simply mutates in place.

// ParsePartialDate converts a MusicBrainz date string to its YYYYMMDD int
// encoding. It returns 0 for an empty or malformed string, which callers
// treat as "no usable release date".
func ParsePartialDate(s string) int {
	if s == "" {
		return 0
	}
	parts := strings.SplitN(s, "-", 3)
	date := 0
	for i := 0; i < 3; i++ {
		n := 0
		if i < len(parts) {
			v, err := strconv.Atoi(parts[i])
			if err != nil || v < 0 {
				return 0
			}
			n = v
		}
		switch i {
		case 0:
			if n == 0 || n > 9999 {
				return 0
			}
			date = n * 10000
		case 1:
			if n > 12 {
				return 0
			}
			date += n * 100
		case 2:
			if n > 31 {
				return 0
			}
			date += n
		}
	}
	return date
}

// PartialDateString renders a YYYYMMDD int back to the precision it carries.
func PartialDateString(date int) string {
	year, month, day := date/10000, date/100%100, date%100
	switch {
	case date == 0:
		return ""
	case month == 0:
		return strconv.Itoa(year)
	case day == 0:
		return fmt.Sprintf("%04d-%02d", year, month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
}

// PartialDateISO8601 renders a YYYYMMDD int as a full ISO date, substituting
// 01 for unknown month or day. Used by read-side projections that need a
// sortable calendar date.
func PartialDateISO8601(date int) string {
	year, month, day := date/10000, date/100%100, date%100
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
