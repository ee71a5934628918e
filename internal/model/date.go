package model

import (
	"strings"
	"time"
)

// DateLayout is the strict day/month/year layout used by claim exports.
// Day and month may be one or two digits; the year is always four.
const DateLayout = "2/1/2006"

// Date is either a parsed calendar date or missing. The zero value is missing.
type Date struct {
	t      time.Time
	parsed bool
}

// ParsedDate wraps a parsed time.
func ParsedDate(t time.Time) Date {
	return Date{t: t, parsed: true}
}

// MissingDate returns a missing date.
func MissingDate() Date {
	return Date{}
}

// ParseDate parses text with layout in loc. Blank text, or text that does not
// match the layout exactly, yields a missing date rather than an error.
func ParseDate(text, layout string, loc *time.Location) Date {
	text = strings.TrimSpace(text)
	if text == "" {
		return MissingDate()
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(layout, text, loc)
	if err != nil {
		return MissingDate()
	}
	return ParsedDate(t)
}

// Get returns the time and whether the date is present.
func (d Date) Get() (time.Time, bool) {
	return d.t, d.parsed
}

// IsMissing reports whether the date is missing.
func (d Date) IsMissing() bool {
	return !d.parsed
}

// Format renders the date with layout, or an empty string when missing.
func (d Date) Format(layout string) string {
	if !d.parsed {
		return ""
	}
	return d.t.Format(layout)
}

// Equal reports whether two dates are both missing or the same instant.
func (d Date) Equal(other Date) bool {
	if d.parsed != other.parsed {
		return false
	}
	return !d.parsed || d.t.Equal(other.t)
}

// String renders the date as YYYY-MM-DD, or "<missing>".
func (d Date) String() string {
	if !d.parsed {
		return "<missing>"
	}
	return d.t.Format("2006-01-02")
}
