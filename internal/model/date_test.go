package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		want    time.Time
		name    string
		text    string
		missing bool
	}{
		{
			name: "two digit day and month",
			text: "18/10/2026",
			want: time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "single digit day and month",
			text: "3/7/2025",
			want: time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "surrounding whitespace is ignored",
			text: "  01/02/2024 ",
			want: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
		{name: "blank", text: "", missing: true},
		{name: "iso layout", text: "2026-10-18", missing: true},
		{name: "month first", text: "10/18/2026", missing: true},
		{name: "trailing time", text: "18/10/2026 09:30", missing: true},
		{name: "two digit year", text: "18/10/26", missing: true},
		{name: "impossible day", text: "31/02/2026", missing: true},
		{name: "free text", text: "n/a", missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.text, DateLayout, time.UTC)
			if tt.missing {
				assert.True(t, got.IsMissing())
				assert.Equal(t, "", got.Format(DateLayout))
				return
			}
			parsed, ok := got.Get()
			assert.True(t, ok)
			assert.True(t, tt.want.Equal(parsed), "got %s", parsed)
		})
	}
}

func TestDate_FormatRoundTrip(t *testing.T) {
	original := ParseDate("5/11/2025", DateLayout, time.UTC)
	again := ParseDate(original.Format(DateLayout), DateLayout, time.UTC)

	assert.True(t, original.Equal(again))
	assert.Equal(t, "2025-11-05", again.String())
}

func TestDate_Equal(t *testing.T) {
	day := ParsedDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, MissingDate().Equal(Date{}))
	assert.False(t, day.Equal(MissingDate()))
	assert.True(t, day.Equal(ParsedDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
}
