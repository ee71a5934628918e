package pipeline

import (
	"time"

	"github.com/Veraticus/mileage-audit/internal/model"
)

// NormalizeOptions controls projection, date coercion and the time window.
type NormalizeOptions struct {
	DateLayout   string        `mapstructure:"date_layout" validate:"required"`
	Retain       []model.Field `mapstructure:"retain" validate:"required"`
	Dates        []model.Field `mapstructure:"dates" validate:"required"`
	WindowMonths int           `mapstructure:"window_months" validate:"gte=1"`
}

// DefaultNormalizeOptions returns the retained columns and 13-month window of
// the mileage audit.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		DateLayout: model.DateLayout,
		Retain: []model.Field{
			model.FieldClaimID,
			model.FieldEmployeeID,
			model.FieldStartDate,
			model.FieldJourneyDate,
			model.FieldMilesClaimed,
			model.FieldTotalMileage,
			model.FieldCommuteMileage,
			model.FieldSubmittedDate,
		},
		Dates: []model.Field{
			model.FieldStartDate,
			model.FieldJourneyDate,
			model.FieldSubmittedDate,
		},
		WindowMonths: 13,
	}
}

// RequiredFields lists the fields the normalizer projects onto.
func (o NormalizeOptions) RequiredFields() []model.Field {
	return o.Retain
}

// WindowStart returns now moved back by months calendar months. The day of
// month is clamped to the last day of the target month, so 31 March minus one
// month is the last day of February.
func WindowStart(now time.Time, months int) time.Time {
	year, month, day := now.Date()
	first := time.Date(year, month-time.Month(months), 1, 0, 0, 0, 0, now.Location())
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	day = min(day, last)

	return time.Date(first.Year(), first.Month(), day,
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
}

// NormalizeStats describes what the normalizer discarded.
type NormalizeStats struct {
	// Coerced counts non-blank date values per field that did not parse.
	Coerced map[model.Field]int
	// MissingSubmitted counts records dropped for a missing submission date.
	MissingSubmitted int
	// OutOfWindow counts records dropped for a submission outside the window.
	OutOfWindow int
}

// Normalizer projects filtered records onto the retained fields, parses their
// dates and keeps those submitted inside the trailing window ending at now.
type Normalizer struct {
	now    time.Time
	start  time.Time
	retain map[model.Field]bool
	dates  map[model.Field]bool
	layout string
}

// NewNormalizer returns a normalizer for a run with reference time now.
func NewNormalizer(opts NormalizeOptions, now time.Time) *Normalizer {
	n := &Normalizer{
		now:    now,
		start:  WindowStart(now, opts.WindowMonths),
		retain: make(map[model.Field]bool, len(opts.Retain)),
		dates:  make(map[model.Field]bool, len(opts.Dates)),
		layout: opts.DateLayout,
	}
	for _, f := range opts.Retain {
		n.retain[f] = true
	}
	for _, f := range opts.Dates {
		n.dates[f] = true
	}
	return n
}

// Window returns the inclusive bounds of the submission window.
func (n *Normalizer) Window() (start, end time.Time) {
	return n.start, n.now
}

// Normalize returns the records inside the window in their original order.
func (n *Normalizer) Normalize(records []model.ClaimRecord) ([]model.NormalizedRecord, NormalizeStats) {
	stats := NormalizeStats{Coerced: make(map[model.Field]int)}
	out := make([]model.NormalizedRecord, 0, len(records))

	for _, rec := range records {
		norm := n.project(rec, stats.Coerced)

		submitted, ok := norm.SubmittedDate.Get()
		if !ok {
			stats.MissingSubmitted++
			continue
		}
		if submitted.Before(n.start) || submitted.After(n.now) {
			stats.OutOfWindow++
			continue
		}
		out = append(out, norm)
	}

	return out, stats
}

func (n *Normalizer) project(rec model.ClaimRecord, coerced map[model.Field]int) model.NormalizedRecord {
	var norm model.NormalizedRecord
	if n.retain[model.FieldClaimID] {
		norm.ClaimID = rec.ClaimID
	}
	if n.retain[model.FieldEmployeeID] {
		norm.EmployeeID = rec.EmployeeID
	}
	if n.retain[model.FieldMilesClaimed] {
		norm.MilesClaimed = rec.MilesClaimed
	}
	if n.retain[model.FieldTotalMileage] {
		norm.TotalMileage = rec.TotalMileage
	}
	if n.retain[model.FieldCommuteMileage] {
		norm.CommuteMileage = rec.CommuteMileage
	}

	norm.StartDate = n.date(rec, model.FieldStartDate, coerced)
	norm.JourneyDate = n.date(rec, model.FieldJourneyDate, coerced)
	norm.SubmittedDate = n.date(rec, model.FieldSubmittedDate, coerced)

	return norm
}

func (n *Normalizer) date(rec model.ClaimRecord, f model.Field, coerced map[model.Field]int) model.Date {
	if !n.retain[f] || !n.dates[f] {
		return model.MissingDate()
	}
	text := rec.Text(f)
	d := model.ParseDate(text, n.layout, n.now.Location())
	if d.IsMissing() && text != "" {
		coerced[f]++
	}
	return d
}
