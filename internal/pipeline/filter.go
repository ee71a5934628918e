// Package pipeline turns raw export rows into scored claim aggregates.
package pipeline

import (
	"github.com/Veraticus/mileage-audit/internal/model"
)

// FilterOptions selects the raw records eligible for auditing.
type FilterOptions struct {
	AuthorisedStatus  string   `mapstructure:"authorised_status" validate:"required"`
	ExcludedTemplates []string `mapstructure:"excluded_templates"`
}

// DefaultFilterOptions returns the filter used by the timesheet export.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		AuthorisedStatus:  "Authorised",
		ExcludedTemplates: []string{"T&S Entry Form v1.1"},
	}
}

// RequiredFields lists the fields the filter reads.
func (o FilterOptions) RequiredFields() []model.Field {
	return []model.Field{
		model.FieldAuthorisationStatus,
		model.FieldTemplate,
		model.FieldMilesClaimed,
		model.FieldSubmittedDate,
	}
}

// Keep reports whether rec passes the filter. A blank status never matches;
// a blank template is not excluded.
func (o FilterOptions) Keep(rec model.ClaimRecord) bool {
	if rec.AuthorisationStatus == "" || rec.AuthorisationStatus != o.AuthorisedStatus {
		return false
	}
	if rec.Template != "" {
		for _, excluded := range o.ExcludedTemplates {
			if rec.Template == excluded {
				return false
			}
		}
	}
	return rec.MilesClaimed.Valid && rec.SubmittedDate != ""
}

// FilterRecords returns the records that pass opts in their original order.
// The input is not modified.
func FilterRecords(records []model.ClaimRecord, opts FilterOptions) []model.ClaimRecord {
	out := make([]model.ClaimRecord, 0, len(records))
	for _, rec := range records {
		if opts.Keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
