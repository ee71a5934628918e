// Package schema maps external export columns onto canonical claim fields and
// decodes raw rows into claim records.
package schema

import (
	"fmt"
	"sort"

	"github.com/Veraticus/mileage-audit/internal/model"
)

// Mapping maps each canonical field to the column name used by the export.
type Mapping map[model.Field]string

// DefaultMapping returns the column names of the timesheet system export.
func DefaultMapping() Mapping {
	return Mapping{
		model.FieldClaimID:             "Timesheet ID",
		model.FieldEmployeeID:          "Personal Reference:Timesheet",
		model.FieldAuthorisationStatus: "Authorisation Status:Timesheet",
		model.FieldTemplate:            "Fast Input Design:Timesheet",
		model.FieldStartDate:           "Start Date:Timesheet",
		model.FieldJourneyDate:         "Journey Date:Timesheet",
		model.FieldSubmittedDate:       "Submitted Date:Timesheet",
		model.FieldMilesClaimed:        "Miles Claimed:Timesheet",
		model.FieldTotalMileage:        "V_AllMileage_A",
		model.FieldCommuteMileage:      "V_CommuteMileage_B",
	}
}

// Column returns the external column name for f, falling back to the field
// name itself when the mapping has no entry.
func (m Mapping) Column(f model.Field) string {
	if name, ok := m[f]; ok && name != "" {
		return name
	}
	return string(f)
}

// Validate checks that every key is a canonical field and that no two fields
// share a column.
func (m Mapping) Validate() error {
	seen := make(map[string]model.Field, len(m))
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	for _, name := range fields {
		f := model.Field(name)
		if !f.IsValid() {
			return fmt.Errorf("unknown field %q in column mapping", f)
		}
		column := m.Column(f)
		if other, dup := seen[column]; dup {
			return fmt.Errorf("column %q mapped to both %s and %s", column, other, f)
		}
		seen[column] = f
	}
	return nil
}

// Merge returns a copy of m with the entries of override applied on top.
func (m Mapping) Merge(override Mapping) Mapping {
	out := make(Mapping, len(m)+len(override))
	for f, column := range m {
		out[f] = column
	}
	for f, column := range override {
		if column != "" {
			out[f] = column
		}
	}
	return out
}
