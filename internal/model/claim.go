// Package model defines the claim records, aggregates and run summaries
// passed between pipeline stages.
package model

import "strings"

// ClaimRecord is a single row of a timesheet/mileage export. Text fields are
// trimmed; an empty string means the cell was blank.
type ClaimRecord struct {
	ClaimID             string
	EmployeeID          string
	AuthorisationStatus string
	Template            string
	StartDate           string
	JourneyDate         string
	SubmittedDate       string
	MilesClaimed        Number
	TotalMileage        Number
	CommuteMileage      Number
}

// Text returns the raw text of a non-numeric field.
func (r ClaimRecord) Text(f Field) string {
	switch f {
	case FieldClaimID:
		return r.ClaimID
	case FieldEmployeeID:
		return r.EmployeeID
	case FieldAuthorisationStatus:
		return r.AuthorisationStatus
	case FieldTemplate:
		return r.Template
	case FieldStartDate:
		return r.StartDate
	case FieldJourneyDate:
		return r.JourneyDate
	case FieldSubmittedDate:
		return r.SubmittedDate
	default:
		return ""
	}
}

// SetText assigns the text of a non-numeric field.
func (r *ClaimRecord) SetText(f Field, value string) {
	value = strings.TrimSpace(value)
	switch f {
	case FieldClaimID:
		r.ClaimID = value
	case FieldEmployeeID:
		r.EmployeeID = value
	case FieldAuthorisationStatus:
		r.AuthorisationStatus = value
	case FieldTemplate:
		r.Template = value
	case FieldStartDate:
		r.StartDate = value
	case FieldJourneyDate:
		r.JourneyDate = value
	case FieldSubmittedDate:
		r.SubmittedDate = value
	}
}

// Number returns the value of a numeric field.
func (r ClaimRecord) Number(f Field) Number {
	switch f {
	case FieldMilesClaimed:
		return r.MilesClaimed
	case FieldTotalMileage:
		return r.TotalMileage
	case FieldCommuteMileage:
		return r.CommuteMileage
	default:
		return None()
	}
}

// SetNumber assigns the value of a numeric field.
func (r *ClaimRecord) SetNumber(f Field, n Number) {
	switch f {
	case FieldMilesClaimed:
		r.MilesClaimed = n
	case FieldTotalMileage:
		r.TotalMileage = n
	case FieldCommuteMileage:
		r.CommuteMileage = n
	}
}

// NormalizedRecord is a ClaimRecord projected onto the retained fields with
// its date fields coerced. Fields that were not retained are left missing.
type NormalizedRecord struct {
	ClaimID        string
	EmployeeID     string
	StartDate      Date
	JourneyDate    Date
	SubmittedDate  Date
	MilesClaimed   Number
	TotalMileage   Number
	CommuteMileage Number
}

// Date returns the value of a date field.
func (r NormalizedRecord) Date(f Field) Date {
	switch f {
	case FieldStartDate:
		return r.StartDate
	case FieldJourneyDate:
		return r.JourneyDate
	case FieldSubmittedDate:
		return r.SubmittedDate
	default:
		return MissingDate()
	}
}

// Record renders the normalized row back into export form, formatting dates
// with layout. Normalizing the result again yields the same row.
func (r NormalizedRecord) Record(layout string) ClaimRecord {
	return ClaimRecord{
		ClaimID:        r.ClaimID,
		EmployeeID:     r.EmployeeID,
		StartDate:      r.StartDate.Format(layout),
		JourneyDate:    r.JourneyDate.Format(layout),
		SubmittedDate:  r.SubmittedDate.Format(layout),
		MilesClaimed:   r.MilesClaimed,
		TotalMileage:   r.TotalMileage,
		CommuteMileage: r.CommuteMileage,
	}
}
