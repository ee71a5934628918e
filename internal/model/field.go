package model

// Field identifies a canonical column of a claim export. External column
// names are mapped onto fields by the schema package.
type Field string

// Canonical claim fields.
const (
	FieldClaimID             Field = "claim_id"
	FieldEmployeeID          Field = "employee_id"
	FieldAuthorisationStatus Field = "authorisation_status"
	FieldTemplate            Field = "template"
	FieldStartDate           Field = "start_date"
	FieldJourneyDate         Field = "journey_date"
	FieldSubmittedDate       Field = "submitted_date"
	FieldMilesClaimed        Field = "miles_claimed"
	FieldTotalMileage        Field = "total_mileage"
	FieldCommuteMileage      Field = "commute_mileage"
)

// AllFields lists every canonical field in export order.
var AllFields = []Field{
	FieldClaimID,
	FieldEmployeeID,
	FieldAuthorisationStatus,
	FieldTemplate,
	FieldStartDate,
	FieldJourneyDate,
	FieldSubmittedDate,
	FieldMilesClaimed,
	FieldTotalMileage,
	FieldCommuteMileage,
}

// IsValid reports whether f is a known canonical field.
func (f Field) IsValid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// IsDate reports whether f holds day/month/year text in the export.
func (f Field) IsDate() bool {
	return f == FieldStartDate || f == FieldJourneyDate || f == FieldSubmittedDate
}

// IsNumeric reports whether f holds a mileage figure.
func (f Field) IsNumeric() bool {
	return f == FieldMilesClaimed || f == FieldTotalMileage || f == FieldCommuteMileage
}

// IsRetainable reports whether f survives normalization when retained.
// Authorisation status and template are only used for filtering.
func (f Field) IsRetainable() bool {
	return f.IsValid() && f != FieldAuthorisationStatus && f != FieldTemplate
}
