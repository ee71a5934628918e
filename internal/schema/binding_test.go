package schema

import (
	"errors"
	"testing"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportHeader = []string{
	"\ufeffTimesheet ID",
	"Personal Reference:Timesheet",
	"Authorisation Status:Timesheet",
	"Fast Input Design:Timesheet",
	"Start Date:Timesheet",
	"Journey Date:Timesheet",
	"Miles Claimed:Timesheet",
	"V_AllMileage_A",
	"V_CommuteMileage_B",
	" Submitted Date:Timesheet ",
	"Unrelated Column",
}

func TestBind_DefaultMapping(t *testing.T) {
	b := Bind(exportHeader, DefaultMapping())

	for _, f := range model.AllFields {
		assert.True(t, b.Has(f), "field %s should be bound", f)
	}
	assert.NoError(t, b.Require("filter", model.AllFields...))
}

func TestBinding_RequireReportsSourceColumns(t *testing.T) {
	header := []string{"Timesheet ID", "Personal Reference:Timesheet", "Submitted Date:Timesheet"}
	b := Bind(header, DefaultMapping())

	err := b.Require("normalize",
		model.FieldClaimID,
		model.FieldStartDate,
		model.FieldTotalMileage,
		model.FieldStartDate,
	)
	require.Error(t, err)

	var schemaErr *common.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "normalize", schemaErr.Stage)
	assert.Equal(t, []string{"Start Date:Timesheet", "V_AllMileage_A"}, schemaErr.Missing)
}

func TestBinding_Decode(t *testing.T) {
	b := Bind(exportHeader, DefaultMapping())
	coerced := make(map[model.Field]int)

	rec := b.Decode([]string{
		"1001", " E1 ", "Authorised", "Mileage v2", "01/09/2026", "02/09/2026",
		"1,250.5", "", "n/a", "03/09/2026", "ignored",
	}, coerced)

	assert.Equal(t, "1001", rec.ClaimID)
	assert.Equal(t, "E1", rec.EmployeeID)
	assert.Equal(t, "Authorised", rec.AuthorisationStatus)
	assert.Equal(t, "Mileage v2", rec.Template)
	assert.Equal(t, "03/09/2026", rec.SubmittedDate)
	assert.Equal(t, model.Some(1250.5), rec.MilesClaimed)
	assert.Equal(t, model.None(), rec.TotalMileage)
	assert.Equal(t, model.None(), rec.CommuteMileage)
	assert.Equal(t, map[model.Field]int{model.FieldCommuteMileage: 1}, coerced)
}

func TestBinding_DecodeShortRow(t *testing.T) {
	b := Bind(exportHeader, DefaultMapping())

	records, coerced := b.DecodeAll([][]string{{"7", "E7", "Authorised"}})

	require.Len(t, records, 1)
	assert.Equal(t, "7", records[0].ClaimID)
	assert.Equal(t, "", records[0].SubmittedDate)
	assert.False(t, records[0].MilesClaimed.Valid)
	assert.Empty(t, coerced)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		cell   string
		want   model.Number
		wantOK bool
	}{
		{cell: "12", want: model.Some(12), wantOK: true},
		{cell: " 3.75 ", want: model.Some(3.75), wantOK: true},
		{cell: "10,000", want: model.Some(10000), wantOK: true},
		{cell: "-4", want: model.Some(-4), wantOK: true},
		{cell: "", want: model.None(), wantOK: true},
		{cell: "   ", want: model.None(), wantOK: true},
		{cell: "twelve", want: model.None()},
		{cell: "NaN", want: model.None()},
		{cell: "Inf", want: model.None()},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := ParseNumber(tt.cell)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMapping_Validate(t *testing.T) {
	assert.NoError(t, DefaultMapping().Validate())

	unknown := Mapping{model.Field("mileage_rate"): "Rate"}
	assert.ErrorContains(t, unknown.Validate(), `unknown field "mileage_rate"`)

	dup := DefaultMapping().Merge(Mapping{model.FieldTotalMileage: "V_CommuteMileage_B"})
	assert.ErrorContains(t, dup.Validate(), `column "V_CommuteMileage_B" mapped to both`)
}

func TestMapping_MergeKeepsDefaults(t *testing.T) {
	merged := DefaultMapping().Merge(Mapping{model.FieldClaimID: "Claim Ref", model.FieldTemplate: ""})

	assert.Equal(t, "Claim Ref", merged.Column(model.FieldClaimID))
	assert.Equal(t, "Fast Input Design:Timesheet", merged.Column(model.FieldTemplate))
	assert.Equal(t, "Timesheet ID", DefaultMapping().Column(model.FieldClaimID))
}
