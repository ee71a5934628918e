package schema

import (
	"math"
	"strings"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
	"github.com/spf13/cast"
)

// Binding resolves canonical fields to column positions in one source header.
type Binding struct {
	mapping Mapping
	index   map[model.Field]int
}

// Bind matches the mapping against a header row. Columns are matched after
// trimming whitespace and a leading byte order mark. Absent columns are not an
// error here; stages declare what they need through Require.
func Bind(header []string, mapping Mapping) *Binding {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	index := make(map[model.Field]int)
	for _, f := range model.AllFields {
		if pos, ok := positions[mapping.Column(f)]; ok {
			index[f] = pos
		}
	}

	return &Binding{mapping: mapping, index: index}
}

// Has reports whether the source carries field f.
func (b *Binding) Has(f model.Field) bool {
	_, ok := b.index[f]
	return ok
}

// Require returns a *common.SchemaError naming the source columns for every
// field in fields that the header lacks.
func (b *Binding) Require(stage string, fields ...model.Field) error {
	var missing []string
	seen := make(map[model.Field]bool, len(fields))
	for _, f := range fields {
		if seen[f] || b.Has(f) {
			continue
		}
		seen[f] = true
		missing = append(missing, b.mapping.Column(f))
	}
	if len(missing) == 0 {
		return nil
	}
	return &common.SchemaError{Stage: stage, Missing: missing}
}

// Decode converts one raw row into a claim record. Cells beyond the end of a
// short row are blank. Numeric cells that cannot be parsed become missing and
// are counted in coerced.
func (b *Binding) Decode(row []string, coerced map[model.Field]int) model.ClaimRecord {
	var rec model.ClaimRecord
	for f, pos := range b.index {
		cell := ""
		if pos < len(row) {
			cell = row[pos]
		}

		if !f.IsNumeric() {
			rec.SetText(f, cell)
			continue
		}

		n, ok := ParseNumber(cell)
		if !ok && coerced != nil {
			coerced[f]++
		}
		rec.SetNumber(f, n)
	}
	return rec
}

// DecodeAll decodes every row and returns the records together with the
// number of numeric cells coerced to missing per field.
func (b *Binding) DecodeAll(rows [][]string) ([]model.ClaimRecord, map[model.Field]int) {
	coerced := make(map[model.Field]int)
	records := make([]model.ClaimRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, b.Decode(row, coerced))
	}
	return records, coerced
}

// ParseNumber parses a mileage cell. Thousands separators and surrounding
// whitespace are accepted. A blank cell is missing and ok; text that is not a
// finite number is missing and not ok.
func ParseNumber(cell string) (model.Number, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return model.None(), true
	}
	cell = strings.ReplaceAll(cell, ",", "")

	v, err := cast.ToFloat64E(cell)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return model.None(), false
	}
	return model.Some(v), true
}
