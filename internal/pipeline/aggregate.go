package pipeline

import (
	"github.com/Veraticus/mileage-audit/internal/model"
)

// AggregateClaims groups records by claim and employee id and sums their
// mileage. Groups appear in order of first occurrence. Missing numbers add
// nothing to a sum but the record still counts as an element. blankKeys is
// the number of records with an empty claim or employee id; they are grouped
// like any other key.
func AggregateClaims(records []model.NormalizedRecord) (aggregates []model.ClaimAggregate, blankKeys int) {
	index := make(map[model.ClaimKey]int)
	aggregates = make([]model.ClaimAggregate, 0)

	for _, rec := range records {
		key := model.ClaimKey{ClaimID: rec.ClaimID, EmployeeID: rec.EmployeeID}
		if key.ClaimID == "" || key.EmployeeID == "" {
			blankKeys++
		}

		pos, ok := index[key]
		if !ok {
			pos = len(aggregates)
			index[key] = pos
			aggregates = append(aggregates, model.ClaimAggregate{
				ClaimID:    key.ClaimID,
				EmployeeID: key.EmployeeID,
			})
		}

		agg := &aggregates[pos]
		agg.ElementCount++
		agg.PaidMiles += rec.MilesClaimed.OrZero()
		agg.TotalMiles += rec.TotalMileage.OrZero()
		agg.CommuteMiles += rec.CommuteMileage.OrZero()
	}

	return aggregates, blankKeys
}
