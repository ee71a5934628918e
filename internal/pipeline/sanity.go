package pipeline

import (
	"github.com/Veraticus/mileage-audit/internal/model"
)

// SanityBounds are the plausibility limits applied to aggregates.
type SanityBounds struct {
	MinPaidMiles    float64 `mapstructure:"min_paid_miles"`
	MaxTotalMiles   float64 `mapstructure:"max_total_miles" validate:"gt=0"`
	MaxCommuteMiles float64 `mapstructure:"max_commute_miles" validate:"gt=0"`
}

// DefaultSanityBounds returns the default limits.
func DefaultSanityBounds() SanityBounds {
	return SanityBounds{
		MinPaidMiles:    0,
		MaxTotalMiles:   10000,
		MaxCommuteMiles: 10000,
	}
}

// Allows reports whether agg is plausible. The paid bound is inclusive, the
// others exclusive.
func (b SanityBounds) Allows(agg model.ClaimAggregate) bool {
	return agg.PaidMiles >= b.MinPaidMiles &&
		agg.TotalMiles < b.MaxTotalMiles &&
		agg.CommuteMiles < b.MaxCommuteMiles
}

// SanityFilter drops implausible aggregates, preserving order.
func SanityFilter(aggregates []model.ClaimAggregate, bounds SanityBounds) []model.ClaimAggregate {
	out := make([]model.ClaimAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		if bounds.Allows(agg) {
			out = append(out, agg)
		}
	}
	return out
}
