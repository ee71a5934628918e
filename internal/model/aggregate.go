package model

import "fmt"

// ClaimKey identifies an aggregate: one claim submitted by one employee.
type ClaimKey struct {
	ClaimID    string
	EmployeeID string
}

// String renders the key for logs.
func (k ClaimKey) String() string {
	return fmt.Sprintf("%s/%s", k.ClaimID, k.EmployeeID)
}

// ClaimAggregate summarizes every normalized record sharing a ClaimKey.
type ClaimAggregate struct {
	ClaimID      string
	EmployeeID   string
	PaidMiles    float64
	TotalMiles   float64
	CommuteMiles float64
	ElementCount int
}

// Key returns the aggregate's identity.
func (a ClaimAggregate) Key() ClaimKey {
	return ClaimKey{ClaimID: a.ClaimID, EmployeeID: a.EmployeeID}
}

// Feature identifies a numeric attribute of an aggregate fed to the detector.
type Feature string

// Detector features.
const (
	FeatureElementCount Feature = "element_count"
	FeaturePaidMiles    Feature = "paid_miles"
	FeatureTotalMiles   Feature = "total_miles"
	FeatureCommuteMiles Feature = "commute_miles"
)

// DefaultFeatures is the feature order used when none is configured.
var DefaultFeatures = []Feature{
	FeatureElementCount,
	FeaturePaidMiles,
	FeatureTotalMiles,
	FeatureCommuteMiles,
}

// IsValid reports whether f names a known aggregate feature.
func (f Feature) IsValid() bool {
	switch f {
	case FeatureElementCount, FeaturePaidMiles, FeatureTotalMiles, FeatureCommuteMiles:
		return true
	}
	return false
}

// Value returns the aggregate's value for feature f.
func (a ClaimAggregate) Value(f Feature) (float64, error) {
	switch f {
	case FeatureElementCount:
		return float64(a.ElementCount), nil
	case FeaturePaidMiles:
		return a.PaidMiles, nil
	case FeatureTotalMiles:
		return a.TotalMiles, nil
	case FeatureCommuteMiles:
		return a.CommuteMiles, nil
	default:
		return 0, fmt.Errorf("unknown feature %q", f)
	}
}
