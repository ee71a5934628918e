package model

// Label is the detector's verdict for an aggregate. The numeric values follow
// the outlier-detection convention: 1 for inliers, -1 for outliers.
type Label int

// Label values.
const (
	LabelNormal    Label = 1
	LabelAnomalous Label = -1
)

// String returns "normal" or "anomalous".
func (l Label) String() string {
	if l == LabelAnomalous {
		return "anomalous"
	}
	return "normal"
}

// ParseLabel is the inverse of Label.String. Unknown text is normal.
func ParseLabel(s string) Label {
	if s == "anomalous" {
		return LabelAnomalous
	}
	return LabelNormal
}

// ScoredAggregate is an aggregate with the detector's score and label.
// Lower scores are more anomalous; negative scores are labelled anomalous.
type ScoredAggregate struct {
	ClaimAggregate
	Label Label
	Score float64
}

// IsAnomalous reports whether the aggregate was labelled anomalous.
func (s ScoredAggregate) IsAnomalous() bool {
	return s.Label == LabelAnomalous
}

// CountLabels returns how many rows carry each label. Either count may be zero.
func CountLabels(rows []ScoredAggregate) (anomalous, normal int) {
	for _, row := range rows {
		if row.IsAnomalous() {
			anomalous++
		} else {
			normal++
		}
	}
	return anomalous, normal
}

// Anomalies returns the anomalous rows in their original order.
func Anomalies(rows []ScoredAggregate) []ScoredAggregate {
	out := make([]ScoredAggregate, 0)
	for _, row := range rows {
		if row.IsAnomalous() {
			out = append(out, row)
		}
	}
	return out
}
