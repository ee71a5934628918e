package model

import "strconv"

// Number is a mileage figure that may be missing from the export.
// A missing value is never the same thing as zero.
type Number struct {
	Value float64
	Valid bool
}

// Some returns a present number.
func Some(v float64) Number {
	return Number{Value: v, Valid: true}
}

// None returns a missing number.
func None() Number {
	return Number{}
}

// OrZero returns the value, or zero when missing. Used for summation.
func (n Number) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// String renders the number, or an empty string when missing.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
