package model

import (
	"encoding/json"
	"strconv"
)

// Number is an optional numeric field from an analysis payload.
// Valid is false when the field was absent or held a non-numeric value,
// so callers can render an empty state instead of a bogus zero.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number holding v.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Or returns the value, or def when the number is absent.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// String formats the number without trailing zeros, or "-" when absent.
func (n Number) String() string {
	if !n.Valid {
		return "-"
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// MarshalJSON encodes an absent number as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts any JSON value; non-numbers leave the number absent.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = decodeNumber(data)
	return nil
}

// Factor is one named contribution in a score breakdown.
type Factor struct {
	Key   string `json:"key"`
	Value Number `json:"value"`
}
