package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is a metric cell: a finite number or the missing marker.
// The zero Value is missing, which is distinct from Number(0).
type Value struct {
	V     float64
	Valid bool
}

// Missing is the explicit "no value" marker.
var Missing = Value{}

// Number wraps f. Non-finite inputs yield Missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing
	}
	return Value{V: f, Valid: true}
}

// IsMissing reports whether v carries no number.
func (v Value) IsMissing() bool {
	return !v.Valid
}

// Float64 returns the number and whether it is present.
func (v Value) Float64() (float64, bool) {
	return v.V, v.Valid
}

func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.V, 'f', -1, 64)
}

// MarshalJSON encodes missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Number(f)
	return nil
}
