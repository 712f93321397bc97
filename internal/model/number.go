package model

import (
	"encoding/json"
	"strconv"
)

// Number holds a metric value or timestamp as either a signed integer or
// a float, preserving the native type seen on the wire. The distinction
// drives the metric's value type, so it must never be collapsed to float64
// before classification.
type Number struct {
	Int     int64
	Float   float64
	IsFloat bool
}

// ParseNumber converts a wire field to its native numeric type, trying
// integer first and falling back to float. An empty string converts to
// integer zero: some telemetry fields are legitimately empty-as-zero.
func ParseNumber(s string) (Number, error) {
	if s == "" {
		return Number{}, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Number{Int: i}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}, err
	}
	return Number{Float: f, IsFloat: true}, nil
}

// Float64 returns the value widened to float64 regardless of native type.
func (n Number) Float64() float64 {
	if n.IsFloat {
		return n.Float
	}
	return float64(n.Int)
}

func (n Number) String() string {
	if n.IsFloat {
		return strconv.FormatFloat(n.Float, 'g', -1, 64)
	}
	return strconv.FormatInt(n.Int, 10)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.IsFloat {
		return json.Marshal(n.Float)
	}
	return json.Marshal(n.Int)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*n = Number{Int: i}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number{Float: f, IsFloat: true}
	return nil
}
