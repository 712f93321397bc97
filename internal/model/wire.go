package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed marks a line that cannot become a WireMetric. Callers drop
// the line and keep going; it must never surface as a placeholder metric.
var ErrMalformed = errors.New("malformed graphite line")

// WireMetric is the raw text-based sample off the wire:
// "<dotted.metric.key> <value> <timestamp>".
type WireMetric struct {
	Key    string `json:"key"`
	Value  Number `json:"value"`
	SeenAt Number `json:"seen_at"`
}

// ParseWire splits a single Graphite line into exactly three fields and
// converts the numeric ones. The wire format guarantees keys carry no
// spaces, so any other token count is garbage.
func ParseWire(line string) (WireMetric, error) {
	fields := strings.Split(strings.TrimSpace(line), " ")
	if len(fields) != 3 {
		return WireMetric{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformed, len(fields))
	}
	value, err := ParseNumber(fields[1])
	if err != nil {
		return WireMetric{}, fmt.Errorf("%w: value %q: %v", ErrMalformed, fields[1], err)
	}
	seenAt, err := ParseNumber(fields[2])
	if err != nil {
		return WireMetric{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformed, fields[2], err)
	}
	return WireMetric{Key: fields[0], Value: value, SeenAt: seenAt}, nil
}
