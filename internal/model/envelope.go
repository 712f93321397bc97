package model

import "time"

type PayloadType string

const (
	PayloadDescriptor PayloadType = "metric_descriptor"
	PayloadTimeSeries PayloadType = "time_series"
)

// Envelope is transport-agnostic framing for stream payloads.
type Envelope struct {
	Type      PayloadType `json:"type"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}
