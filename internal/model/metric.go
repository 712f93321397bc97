package model

import "strings"

// MetricKind is the semantic shape of a time series.
type MetricKind string

const (
	// KindCounter is a monotonically increasing cumulative value.
	KindCounter MetricKind = "COUNTER"
	// KindGauge is a point-in-time value.
	KindGauge MetricKind = "GAUGE"
)

// ValueType is the native numeric type a metric reports. Neo4j emits
// signed 64-bit integers and floating point values.
type ValueType string

const (
	ValueInt   ValueType = "INT"
	ValueFloat ValueType = "FLOAT"
)

// Subsystem identifies which part of the server a metric pertains to.
type Subsystem string

const (
	SubsystemDBMS     Subsystem = "DBMS"
	SubsystemDatabase Subsystem = "DATABASE"
	SubsystemPool     Subsystem = "POOL"
)

// LabelType types a label value, at least as far as the backend cares.
type LabelType string

const (
	LabelBool   LabelType = "BOOL"
	LabelInt    LabelType = "INT"
	LabelString LabelType = "STRING"
)

// LabelDescriptor defines a valid label and its details.
type LabelDescriptor struct {
	Key         string    `json:"key"`
	ValueType   LabelType `json:"value_type"`
	Description string    `json:"description"`
}

// Label binds a descriptor to a concrete value on one metric.
type Label struct {
	Descriptor LabelDescriptor `json:"descriptor"`
	Value      any             `json:"value"`
}

// Static label catalog.
var (
	ClientNameLabel = LabelDescriptor{
		Key:         "neo4j_instance_name",
		ValueType:   LabelString,
		Description: "Hostname of Neo4j system",
	}
	DBNameLabel = LabelDescriptor{
		Key:         "neo4j_db_name",
		ValueType:   LabelString,
		Description: "Name of the Neo4j database.",
	}
	SystemLabel = LabelDescriptor{
		Key:         "neo4j_system",
		ValueType:   LabelString,
		Description: "Subsystem reporting the metric.",
	}
	HostLabel = LabelDescriptor{
		Key:         "neo4j_label",
		ValueType:   LabelString,
		Description: "Label applied to Neo4j host.",
	}
)

// Origin identifies which monitored instance emitted a metric and when
// that instance was first observed. FirstSeenUnix anchors the start time
// of cumulative counter series, so it must survive reconnects.
type Origin struct {
	Host          string  `json:"host"`
	Label         string  `json:"label"`
	FirstSeenUnix float64 `json:"first_seen_unix"`
}

// Metric is the canonicalized, labeled, semantically typed unit the
// batcher and publisher operate on.
type Metric struct {
	Key       string     `json:"key"`
	Value     Number     `json:"value"`
	Origin    Origin     `json:"origin"`
	SeenAt    Number     `json:"seen_at"`
	Kind      MetricKind `json:"kind"`
	ValueType ValueType  `json:"value_type"`
	Subsystem Subsystem  `json:"subsystem"`
	Labels    []Label    `json:"labels"`
}

// FromWire maps a wire sample from a given client to a domain metric.
// The canonical key is the dotted wire key with its leading instance
// label and subsystem prefix segments stripped and the remainder joined
// with slashes, so the same measurement collapses to one descriptor
// across hosts. firstSeenUnix is the client's registry entry; the
// recorded origin start never postdates the sample itself, even under
// clock skew or out-of-order delivery.
func FromWire(raw WireMetric, host string, firstSeenUnix float64) Metric {
	parts := strings.Split(raw.Key, ".")

	m := Metric{
		Value:  raw.Value,
		SeenAt: raw.SeenAt,
		Origin: Origin{
			Host:          host,
			Label:         parts[0],
			FirstSeenUnix: min(firstSeenUnix, raw.SeenAt.Float64()),
		},
	}

	// Identify the reporting instance.
	m.Labels = append(m.Labels, Label{Descriptor: ClientNameLabel, Value: m.Origin.Host})
	m.Labels = append(m.Labels, Label{Descriptor: HostLabel, Value: m.Origin.Label})

	// Identify the subsystem and strip the key prefix accordingly:
	// "<label>.database.<db>.<rest>" vs "<label>.dbms.<rest>".
	if len(parts) > 2 && parts[1] == "database" {
		m.Subsystem = SubsystemDatabase
		m.Labels = append(m.Labels, Label{Descriptor: DBNameLabel, Value: parts[2]})
		m.Labels = append(m.Labels, Label{Descriptor: SystemLabel, Value: "database"})
		m.Key = strings.Join(parts[3:], "/")
	} else {
		m.Subsystem = SubsystemDBMS
		m.Labels = append(m.Labels, Label{Descriptor: SystemLabel, Value: "dbms"})
		if len(parts) > 2 {
			m.Key = strings.Join(parts[2:], "/")
		}
	}

	// Kind is a pure function of the terminal segment, never of the value.
	if knownCounters[parts[len(parts)-1]] {
		m.Kind = KindCounter
	} else {
		m.Kind = KindGauge
	}

	if raw.Value.IsFloat {
		m.ValueType = ValueFloat
	} else {
		m.ValueType = ValueInt
	}

	return m
}

// Descriptor is the registered schema for a canonical key.
type Descriptor struct {
	Key       string            `json:"key"`
	Kind      MetricKind        `json:"kind"`
	ValueType ValueType         `json:"value_type"`
	Labels    []LabelDescriptor `json:"labels"`
}

// DescriptorOf extracts the registerable schema from one metric.
func DescriptorOf(m Metric) Descriptor {
	d := Descriptor{Key: m.Key, Kind: m.Kind, ValueType: m.ValueType}
	for _, l := range m.Labels {
		d.Labels = append(d.Labels, l.Descriptor)
	}
	return d
}
