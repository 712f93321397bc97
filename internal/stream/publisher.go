package stream

import (
	"encoding/json"
	"time"

	"metrics-relay/internal/model"
)

// Publisher is the narrow boundary to the time-series backend. Both
// operations may be slow and may fail; callers only invoke them from
// background flushes, never from the ingestion path.
type Publisher interface {
	RegisterDescriptor(ctx Context, d model.Descriptor) error
	WriteSeries(ctx Context, batch []model.Metric) error
	Close(ctx Context) error
}

type Context interface {
	Done() <-chan struct{}
	Err() error
	Deadline() (time.Time, bool)
	Value(key any) any
}

// Resource identifies where the relay itself runs, attached to every
// shipped series so the backend can pin points to an instance.
type Resource struct {
	ProjectID  string `json:"project_id"`
	InstanceID string `json:"instance_id"`
	Zone       string `json:"zone"`
}

type DescriptorFrame struct {
	Type       string           `json:"type"`
	Resource   Resource         `json:"resource"`
	Descriptor model.Descriptor `json:"descriptor"`
}

type SeriesFrame struct {
	TimestampUnix int64          `json:"timestamp_unix"`
	Resource      Resource       `json:"resource"`
	TypeRoot      string         `json:"type_root"`
	Series        []model.Metric `json:"series"`
}

func EncodeEnvelope(e model.Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// NewDescriptorFrame qualifies a canonical key under the metric type
// root, e.g. "custom.googleapis.com/neo4j/page_cache/hits".
func NewDescriptorFrame(typeRoot string, res Resource, d model.Descriptor) DescriptorFrame {
	return DescriptorFrame{Type: typeRoot + "/" + d.Key, Resource: res, Descriptor: d}
}

func NewSeriesFrame(typeRoot string, res Resource, batch []model.Metric) SeriesFrame {
	at := time.Now().UTC().Unix()
	if len(batch) > 0 && !batch[0].SeenAt.IsFloat && batch[0].SeenAt.Int > 0 {
		at = batch[0].SeenAt.Int
	}
	return SeriesFrame{
		TimestampUnix: at,
		Resource:      res,
		TypeRoot:      typeRoot,
		Series:        append([]model.Metric(nil), batch...),
	}
}
