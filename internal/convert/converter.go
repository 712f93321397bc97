// Package convert drains raw records off the ingest channel and turns
// them into domain metrics for the publish channel.
package convert

import (
	"bytes"
	"log/slog"

	"metrics-relay/internal/ingest"
	"metrics-relay/internal/model"
)

// Converter is the single consumer of the ingest channel. Malformed
// lines are dropped with a warning and never halt the stream.
type Converter struct {
	logger   *slog.Logger
	registry *ingest.Registry
	in       <-chan model.RawRecord
	out      chan<- model.Metric
}

func New(registry *ingest.Registry, in <-chan model.RawRecord, out chan<- model.Metric, logger *slog.Logger) *Converter {
	return &Converter{
		logger:   logger,
		registry: registry,
		in:       in,
		out:      out,
	}
}

// Run consumes until the ingest channel is closed, then closes the
// publish channel so the batcher can finish its final flush.
func (c *Converter) Run() error {
	defer close(c.out)
	for rec := range c.in {
		c.convert(rec)
	}
	return nil
}

func (c *Converter) convert(rec model.RawRecord) {
	firstSeen := c.registry.Observe(rec.ClientID)
	for _, line := range bytes.Split(rec.Payload, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		wire, err := model.ParseWire(string(line))
		if err != nil {
			c.logger.Warn("dropping line", "client", rec.ClientID, "error", err)
			continue
		}
		m := model.FromWire(wire, rec.ClientID, firstSeen)
		c.logger.Debug("adding metric", "key", m.Key, "kind", m.Kind, "client", rec.ClientID)
		c.out <- m
	}
}
