// Package publish accumulates converted metrics into batches and ships
// completed batches to the backend without ever blocking accumulation.
package publish

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"metrics-relay/internal/model"
	"metrics-relay/internal/stream"
)

// Batcher drains the publish channel into a batch and flushes it when
// the batch reaches flushSize or when flushTimeout elapses without a new
// arrival. Flushes run as background goroutines; the batcher owns each
// flush through its WaitGroup until the flush completes, and flush
// failures are logged and swallowed. Availability of ingestion wins over
// delivery guarantees here: nothing is retried or re-queued.
type Batcher struct {
	logger         *slog.Logger
	in             <-chan model.Metric
	publisher      stream.Publisher
	cache          *DescriptorCache
	flushSize      int
	flushTimeout   time.Duration
	publishTimeout time.Duration

	inflight sync.WaitGroup
}

func NewBatcher(in <-chan model.Metric, publisher stream.Publisher, cache *DescriptorCache, flushSize int, flushTimeout, publishTimeout time.Duration, logger *slog.Logger) *Batcher {
	if flushSize <= 0 {
		flushSize = 100
	}
	if flushTimeout <= 0 {
		flushTimeout = 15 * time.Second
	}
	if publishTimeout <= 0 {
		publishTimeout = 10 * time.Second
	}
	return &Batcher{
		logger:         logger,
		in:             in,
		publisher:      publisher,
		cache:          cache,
		flushSize:      flushSize,
		flushTimeout:   flushTimeout,
		publishTimeout: publishTimeout,
	}
}

// Run consumes until the publish channel is closed, then flushes any
// remainder. The receive-vs-timer select is the scheduling primitive of
// the flush policy: a flush happens at most flushTimeout after the last
// accepted item, or immediately at flushSize.
func (b *Batcher) Run() error {
	batch := make([]model.Metric, 0, b.flushSize)
	timer := time.NewTimer(b.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case m, ok := <-b.in:
			if !ok {
				if len(batch) > 0 {
					b.flush(batch)
				}
				return nil
			}
			batch = append(batch, m)
			if len(batch) >= b.flushSize {
				b.flush(batch)
				batch = make([]model.Metric, 0, b.flushSize)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(b.flushTimeout)
		case <-timer.C:
			if len(batch) > 0 {
				b.flush(batch)
				batch = make([]model.Metric, 0, b.flushSize)
			}
			timer.Reset(b.flushTimeout)
		}
	}
}

// Drain blocks until all in-flight flushes complete or ctx expires.
func (b *Batcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flush takes ownership of the batch slice and ships it in the
// background. The caller must not reuse the slice afterwards.
func (b *Batcher) flush(batch []model.Metric) {
	b.logger.Info("flushing batch", "events", len(batch))
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.publishTimeout)
		defer cancel()
		b.ship(ctx, batch)
	}()
}

func (b *Batcher) ship(ctx context.Context, batch []model.Metric) {
	for _, m := range batch {
		if !b.cache.Begin(m.Key) {
			continue
		}
		b.logger.Info("new metric seen", "key", m.Key, "kind", m.Kind, "value_type", m.ValueType)
		if err := b.publisher.RegisterDescriptor(ctx, model.DescriptorOf(m)); err != nil {
			// The key stays marked as attempted; the series is still
			// written best effort.
			b.logger.Warn("descriptor registration failed", "key", m.Key, "error", err)
		}
	}
	if err := b.publisher.WriteSeries(ctx, batch); err != nil {
		b.logger.Warn("time series write failed", "events", len(batch), "error", err)
	}
}
