package agent

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"metrics-relay/internal/convert"
	"metrics-relay/internal/ingest"
	"metrics-relay/internal/model"
	"metrics-relay/internal/publish"
	"metrics-relay/internal/stream"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type capturePublisher struct {
	mu          sync.Mutex
	descriptors []model.Descriptor
	batches     [][]model.Metric
}

func (p *capturePublisher) RegisterDescriptor(_ stream.Context, d model.Descriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.descriptors = append(p.descriptors, d)
	return nil
}

func (p *capturePublisher) WriteSeries(_ stream.Context, batch []model.Metric) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, append([]model.Metric(nil), batch...))
	return nil
}

func (p *capturePublisher) Close(stream.Context) error { return nil }

func (p *capturePublisher) metrics() []model.Metric {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.Metric
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

// TestPipelineEndToEnd wires listener -> converter -> batcher against a
// capturing publisher and pushes Graphite lines over a real TCP socket.
func TestPipelineEndToEnd(t *testing.T) {
	logger := testLogger()
	registry := ingest.NewRegistry()
	cache := publish.NewDescriptorCache()
	pub := &capturePublisher{}

	ingestCh := make(chan model.RawRecord, 64)
	publishCh := make(chan model.Metric, 64)

	listener := ingest.NewListener("127.0.0.1:0", registry, ingestCh, logger)
	converter := convert.New(registry, ingestCh, publishCh, logger)
	batcher := publish.NewBatcher(publishCh, pub, cache, 100, 50*time.Millisecond, time.Second, logger)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return converter.Run() })
	g.Go(func() error { return batcher.Run() })

	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = listener.Addr()
		return addr != nil
	}, 2*time.Second, 10*time.Millisecond)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	_, err = conn.Write([]byte(
		"web1.dbms.pool.active_threads 4 1000\n" +
			"web1.dbms.pool.active_threads 7 1015\n" +
			"this is not a metric line at all, honest\n" +
			"web1.database.neo4j.check_point.events 3 1020\n"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// The inactivity timeout fires and everything valid is flushed.
	require.Eventually(t, func() bool { return len(pub.metrics()) == 3 }, 3*time.Second, 10*time.Millisecond)

	metrics := pub.metrics()
	assert.Equal(t, "pool/active_threads", metrics[0].Key)
	assert.Equal(t, model.KindGauge, metrics[0].Kind)
	assert.Equal(t, model.ValueInt, metrics[0].ValueType)
	assert.Equal(t, int64(4), metrics[0].Value.Int)
	assert.Equal(t, int64(7), metrics[1].Value.Int)
	assert.Equal(t, metrics[0].Labels, metrics[1].Labels)

	assert.Equal(t, "check_point/events", metrics[2].Key)
	assert.Equal(t, model.KindCounter, metrics[2].Kind)
	assert.Equal(t, model.SubsystemDatabase, metrics[2].Subsystem)

	// One descriptor per canonical key, despite repeats.
	pub.mu.Lock()
	keys := make(map[string]int)
	for _, d := range pub.descriptors {
		keys[d.Key]++
	}
	pub.mu.Unlock()
	assert.Equal(t, map[string]int{"pool/active_threads": 1, "check_point/events": 1}, keys)

	// Shutdown cascades through channel closes.
	cancel()
	require.NoError(t, g.Wait())
	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Second)
	defer drainCancel()
	require.NoError(t, batcher.Drain(drainCtx))
}

func TestHealthPublisherTracksStreamState(t *testing.T) {
	health := NewHealthStatus()
	pub := &capturePublisher{}
	hp := &healthPublisher{publisher: pub, health: health}

	require.NoError(t, hp.WriteSeries(context.Background(), []model.Metric{{Key: "a/b"}}))

	snap := health.Snapshot()
	assert.Equal(t, true, snap["stream_connected"])
	assert.Equal(t, int64(1), snap["last_flush_size"])
	assert.NotNil(t, snap["last_flush_at"])
}

func TestHealthStatusSnapshotBeforeAnyFlush(t *testing.T) {
	health := NewHealthStatus()
	snap := health.Snapshot()
	assert.Equal(t, false, snap["listener_active"])
	assert.Equal(t, false, snap["stream_connected"])
	assert.NotContains(t, snap, "last_flush_at")
}
