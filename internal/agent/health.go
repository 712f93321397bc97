package agent

import (
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	listenerActive  atomic.Bool
	streamConnected atomic.Bool
	lastFlushAt     atomic.Int64
	lastFlushSize   atomic.Int64
}

func NewHealthStatus() *HealthStatus {
	h := &HealthStatus{}
	h.listenerActive.Store(false)
	h.streamConnected.Store(false)
	return h
}

func (h *HealthStatus) SetListenerActive(ok bool) {
	h.listenerActive.Store(ok)
}

func (h *HealthStatus) SetStreamConnected(ok bool) {
	h.streamConnected.Store(ok)
}

func (h *HealthStatus) MarkFlush(ts time.Time, size int) {
	h.lastFlushAt.Store(ts.UnixNano())
	h.lastFlushSize.Store(int64(size))
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"listener_active":  h.listenerActive.Load(),
		"stream_connected": h.streamConnected.Load(),
	}
	if v := h.lastFlushAt.Load(); v > 0 {
		out["last_flush_at"] = time.Unix(0, v).UTC()
		out["last_flush_size"] = h.lastFlushSize.Load()
	}
	return out
}
