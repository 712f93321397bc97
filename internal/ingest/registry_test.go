package ingest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryObserveIsInsertIfAbsent(t *testing.T) {
	r := NewRegistry()
	base := time.Unix(1000, 0)
	r.now = func() time.Time { return base }

	first := r.Observe("10.0.0.5")
	assert.Equal(t, 1000.0, first)

	// A later observation (reconnect) must return the original time.
	r.now = func() time.Time { return base.Add(time.Hour) }
	again := r.Observe("10.0.0.5")
	assert.Equal(t, first, again)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryEntriesSurviveForProcessLifetime(t *testing.T) {
	r := NewRegistry()
	r.Observe("a")
	r.Observe("b")

	ts, ok := r.FirstSeen("a")
	require.True(t, ok)
	assert.Greater(t, ts, 0.0)

	_, ok = r.FirstSeen("never-seen")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConcurrentObserve(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	results := make([]float64, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Observe(fmt.Sprintf("client-%d", i%5))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, r.Len())
	// Every goroutine hitting the same client must agree on one time.
	for i := range results {
		assert.Equal(t, results[i%5], results[i])
	}
}
