package agent

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

func (a *Agent) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.listener.Run(gctx)
		a.health.SetListenerActive(false)
		return err
	})
	// The converter and batcher take no context: they exit by channel
	// close, cascading from the listener, which is what drains both
	// channels during shutdown.
	g.Go(func() error {
		return a.converter.Run()
	})
	g.Go(func() error {
		return a.batcher.Run()
	})
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	g.Go(func() error {
		return a.runProbeListener(gctx)
	})

	a.health.SetListenerActive(true)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(a.cfg.HealthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.logger.Debug("relay health", "snapshot", a.health.Snapshot(), "known_clients", a.registry.Len())
		}
	}
}

// shutdown waits for in-flight flushes, then closes the publisher. By
// this point the pipeline goroutines have already drained and exited (or
// the grace timer fired and ctx is nearly spent).
func (a *Agent) shutdown(ctx context.Context) {
	if err := a.batcher.Drain(ctx); err != nil {
		a.logger.Warn("in-flight flush drain incomplete", "error", err)
	}
	if err := a.publisher.Close(ctx); err != nil {
		a.logger.Warn("stream publisher close failed", "error", err)
	}
	a.health.SetStreamConnected(false)
}
