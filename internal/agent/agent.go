package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metrics-relay/internal/config"
	"metrics-relay/internal/convert"
	"metrics-relay/internal/identity"
	"metrics-relay/internal/ingest"
	"metrics-relay/internal/model"
	"metrics-relay/internal/publish"
	"metrics-relay/internal/stream"
)

const identityResolveTimeout = 5 * time.Second

// Agent owns the full ingest pipeline: listener -> ingest channel ->
// converter -> publish channel -> batcher -> publisher. All shared state
// (connection registry, descriptor cache) is constructed here and passed
// down, never ambient.
type Agent struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *ingest.Registry
	listener  *ingest.Listener
	converter *convert.Converter
	batcher   *publish.Batcher
	publisher stream.Publisher
	health    *HealthStatus
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}

	idCtx, cancel := context.WithTimeout(context.Background(), identityResolveTimeout)
	id := identity.NewResolver(logger).Resolve(idCtx)
	cancel()

	res := stream.Resource{ProjectID: id.ProjectID, InstanceID: id.InstanceID, Zone: id.Zone}
	pub, err := stream.NewPublisherFromConfig(cfg, tlsCfg, res, logger)
	if err != nil {
		return nil, fmt.Errorf("stream publisher: %w", err)
	}

	health := NewHealthStatus()
	wrapped := &healthPublisher{publisher: pub, health: health}

	registry := ingest.NewRegistry()
	cache := publish.NewDescriptorCache()
	ingestCh := make(chan model.RawRecord, cfg.IngestBuffer)
	publishCh := make(chan model.Metric, cfg.PublishBuffer)

	return &Agent{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		listener:  ingest.NewListener(cfg.ListenAddr, registry, ingestCh, logger),
		converter: convert.New(registry, ingestCh, publishCh, logger),
		batcher:   publish.NewBatcher(publishCh, wrapped, cache, cfg.FlushSize, cfg.FlushTimeout, cfg.PublishTimeout, logger),
		publisher: wrapped,
		health:    health,
	}, nil
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting metrics-relay", "listen_addr", a.cfg.ListenAddr, "stream_mode", string(a.cfg.StreamMode), "flush_size", a.cfg.FlushSize, "flush_timeout", a.cfg.FlushTimeout)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Relay terminated by itself (startup error/runtime error/parent ctx canceled).
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
			// graceful drain completed in time
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	a.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("metrics-relay stopped")
	return nil
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}

// healthPublisher tracks backend connectivity and flush progress around
// the real publisher.
type healthPublisher struct {
	publisher stream.Publisher
	health    *HealthStatus
}

func (p *healthPublisher) RegisterDescriptor(ctx stream.Context, d model.Descriptor) error {
	err := p.publisher.RegisterDescriptor(ctx, d)
	p.health.SetStreamConnected(err == nil)
	return err
}

func (p *healthPublisher) WriteSeries(ctx stream.Context, batch []model.Metric) error {
	err := p.publisher.WriteSeries(ctx, batch)
	if err != nil {
		p.health.SetStreamConnected(false)
		return err
	}
	p.health.SetStreamConnected(true)
	p.health.MarkFlush(time.Now().UTC(), len(batch))
	return nil
}

func (p *healthPublisher) Close(ctx stream.Context) error {
	return p.publisher.Close(ctx)
}
