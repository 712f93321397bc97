package stream

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"metrics-relay/internal/config"
)

const (
	defaultDescriptorMethod = "/relay.metrics.v1.MetricsService/RegisterDescriptors"
	defaultSeriesMethod     = "/relay.metrics.v1.MetricsService/PublishTimeSeries"
)

func NewPublisherFromConfig(cfg config.Config, tlsCfg *tls.Config, res Resource, logger *slog.Logger) (Publisher, error) {
	switch cfg.StreamMode {
	case config.StreamModeGRPC:
		return NewGRPCClient(
			cfg.BackendGRPCAddr,
			tlsCfg,
			cfg.BackendToken,
			cfg.MetricTypeRoot,
			res,
			defaultDescriptorMethod,
			defaultSeriesMethod,
			logger,
		), nil
	case config.StreamModeWebSocket:
		return NewWebSocketClient(
			cfg.BackendWSURL,
			cfg.BackendToken,
			cfg.Hostname,
			cfg.MetricTypeRoot,
			res,
			tlsCfg,
			cfg.WebSocketWriteTimeout,
			cfg.WebSocketPingInterval,
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported stream mode %q", cfg.StreamMode)
	}
}
