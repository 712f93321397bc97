package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StreamMode string

const (
	StreamModeGRPC      StreamMode = "grpc"
	StreamModeWebSocket StreamMode = "websocket"
)

type Config struct {
	Hostname              string
	ListenAddr            string
	ProbeListenAddr       string
	FlushSize             int
	FlushTimeout          time.Duration
	PublishTimeout        time.Duration
	IngestBuffer          int
	PublishBuffer         int
	HealthInterval        time.Duration
	ShutdownTimeout       time.Duration
	StreamMode            StreamMode
	BackendGRPCAddr       string
	BackendWSURL          string
	BackendToken          string
	MetricTypeRoot        string
	TLSEnabled            bool
	TLSSkipVerify         bool
	TLSCAPath             string
	TLSCertPath           string
	TLSKeyPath            string
	LogJSON               bool
	LogLevel              string
	WebSocketWriteTimeout time.Duration
	WebSocketPingInterval time.Duration
}

func Load() (Config, error) {
	// Optional .env bootstrap; absence is not an error.
	_ = godotenv.Load()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	cfg := Config{
		Hostname:              hostname,
		ListenAddr:            env("RELAY_LISTEN_ADDR", "127.0.0.1:2003"),
		ProbeListenAddr:       env("RELAY_PROBE_ADDR", "0.0.0.0:7443"),
		FlushSize:             envInt("RELAY_FLUSH_SIZE", 100),
		FlushTimeout:          envDuration("RELAY_FLUSH_TIMEOUT", 15*time.Second),
		PublishTimeout:        envDuration("RELAY_PUBLISH_TIMEOUT", 10*time.Second),
		IngestBuffer:          envInt("RELAY_INGEST_BUFFER", 1024),
		PublishBuffer:         envInt("RELAY_PUBLISH_BUFFER", 1024),
		HealthInterval:        envDuration("RELAY_HEALTH_INTERVAL", 10*time.Second),
		ShutdownTimeout:       envDuration("RELAY_SHUTDOWN_TIMEOUT", 20*time.Second),
		StreamMode:            StreamMode(strings.ToLower(env("RELAY_STREAM_MODE", string(StreamModeGRPC)))),
		BackendGRPCAddr:       env("RELAY_BACKEND_GRPC_ADDR", "127.0.0.1:3001"),
		BackendWSURL:          env("RELAY_BACKEND_WS_URL", "ws://127.0.0.1:3001/ws/metrics"),
		BackendToken:          env("RELAY_BACKEND_TOKEN", ""),
		MetricTypeRoot:        env("RELAY_METRIC_TYPE_ROOT", "custom.googleapis.com/neo4j"),
		TLSEnabled:            envBool("RELAY_TLS_ENABLED", false),
		TLSSkipVerify:         envBool("RELAY_TLS_SKIP_VERIFY", false),
		TLSCAPath:             env("RELAY_TLS_CA_PATH", ""),
		TLSCertPath:           env("RELAY_TLS_CERT_PATH", ""),
		TLSKeyPath:            env("RELAY_TLS_KEY_PATH", ""),
		LogJSON:               envBool("RELAY_LOG_JSON", true),
		LogLevel:              strings.ToLower(env("RELAY_LOG_LEVEL", "info")),
		WebSocketWriteTimeout: envDuration("RELAY_WS_WRITE_TIMEOUT", 5*time.Second),
		WebSocketPingInterval: envDuration("RELAY_WS_PING_INTERVAL", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("RELAY_LISTEN_ADDR is required")
	}
	if strings.TrimSpace(c.ProbeListenAddr) == "" {
		return errors.New("RELAY_PROBE_ADDR is required")
	}
	if c.FlushSize <= 0 {
		return errors.New("RELAY_FLUSH_SIZE must be > 0")
	}
	if c.FlushTimeout <= 0 {
		return errors.New("RELAY_FLUSH_TIMEOUT must be > 0")
	}
	if c.PublishTimeout <= 0 {
		return errors.New("RELAY_PUBLISH_TIMEOUT must be > 0")
	}
	if c.IngestBuffer <= 0 || c.PublishBuffer <= 0 {
		return errors.New("channel buffers must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("RELAY_SHUTDOWN_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.MetricTypeRoot) == "" {
		return errors.New("RELAY_METRIC_TYPE_ROOT is required")
	}
	switch c.StreamMode {
	case StreamModeGRPC, StreamModeWebSocket:
	default:
		return fmt.Errorf("unsupported stream mode %q", c.StreamMode)
	}
	if c.StreamMode == StreamModeGRPC && c.BackendGRPCAddr == "" {
		return errors.New("RELAY_BACKEND_GRPC_ADDR is required for grpc mode")
	}
	if c.StreamMode == StreamModeWebSocket && c.BackendWSURL == "" {
		return errors.New("RELAY_BACKEND_WS_URL is required for websocket mode")
	}
	return nil
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load mTLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
