package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"metrics-relay/internal/model"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// GRPCClient ships descriptor and series frames over two client streams
// opened by raw method name, reopening a stream once after a failed send.
type GRPCClient struct {
	mu sync.Mutex

	logger           *slog.Logger
	addr             string
	tlsConfig        *tls.Config
	token            string
	typeRoot         string
	resource         Resource
	descriptorMethod string
	seriesMethod     string
	conn             *grpc.ClientConn
	descriptorStream grpc.ClientStream
	seriesStream     grpc.ClientStream
	dialTimeout      time.Duration
}

func NewGRPCClient(addr string, tlsCfg *tls.Config, token, typeRoot string, res Resource, descriptorMethod, seriesMethod string, logger *slog.Logger) *GRPCClient {
	encoding.RegisterCodec(jsonCodec{})
	return &GRPCClient{
		logger:           logger,
		addr:             addr,
		tlsConfig:        tlsCfg,
		token:            token,
		typeRoot:         typeRoot,
		resource:         res,
		descriptorMethod: descriptorMethod,
		seriesMethod:     seriesMethod,
		dialTimeout:      8 * time.Second,
	}
}

func (c *GRPCClient) RegisterDescriptor(ctx Context, d model.Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if c.descriptorStream == nil {
		if err := c.openDescriptorStreamLocked(); err != nil {
			return err
		}
	}
	frame := NewDescriptorFrame(c.typeRoot, c.resource, d)
	if err := c.descriptorStream.SendMsg(frame); err != nil {
		c.logger.Warn("grpc descriptor send failed, reopening stream", "error", err)
		c.descriptorStream = nil
		if err2 := c.openDescriptorStreamLocked(); err2 != nil {
			return fmt.Errorf("reopen descriptor stream: %w", err2)
		}
		if err2 := c.descriptorStream.SendMsg(frame); err2 != nil {
			return fmt.Errorf("send descriptor frame: %w", err2)
		}
	}
	return nil
}

func (c *GRPCClient) WriteSeries(ctx Context, batch []model.Metric) error {
	if len(batch) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if c.seriesStream == nil {
		if err := c.openSeriesStreamLocked(); err != nil {
			return err
		}
	}
	frame := NewSeriesFrame(c.typeRoot, c.resource, batch)
	if err := c.seriesStream.SendMsg(frame); err != nil {
		c.logger.Warn("grpc series send failed, reopening stream", "error", err)
		c.seriesStream = nil
		if err2 := c.openSeriesStreamLocked(); err2 != nil {
			return fmt.Errorf("reopen series stream: %w", err2)
		}
		if err2 := c.seriesStream.SendMsg(frame); err2 != nil {
			return fmt.Errorf("send series frame: %w", err2)
		}
	}
	return nil
}

func (c *GRPCClient) Close(Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.descriptorStream != nil {
		_ = c.descriptorStream.CloseSend()
		c.descriptorStream = nil
	}
	if c.seriesStream != nil {
		_ = c.seriesStream.CloseSend()
		c.seriesStream = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *GRPCClient) ensureConnLocked(ctx Context) error {
	if c.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		dialCtx, cancel = context.WithDeadline(context.Background(), dl)
		defer cancel()
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.DialContext(
		dialCtx,
		c.addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc stream connected", "addr", c.addr)
	return nil
}

func (c *GRPCClient) openDescriptorStreamLocked() error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	streamCtx := c.decorateContext()
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.descriptorMethod)
	if err != nil {
		return fmt.Errorf("open descriptor stream: %w", err)
	}
	c.descriptorStream = s
	return nil
}

func (c *GRPCClient) openSeriesStreamLocked() error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	streamCtx := c.decorateContext()
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.seriesMethod)
	if err != nil {
		return fmt.Errorf("open series stream: %w", err)
	}
	c.seriesStream = s
	return nil
}

// decorateContext builds the context a client stream is opened with.
// Streams outlive any single flush, so the caller's deadline is not
// carried over.
func (c *GRPCClient) decorateContext() context.Context {
	out := context.Background()
	if c.token != "" {
		out = metadata.AppendToOutgoingContext(out, "authorization", "Bearer "+c.token)
	}
	return out
}
