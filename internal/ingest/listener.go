package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"metrics-relay/internal/model"
)

// Listener accepts Graphite clients and forwards every newline-delimited
// record into the ingest channel, tagged with the client's host identity.
// Each connection is handled by its own goroutine; a full ingest channel
// blocks that connection's reads (backpressure) rather than dropping data.
type Listener struct {
	logger   *slog.Logger
	addr     string
	registry *Registry
	out      chan<- model.RawRecord

	mu        sync.Mutex
	conns     map[net.Conn]struct{}
	boundAddr net.Addr
}

func NewListener(addr string, registry *Registry, out chan<- model.RawRecord, logger *slog.Logger) *Listener {
	return &Listener{
		logger:   logger,
		addr:     addr,
		registry: registry,
		out:      out,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Run serves until ctx is canceled, then closes open connections, waits
// for their handlers, and closes the ingest channel so downstream stages
// can drain and exit.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	defer func() { _ = ln.Close() }()

	l.mu.Lock()
	l.boundAddr = ln.Addr()
	l.mu.Unlock()

	l.logger.Info("graphite listener started", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		l.closeConns()
	}()

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(l.out)
		l.logger.Info("graphite listener stopped", "addr", l.addr)
	}()

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil || errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			if ne, ok := acceptErr.(net.Error); ok && ne.Temporary() {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept %s: %w", l.addr, acceptErr)
		}

		l.track(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.untrack(conn)
			l.handle(ctx, conn)
		}()
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	clientID := clientHost(conn.RemoteAddr())
	start := time.Now()
	l.registry.Observe(clientID)
	l.logger.Debug("client connected", "client", clientID, "remote", conn.RemoteAddr().String())

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := model.RawRecord{Payload: append([]byte(nil), line...), ClientID: clientID}
		select {
		case l.out <- rec:
		case <-ctx.Done():
			// Shutdown with the channel full: the record is lost, which is
			// the accepted in-flight loss window at exit.
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		l.logger.Warn("client read failed", "client", clientID, "error", err)
	}

	l.logger.Debug("client disconnected", "client", clientID, "duration", time.Since(start).Round(10*time.Millisecond))
}

// Addr reports the bound listen address once Run has started serving,
// nil before that. Useful with a ":0" listen address.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.boundAddr
}

func (l *Listener) track(conn net.Conn) {
	l.mu.Lock()
	l.conns[conn] = struct{}{}
	l.mu.Unlock()
}

func (l *Listener) untrack(conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()
}

func (l *Listener) closeConns() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for conn := range l.conns {
		_ = conn.Close()
	}
}

// clientHost reduces a remote address to the host part. Reconnecting
// clients come back on a fresh ephemeral port, and the registry keys on
// host so first-seen times carry across reconnects.
func clientHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
