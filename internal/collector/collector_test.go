package collector_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/collector"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func TestCollector_Probe_ReachableRelay(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	c := collector.New(collector.Params{
		Config: collector.Config{
			RelayAddress: listener.Addr().String(),
			DialTimeout:  time.Second,
		},
		Output: &syncBuffer{},
		Log:    zap.NewNop(),
	})

	assert.Equal(t, collector.StatusConnected, c.Probe(context.Background()))
}

func TestCollector_Probe_UnreachableRelay(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	c := collector.New(collector.Params{
		Config: collector.Config{
			RelayAddress: address,
			DialTimeout:  time.Second,
		},
		Output: &syncBuffer{},
		Log:    zap.NewNop(),
	})

	assert.Equal(t, collector.StatusDisconnected, c.Probe(context.Background()))
}

func TestCollector_Run_ReportsChangesOnly(t *testing.T) {
	var reachable atomic.Bool
	var probes atomic.Int32

	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		probes.Add(1)
		if !reachable.Load() {
			return nil, errors.New("connection refused")
		}
		client, server := net.Pipe()
		server.Close()
		return client, nil
	}

	out := &syncBuffer{}
	c := collector.New(collector.Params{
		Config: collector.Config{
			RelayAddress:  "relay.test:443",
			ProbeInterval: 5 * time.Millisecond,
		},
		Output: out,
		Dial:   dial,
		Log:    zap.NewNop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	// several probes while unreachable produce a single report
	require.Eventually(t, func() bool {
		return probes.Load() >= 3
	}, 2*time.Second, time.Millisecond)

	reachable.Store(true)

	require.Eventually(t, func() bool {
		return len(out.lines()) == 2
	}, 2*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{
		`{"type":"status","status":"disconnected"}`,
		`{"type":"status","status":"connected"}`,
	}, out.lines())
}
