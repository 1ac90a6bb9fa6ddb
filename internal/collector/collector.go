// Package collector implements the parcel collection subprocess. It keeps
// track of whether the upstream relay is reachable and reports every change
// to the parent daemon as a JSON line on its output.
package collector

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultProbeInterval = 5 * time.Second

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

type Config struct {
	// RelayAddress is the host:port of the upstream relay.
	RelayAddress string `conf:"relay_address"`

	// ProbeInterval is the time between two reachability probes.
	ProbeInterval time.Duration `conf:"probe_interval"`

	// DialTimeout bounds a single probe.
	DialTimeout time.Duration `conf:"dial_timeout"`
}

// Report is the message sent to the parent daemon.
type Report struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Params struct {
	Config Config

	// Output receives one JSON report per line.
	Output io.Writer

	// Dial defaults to a net.Dialer.
	Dial DialFunc

	Log *zap.Logger
}

type Collector struct {
	config Config
	dial   DialFunc

	encLock sync.Mutex
	enc     *json.Encoder

	log *zap.Logger
}

func New(params Params) *Collector {
	dial := params.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}

	return &Collector{
		config: params.Config,
		dial:   dial,
		enc:    json.NewEncoder(params.Output),
		log:    params.Log.Named("collector"),
	}
}

// Run probes the relay until ctx is done. The first status is always
// reported; afterwards only changes are.
func (c *Collector) Run(ctx context.Context) error {
	log := c.log.With(zap.String("relay", c.config.RelayAddress))
	log.Info("starting parcel collection")

	interval := c.config.ProbeInterval
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		status := c.Probe(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if status != last {
			log.Info("relay connectivity changed", zap.String("status", status))

			if err := c.report(status); err != nil {
				// the parent went away
				return err
			}
			last = status
		}

		select {
		case <-ctx.Done():
			log.Info("stopping parcel collection")
			return nil
		case <-ticker.C:
		}
	}
}

// Probe reports whether the relay accepts connections.
func (c *Collector) Probe(ctx context.Context) string {
	if c.config.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.DialTimeout)
		defer cancel()
	}

	conn, err := c.dial(ctx, "tcp", c.config.RelayAddress)
	if err != nil {
		c.log.Debug("relay probe failed", zap.Error(err))
		return StatusDisconnected
	}

	_ = conn.Close()

	return StatusConnected
}

func (c *Collector) report(status string) error {
	c.encLock.Lock()
	defer c.encLock.Unlock()

	return c.enc.Encode(Report{Type: "status", Status: status})
}
