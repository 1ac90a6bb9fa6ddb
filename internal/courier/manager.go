package courier

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	// Address is the host:port the courier listens on.
	Address string `conf:"address"`

	// DialTimeout bounds the courier reachability check.
	DialTimeout time.Duration `conf:"dial_timeout"`

	// Wait is how long to wait between cargo collection and delivery,
	// giving the courier time to make incoming cargo available.
	Wait time.Duration `conf:"wait"`
}

// Registration tells whether the gateway has registered with its upstream
// relay.
type Registration interface {
	Registered(ctx context.Context) (bool, error)
}

// Exchanger performs the cargo exchange with the courier.
type Exchanger interface {
	CollectCargo(ctx context.Context) error
	DeliverCargo(ctx context.Context) error
}

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type ManagerParams struct {
	Config       Config
	Registration Registration
	Exchanger    Exchanger

	// Dial defaults to a net.Dialer.
	Dial DialFunc

	Log *zap.Logger
}

// Syncer produces the stages of a courier sync.
type Syncer interface {
	Sync(ctx context.Context) iter.Seq2[Stage, error]
}

// Manager produces the stages of a courier sync.
type Manager struct {
	config       Config
	registration Registration
	exchanger    Exchanger
	dial         DialFunc

	log *zap.Logger
}

var _ Syncer = (*Manager)(nil)

func NewManager(params ManagerParams) *Manager {
	dial := params.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}

	return &Manager{
		config:       params.Config,
		registration: params.Registration,
		exchanger:    params.Exchanger,
		dial:         dial,
		log:          params.Log.Named("courier"),
	}
}

// Sync returns the stages of one courier sync. The sequence ends with a
// non-nil error if the sync fails.
func (m *Manager) Sync(ctx context.Context) iter.Seq2[Stage, error] {
	return func(yield func(Stage, error) bool) {
		if err := m.checkPreconditions(ctx); err != nil {
			yield("", err)
			return
		}

		if !yield(StageCollection, nil) {
			return
		}
		if err := m.exchanger.CollectCargo(ctx); err != nil {
			yield("", fmt.Errorf("failed to collect cargo: %w", err))
			return
		}

		if !yield(StageWait, nil) {
			return
		}
		select {
		case <-time.After(m.config.Wait):
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		}

		if !yield(StageDelivery, nil) {
			return
		}
		if err := m.exchanger.DeliverCargo(ctx); err != nil {
			yield("", fmt.Errorf("failed to deliver cargo: %w", err))
		}
	}
}

func (m *Manager) checkPreconditions(ctx context.Context) error {
	registered, err := m.registration.Registered(ctx)
	if err != nil {
		return fmt.Errorf("failed to check registration: %w", err)
	}
	if !registered {
		return ErrUnregisteredGateway
	}

	dialCtx := ctx
	if m.config.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.config.DialTimeout)
		defer cancel()
	}

	conn, err := m.dial(dialCtx, "tcp", m.config.Address)
	if err != nil {
		m.log.Debug("courier is unreachable",
			zap.String("address", m.config.Address),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrDisconnectedFromCourier, err)
	}

	_ = conn.Close()

	return nil
}

// FileRegistration considers the gateway registered once its registration
// file exists.
type FileRegistration struct {
	Path string
}

func (r FileRegistration) Registered(context.Context) (bool, error) {
	_, err := os.Stat(r.Path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// LoggingExchanger only logs the exchange. It is used until a cargo
// exchange implementation is configured.
type LoggingExchanger struct {
	Log *zap.Logger
}

func (e LoggingExchanger) CollectCargo(context.Context) error {
	e.Log.Info("collecting cargo from courier")
	return nil
}

func (e LoggingExchanger) DeliverCargo(context.Context) error {
	e.Log.Info("delivering cargo to courier")
	return nil
}
