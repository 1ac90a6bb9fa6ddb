package collection

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/execution/worker"
	"github.com/relaynet/gatewayd/internal/metrics"
)

// SubcommandName is the cli command the daemon re-executes itself with to
// run the parcel collection subprocess.
const SubcommandName = "parcel-collection"

type Config struct {
	// Worker describes how to launch the parcel collection subprocess.
	// If Cmd is empty, the daemon's own executable is used.
	Worker worker.StartConfig `conf:"worker"`

	// TerminationTimeout bounds how long a restart waits for the old
	// subprocess to exit.
	TerminationTimeout time.Duration `conf:"termination_timeout"`
}

// NewSpawnFunc returns a SpawnFunc launching process workers. Workers are
// killed when ctx is cancelled.
func NewSpawnFunc(ctx context.Context, config worker.StartConfig, log *zap.Logger) SpawnFunc {
	return func(startCtx context.Context) (Channel, error) {
		w := worker.NewProcessWorker(ctx, config, log)
		if err := w.Start(startCtx); err != nil {
			return nil, err
		}

		return w, nil
	}
}

func defaultWorkerConfig(config worker.StartConfig) (worker.StartConfig, error) {
	if config.Cmd != "" {
		return config, nil
	}

	executable, err := os.Executable()
	if err != nil {
		return config, fmt.Errorf("failed to resolve executable: %w", err)
	}

	config.Cmd = executable
	config.Args = append([]string{SubcommandName}, config.Args...)

	return config, nil
}

type SupervisorParams struct {
	fx.In

	Context context.Context

	Config Config

	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

func NewLifecycleSupervisor(params SupervisorParams, lc fx.Lifecycle) (*ProcessSupervisor, error) {
	workerConfig, err := defaultWorkerConfig(params.Config.Worker)
	if err != nil {
		return nil, err
	}

	s := New(Params{
		Spawn:              NewSpawnFunc(params.Context, workerConfig, params.Log),
		TerminationTimeout: params.Config.TerminationTimeout,
		Metrics:            params.Metrics,
		Log:                params.Log,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})

	return s, nil
}

func Module(config Config) fx.Option {
	return fx.Module("collection",
		// provide collection config
		fx.Supply(config),
		// provide supervisor
		fx.Provide(NewLifecycleSupervisor),
		// expose supervisor to the control plane
		fx.Provide(func(s *ProcessSupervisor) Supervisor { return s }),
	)
}
