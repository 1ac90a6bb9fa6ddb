package courier

import (
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RegistrationFile is the name of the file, relative to the data directory,
// whose presence marks the gateway as registered.
const RegistrationFile = "registration"

func NewManagerFromConfig(config Config, dataDir string, log *zap.Logger) *Manager {
	return NewManager(ManagerParams{
		Config:       config,
		Registration: FileRegistration{Path: filepath.Join(dataDir, RegistrationFile)},
		Exchanger:    LoggingExchanger{Log: log.Named("cargo")},
		Log:          log,
	})
}

func Module(config Config, dataDir string) fx.Option {
	return fx.Module("courier",
		// provide courier config
		fx.Supply(config),
		// provide sync manager
		fx.Provide(func(config Config, log *zap.Logger) *Manager {
			return NewManagerFromConfig(config, dataDir, log)
		}),
		// expose manager to the control plane
		fx.Provide(func(m *Manager) Syncer { return m }),
	)
}
