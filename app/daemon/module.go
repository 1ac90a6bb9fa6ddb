package daemon

import (
	"maps"

	"go.uber.org/fx"

	"github.com/relaynet/gatewayd/config"
	"github.com/relaynet/gatewayd/handler"
	"github.com/relaynet/gatewayd/internal/collection"
	"github.com/relaynet/gatewayd/internal/courier"
	"github.com/relaynet/gatewayd/internal/server"
	"github.com/relaynet/gatewayd/util/logging"
)

// Module wires the gateway daemon: the parcel collection supervisor, the
// courier sync engine and the control plane serving both.
func Module(cfg config.Config) fx.Option {
	collectionConfig := cfg.Collection
	collectionConfig.Worker.Env = maps.Clone(collectionConfig.Worker.Env)
	if collectionConfig.Worker.Env == nil {
		collectionConfig.Worker.Env = map[string]string{}
	}
	// the subprocess sees the daemon's effective settings
	maps.Copy(collectionConfig.Worker.Env, config.WorkerEnv(cfg))

	return fx.Module(
		"daemon",
		// rename logger for module
		logging.DecorateLogger("daemon"),
		// provide parcel collection supervisor
		collection.Module(collectionConfig),
		// provide courier sync
		courier.Module(cfg.Courier, cfg.DataDir),
		// provide control plane handlers
		handler.Module(),
		// provide server
		server.Module(cfg.Http),
	)
}
