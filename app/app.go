package app

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"github.com/relaynet/gatewayd/config"
	"github.com/relaynet/gatewayd/internal/metrics"
	"github.com/relaynet/gatewayd/internal/shell"
	"github.com/relaynet/gatewayd/util/conf"
	"github.com/relaynet/gatewayd/util/logging"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide metrics
		metrics.Module(),
	)

	return shell.New(log, sharedModule), nil
}
