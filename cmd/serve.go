package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/relaynet/gatewayd/app"
	"github.com/relaynet/gatewayd/app/daemon"
	"github.com/relaynet/gatewayd/config"
	"github.com/relaynet/gatewayd/util/logging"
)

var (
	serveCmdDescription = `The serve command starts the gateway daemon. It supervises
	the parcel collection subprocess and serves the control plane
	used by local clients to sync with couriers and to follow the
	connectivity to the upstream relay.

	The command blocks until the process receives SIGINT or
	SIGTERM.`
	serveCmd = &cli.Command{
		Name:        "serve",
		Usage:       "Start the gateway daemon.",
		Description: serveCmdDescription,
		Action:      serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "The host to listen on.",
				Category: "http",
				EnvVars:  []string{config.EnvPrefix + "HTTP_HOST"},
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"P"},
				Usage:    "The port to listen on.",
				Category: "http",
				EnvVars:  []string{config.EnvPrefix + "HTTP_PORT"},
			},
			&cli.BoolFlag{
				Name:     "h2c",
				Usage:    "Enable HTTP/2 cleartext upgrade.",
				Category: "http",
				EnvVars:  []string{config.EnvPrefix + "HTTP_H2C"},
			},
			&cli.StringFlag{
				Name:     "auth-token",
				Usage:    "The token control plane clients must present.",
				Category: "http",
				EnvVars:  []string{config.EnvPrefix + "AUTH_TOKEN"},
			},
			&cli.StringFlag{
				Name:     "relay-address",
				Usage:    "The host:port of the upstream relay.",
				Category: "gateway",
				EnvVars:  []string{config.EnvPrefix + "RELAY_ADDRESS"},
			},
			&cli.StringFlag{
				Name:     "courier-address",
				Usage:    "The host:port of the courier, when connected to one.",
				Category: "gateway",
				EnvVars:  []string{config.EnvPrefix + "COURIER_ADDRESS"},
			},
		},
	}
)

func serveAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	// parse config again, now including the command flags
	cfg, err := parseConfig(ctx, log)
	if err != nil {
		return err
	}

	cfg, closeLogFile, err := setUpDirs(ctx, cfg, "daemon")
	if err != nil {
		return err
	}
	defer closeLogFile()

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	return app.Run(ctx.Context, daemon.Module(cfg))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, serveCmd)
}
