package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relaynet/gatewayd/internal/collection"
	"github.com/relaynet/gatewayd/internal/collector"
	"github.com/relaynet/gatewayd/util/logging"
)

var (
	collectCmdDescription = `The parcel-collection command runs the parcel collection
	subprocess. It is started and supervised by the daemon, which
	reads the connectivity statuses it reports on stdout.`
	collectCmd = &cli.Command{
		Name:        collection.SubcommandName,
		Usage:       "Run the parcel collection subprocess.",
		Description: collectCmdDescription,
		Hidden:      true,
		Action:      collectAction,
	}
)

func collectAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := parseConfig(ctx, log)
	if err != nil {
		return err
	}

	cfg, closeLogFile, err := setUpDirs(ctx, cfg, collection.SubcommandName)
	if err != nil {
		return err
	}
	defer closeLogFile()

	log, err = logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}
	defer log.Sync()

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := collector.New(collector.Params{
		Config: cfg.Collector,
		// stdout is reserved for the reports read by the daemon
		Output: os.Stdout,
		Log:    log,
	})

	if err := c.Run(runCtx); err != nil {
		log.Error("parcel collection failed", zap.Error(err))
		return err
	}

	return nil
}

func init() {
	rootApp.Commands = append(rootApp.Commands, collectCmd)
}
