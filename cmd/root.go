package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/relaynet/gatewayd/config"
	"github.com/relaynet/gatewayd/internal/appdirs"
	"github.com/relaynet/gatewayd/internal/shell"
	"github.com/relaynet/gatewayd/util/conf"
	"github.com/relaynet/gatewayd/util/logging"
)

var (
	appName  = "gatewayd"
	appUsage = `A store-and-forward gateway daemon, relaying parcels between
local endpoints and the internet, directly or via couriers.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{config.EnvPrefix + "LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{config.EnvPrefix + "LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:     "config",
				Usage:    "path to a JSON configuration file.",
				Category: "config",
				EnvVars:  []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.PathFlag{
				Name:     "data-dir",
				Usage:    "the directory the gateway keeps its state in.",
				Category: "config",
				EnvVars:  []string{config.EnvPrefix + "DATA_DIR"},
			},
			&cli.PathFlag{
				Name:     "log-dir",
				Usage:    "the directory log files are written to.",
				Category: "config",
				EnvVars:  []string{config.EnvPrefix + "LOG_DIR"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// parse config using env
			cfg, err := parseConfig(ctx, log)
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			log, err := logging.LoggerFromContext(ctx.Context)
			if err != nil {
				return err
			}

			_ = log.Sync()

			return nil
		},
	}
)

// cliMap maps cli flags to the config keys they override.
var cliMap = map[string]string{
	"host":            "http.host",
	"port":            "http.port",
	"h2c":             "http.h2c",
	"auth-token":      "auth.token",
	"relay-address":   "collector.relay_address",
	"courier-address": "courier.address",
}

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

func Execute(params ExecuteParams) {
	defer recoverCrash(zapcore.Lock(os.Stderr))

	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	run(context.Background(), os.Args)
}

func run(ctx context.Context, args []string) {
	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return
	}

	// if app exited with ExitError, exit with given exit code
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		terminate(exitErr.ExitCode)
		return
	}

	fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())

	// otherwise, exit with exit code 1
	terminate(1)
}

// parseConfig reads the configuration from the defaults, the config file,
// the environment and the flags of the command being run.
func parseConfig(ctx *cli.Context, log *zap.Logger) (config.Config, error) {
	return conf.Parse[config.Config](conf.ParseOptions{
		Cli:       ctx,
		CliMap:    cliMap,
		Defaults:  config.DefaultConfig,
		EnvPrefix: config.EnvPrefix,
		FileName:  ctx.Path("config"),
		Log:       log,
	})
}

// setUpDirs creates the data and log directories and adds the log file of
// component to the logger in the cli context.
func setUpDirs(ctx *cli.Context, cfg config.Config, component string) (config.Config, func() error, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return cfg, nil, err
	}

	dirs, err := appdirs.Create(appdirs.Dirs{Data: cfg.DataDir, Log: cfg.LogDir})
	if err != nil {
		return cfg, nil, err
	}

	cfg.DataDir = dirs.Data
	cfg.LogDir = dirs.Log

	log, closeFile := logging.WithFile(log, dirs.LogFile(component), getLogLevelFromCLI(ctx))

	ctx.Context = logging.ContextWithLogger(ctx.Context, log)
	ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

	return cfg, closeFile, nil
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	level := getLogLevelFromCLI(ctx)
	format := getLogFormatFromCLI(ctx)

	var config zap.Config
	if format == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.InitialFields = map[string]any{
		"app": appName,
	}

	config.Level = level

	return config.Build()
}

func getLogFormatFromCLI(ctx *cli.Context) string {
	format := ctx.String("log-format")
	if format != "" {
		return format
	}

	return "production"
}

func getLogLevelFromCLI(ctx *cli.Context) zap.AtomicLevel {
	lvl := ctx.String("log-level")

	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}
