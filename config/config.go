package config

import (
	"maps"
	"time"

	"github.com/relaynet/gatewayd/internal/collection"
	"github.com/relaynet/gatewayd/internal/collector"
	"github.com/relaynet/gatewayd/internal/courier"
	"github.com/relaynet/gatewayd/internal/server"
	"github.com/relaynet/gatewayd/util/conf"
)

// EnvPrefix is the prefix of the environment variables the configuration
// is read from, e.g. GATEWAYD_COURIER__ADDRESS for courier.address.
const EnvPrefix = "GATEWAYD_"

type AuthConfig struct {
	// Token is the secret control plane clients must present
	Token string `conf:"token"`
}

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// DataDir holds the gateway's persistent state
	DataDir string `conf:"data_dir"`

	// LogDir receives the log files of every component
	LogDir string `conf:"log_dir"`

	// Auth is the control plane authentication configuration
	Auth AuthConfig `conf:"auth"`

	// Http is the control plane server configuration
	Http server.HttpConfig `conf:"http"`

	// Collection is the parcel collection supervisor configuration
	Collection collection.Config `conf:"collection"`

	// Collector is the configuration of the parcel collection subprocess
	Collector collector.Config `conf:"collector"`

	// Courier is the courier sync configuration
	Courier courier.Config `conf:"courier"`
}

var DefaultConfig = mergeDefaults(
	conf.DefaultConfig{
		"log_level":  "info",
		"log_format": "production",
	},
	conf.MergeDefaults("http", conf.DefaultConfig{
		"host": "127.0.0.1",
		"port": 13276,
		"h2c":  false,
	}),
	conf.MergeDefaults("collection", conf.DefaultConfig{
		"termination_timeout": 10 * time.Second,
	}),
	conf.MergeDefaults("collector", conf.DefaultConfig{
		"relay_address":  "frankfurt.relaycorp.cloud:443",
		"probe_interval": 5 * time.Second,
		"dial_timeout":   3 * time.Second,
	}),
	conf.MergeDefaults("courier", conf.DefaultConfig{
		"address":      "192.168.43.1:21473",
		"dial_timeout": 3 * time.Second,
		"wait":         5 * time.Second,
	}),
)

func mergeDefaults(sections ...conf.DefaultConfig) conf.DefaultConfig {
	merged := conf.DefaultConfig{}
	for _, section := range sections {
		maps.Copy(merged, section)
	}
	return merged
}

// WorkerEnv renders the settings of the parcel collection subprocess as
// environment variables, so it sees the daemon's effective configuration
// regardless of where that came from.
func WorkerEnv(cfg Config) map[string]string {
	return map[string]string{
		EnvPrefix + "LOG_LEVEL":                 cfg.LogLevel,
		EnvPrefix + "LOG_FORMAT":                cfg.LogFormat,
		EnvPrefix + "DATA_DIR":                  cfg.DataDir,
		EnvPrefix + "LOG_DIR":                   cfg.LogDir,
		EnvPrefix + "COLLECTOR__RELAY_ADDRESS":  cfg.Collector.RelayAddress,
		EnvPrefix + "COLLECTOR__PROBE_INTERVAL": cfg.Collector.ProbeInterval.String(),
		EnvPrefix + "COLLECTOR__DIAL_TIMEOUT":   cfg.Collector.DialTimeout.String(),
	}
}
