package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/rectflow/internal/config"
	"github.com/born-ml/rectflow/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	debugLogs  bool
	workers    int
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to a YAML run config",
			Sources:     cli.EnvVars("RECTFLOW_CONFIG"),
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debugLogs,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "goroutines per layer (0 = one per CPU, 1 = sequential)",
			Destination: &workers,
		},
	}
}

// setupLogging installs the logger in the command context. Config file
// values apply unless the flag was given explicitly.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, format := logLevel, logFormat
	if configPath != "" {
		if cfg, err := config.Load(configPath); err == nil {
			if !cmd.IsSet("log-level") && cfg.Log.Level != "" {
				level = cfg.Log.Level
			}
			if !cmd.IsSet("log-format") && cfg.Log.Format != "" {
				format = cfg.Log.Format
			}
		}
	}
	if debugLogs {
		level = "debug"
	}

	log, err := logger.NewWithFormat(os.Stderr, format, logger.ParseLevel(level))
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

// loadConfig reads --config (or the defaults) and applies the explicitly
// set flags on top.
func loadConfig(cmd *cli.Command, o config.Overrides) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.IsSet("workers") {
		o.Workers = &workers
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ifSet returns &v when the flag was given on the command line.
func ifSet[T any](cmd *cli.Command, name string, v *T) *T {
	if cmd.IsSet(name) {
		return v
	}
	return nil
}
