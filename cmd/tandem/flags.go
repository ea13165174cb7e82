package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tandemml/tandem/internal/api"
	"github.com/tandemml/tandem/internal/logger"
)

var (
	modelPath string
	modelsDir string
	threshold float64
	logLevel  string
	logFormat string
	debug     bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to .ecf checkpoint",
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "models-dir",
			Aliases:     []string{"path"},
			Usage:       "directory containing .ecf checkpoints",
			Destination: &modelsDir,
		},
	}
}

func thresholdFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:        "threshold",
		Usage:       "cosine similarity at or above which texts count as duplicates",
		Value:       api.DefaultThreshold,
		Destination: &threshold,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
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
			Destination: &debug,
		},
	}
}

func setupLogger() (logger.Logger, error) {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logger.Setup(os.Stderr, logFormat, level), nil
}
