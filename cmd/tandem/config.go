package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the tandem configuration file
// (~/.config/tandem/config.yaml). Numeric fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	Model     string `yaml:"model"`
	ModelsDir string `yaml:"models_dir"`

	// Server
	Listen    string   `yaml:"listen"`
	Cache     string   `yaml:"cache"`
	RateLimit *float64 `yaml:"rate_limit"`
	Threshold *float64 `yaml:"threshold"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tandem", "config.yaml")
}

// applyLoggingConfig applies config file logging defaults when the
// corresponding CLI flag was not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyThresholdConfig(c *cli.Command, cfg Config) {
	if cfg.Threshold != nil && !c.IsSet("threshold") {
		threshold = *cfg.Threshold
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, listen, cachePath *string, rateLimit *float64) {
	if cfg.Listen != "" && !c.IsSet("listen") {
		*listen = cfg.Listen
	}
	if cfg.Cache != "" && !c.IsSet("cache") {
		*cachePath = cfg.Cache
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		*rateLimit = *cfg.RateLimit
	}
	applyThresholdConfig(c, cfg)
	applyLoggingConfig(c, cfg)
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
