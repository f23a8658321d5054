package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zjregee/aip/internal/models"
)

const (
	DirName  = ".aip"
	FileName = "config.yaml"
)

type Config struct {
	Options models.AgentOptions `yaml:"options"`
	Store   StoreConfig         `yaml:"store"`
	Log     LogConfig           `yaml:"log"`
}

type StoreConfig struct {
	// Path is relative to the workspace directory unless absolute.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Options: models.AgentOptions{
			InputConcurrency: models.Ptr(1),
		},
		Store: StoreConfig{
			Path: ".aip/.store/aip.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func expandEnvVars(s string) string {
	return os.ExpandEnv(s)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIP_MODEL"); v != "" {
		cfg.Options.Model = models.Ptr(v)
	}
	if v := os.Getenv("AIP_INPUT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Options.InputConcurrency = models.Ptr(n)
		}
	}
	if v := os.Getenv("AIP_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AIP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
