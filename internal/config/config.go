// Package config provides configuration management for the key-value
// store's server and client binaries. It layers defaults and an optional
// YAML file whose $VAR references are expanded from the environment,
// with thread-safe singleton access; CLI flags take precedence over all
// of it.
package config

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds every setting the server and client binaries need beyond
// their explicit CLI flags.
type Config struct {
	Addr         string `yaml:"ADDR"`
	EngineName   string `yaml:"ENGINE"`
	PoolKind     string `yaml:"POOL_KIND"`
	PoolSize     uint32 `yaml:"POOL_SIZE"`
	DataDir      string `yaml:"DATA_DIR"`
	BatchSize    uint32 `yaml:"BATCH_SIZE"`
	SyncInterval uint32 `yaml:"SYNC_INTERVAL"` // seconds
}

// defaults matches spec.md §6's documented server defaults.
func defaults() Config {
	return Config{
		Addr:         "127.0.0.1:4000",
		EngineName:   "",
		PoolKind:     "shared-queue",
		PoolSize:     4,
		DataDir:      ".",
		BatchSize:    4096,
		SyncInterval: 1,
	}
}

// SyncIntervalDuration returns SyncInterval as a time.Duration.
func (c Config) SyncIntervalDuration() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

const configFile = "config.yml"

var (
	appConfig Config
	once      sync.Once
	initErr   error
)

// Load reads configuration values layered as defaults, then config.yml
// (if present), whose text has environment variable references expanded
// via os.ExpandEnv before parsing (a .env file, if any, is loaded into
// the environment first). Environment variables are not read on their
// own when config.yml is absent. It uses sync.Once so repeated calls
// are cheap and concurrency-safe.
func Load() (Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("config: no .env file found", "error", err)
		} else {
			slog.Debug("config: .env file loaded")
		}

		cfg := defaults()

		if data, err := os.ReadFile(configFile); err != nil {
			if !os.IsNotExist(err) {
				initErr = err
				return
			}
			slog.Debug("config: no config.yml found, using defaults", "path", configFile)
		} else if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			initErr = err
			return
		}

		appConfig = cfg
	})
	return appConfig, initErr
}

// Get returns the singleton configuration, loading it with defaults if
// Load has not yet been called successfully.
func Get() Config {
	cfg, err := Load()
	if err != nil {
		slog.Warn("config: load failed, falling back to defaults", "error", err)
		return defaults()
	}
	return cfg
}
