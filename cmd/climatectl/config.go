package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ctlConfig is read from the same CLIMATEHUB_* variables the server uses.
type ctlConfig struct {
	MongoURI      string        `env:"CLIMATEHUB_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"CLIMATEHUB_MONGO_DATABASE" envDefault:"climatehub"`
	Timeout       time.Duration `env:"CLIMATECTL_TIMEOUT" envDefault:"5m"`
	Verbose       bool          `env:"CLIMATECTL_VERBOSE"`
}

func loadConfig() (ctlConfig, error) {
	var cfg ctlConfig
	if err := env.Parse(&cfg); err != nil {
		return ctlConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Timeout <= 0 {
		return ctlConfig{}, fmt.Errorf("CLIMATECTL_TIMEOUT must be positive")
	}
	return cfg, nil
}
