// Package config loads front-end settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration loaded from environment variables.
// EngineArgs go before the payload path, e.g. iniciarJuego for an engine that
// takes a subcommand.
type Config struct {
	EnginePath       string        `env:"BROADSIDE_ENGINE_PATH" envDefault:"./main.exe"`
	EngineArgs       []string      `env:"BROADSIDE_ENGINE_ARGS" envSeparator:","`
	CacheDir         string        `env:"BROADSIDE_CACHE_DIR" envDefault:"cache"`
	HandshakeTimeout time.Duration `env:"BROADSIDE_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	ResponseTimeout  time.Duration `env:"BROADSIDE_RESPONSE_TIMEOUT" envDefault:"30s"`
	BoardWidth       int           `env:"BROADSIDE_BOARD_WIDTH" envDefault:"10"`
	BoardHeight      int           `env:"BROADSIDE_BOARD_HEIGHT" envDefault:"10"`
	MaxFailures      int           `env:"BROADSIDE_MAX_FAILURES" envDefault:"3"`
	SpectatorAddr    string        `env:"BROADSIDE_SPECTATOR_ADDR"`
}

// Load reads configuration from environment variables with defaults and
// validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the match cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.EnginePath == "" {
		errs = append(errs, errors.New("engine path is empty"))
	}
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache dir is empty"))
	}
	if c.BoardWidth < 1 || c.BoardHeight < 1 {
		errs = append(errs, fmt.Errorf("board size %dx%d must be positive", c.BoardWidth, c.BoardHeight))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("handshake timeout %v must be positive", c.HandshakeTimeout))
	}
	if c.ResponseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("response timeout %v must be positive", c.ResponseTimeout))
	}
	if c.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("max failures %d must be positive", c.MaxFailures))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
