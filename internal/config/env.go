package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envOverrides are the settings that may be overridden from the environment.
// Unset variables leave the pointer nil so the file value is kept.
type envOverrides struct {
	BinaryDir        *string        `env:"RETRACER_BINARY_DIR"`
	LogLevel         *string        `env:"RETRACER_LOG_LEVEL"`
	LogFormat        *string        `env:"RETRACER_LOG_FORMAT"`
	TerminationGrace *time.Duration `env:"RETRACER_TERMINATION_GRACE"`
}

// ApplyEnv overlays RETRACER_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.BinaryDir != nil {
		cfg.BinaryDir = *o.BinaryDir
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Log.Format = *o.LogFormat
	}
	if o.TerminationGrace != nil {
		cfg.TerminationGrace = *o.TerminationGrace
	}
	return nil
}
