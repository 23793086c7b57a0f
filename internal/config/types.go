package config

import (
	"time"

	"github.com/mattjoyce/retracer/internal/log"
	"github.com/mattjoyce/retracer/internal/replay"
)

// Config represents the complete retracer configuration.
type Config struct {
	BinaryDir        string        `yaml:"binary_dir"`
	TerminationGrace time.Duration `yaml:"termination_grace"`
	Log              LogConfig     `yaml:"log"`
	Replay           ReplayConfig  `yaml:"replay"`

	// Source is the file the config was loaded from. Empty for defaults.
	Source string `yaml:"-"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string         `yaml:"level"`
	Format string         `yaml:"format"`
	File   *LogFileConfig `yaml:"file,omitempty"`
}

// LogFileConfig defines the optional rotating log file.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ReplayConfig holds defaults for replay options not given on the command line.
type ReplayConfig struct {
	API            replay.API `yaml:"api"`
	DoubleBuffered bool       `yaml:"double_buffered"`
	Benchmarking   bool       `yaml:"benchmarking"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		TerminationGrace: 5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Replay: ReplayConfig{
			API:            replay.APIGL,
			DoubleBuffered: true,
		},
	}
}

// FileOptions converts the file sink settings for the log package.
func (l LogConfig) FileOptions() *log.FileOptions {
	if l.File == nil || l.File.Path == "" {
		return nil
	}
	return &log.FileOptions{
		Path:       l.File.Path,
		MaxSizeMB:  l.File.MaxSizeMB,
		MaxBackups: l.File.MaxBackups,
		MaxAgeDays: l.File.MaxAgeDays,
		Compress:   l.File.Compress,
	}
}

// Options builds replay options for traceFile seeded from the replay defaults.
func (c *Config) Options(traceFile string) replay.Options {
	return replay.Options{
		API:            c.Replay.API,
		TraceFile:      traceFile,
		DoubleBuffered: c.Replay.DoubleBuffered,
		Benchmarking:   c.Replay.Benchmarking,
	}
}
