package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ErrNotFound is returned by Discover when no config file exists.
var ErrNotFound = errors.New("no config found")

// Load reads and parses configuration from a file, applies environment
// overrides and validates the result.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.Source = absPath

	// Relative binary_dir is relative to the config file.
	if cfg.BinaryDir != "" && !filepath.IsAbs(cfg.BinaryDir) {
		cfg.BinaryDir = filepath.Join(filepath.Dir(absPath), cfg.BinaryDir)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Defaults, then applies environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	interpolated := interpolateEnv(string(data))

	dec := yaml.NewDecoder(strings.NewReader(interpolated))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Discover finds the config file by checking standard locations.
// Priority order: $RETRACER_CONFIG, ~/.config/retracer/config.yaml, ./retracer.yaml.
func Discover() (string, error) {
	if path := os.Getenv("RETRACER_CONFIG"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "retracer", "config.yaml")
		if fileExists(userConfig) {
			return userConfig, nil
		}
	}

	if fileExists("./retracer.yaml") {
		return "./retracer.yaml", nil
	}

	return "", fmt.Errorf("%w (checked: $RETRACER_CONFIG, ~/.config/retracer/config.yaml, ./retracer.yaml)", ErrNotFound)
}

// LoadOrDefault loads path, or the discovered config when path is empty.
// When nothing is discovered, defaults with environment overrides are returned.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	found, err := Discover()
	if errors.Is(err, ErrNotFound) {
		return Parse(nil)
	}
	if err != nil {
		return nil, err
	}
	return Load(found)
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if cfg.TerminationGrace < 0 {
		return fmt.Errorf("termination_grace must not be negative, got %s", cfg.TerminationGrace)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}

	if f := cfg.Log.File; f != nil {
		if f.MaxSizeMB < 0 || f.MaxBackups < 0 || f.MaxAgeDays < 0 {
			return fmt.Errorf("log.file rotation limits must not be negative")
		}
	}

	if envVarPattern.MatchString(cfg.BinaryDir) {
		return fmt.Errorf("binary_dir contains unresolved environment variable: %s", cfg.BinaryDir)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
