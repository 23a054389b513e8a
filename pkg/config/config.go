// Package config loads zipdir settings from defaults, an optional YAML file
// and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"zipdir/pkg/archive"
	"zipdir/pkg/logging"
)

// Environment variables read by Load.
const (
	EnvFailsafeChar = "ZIPDIR_FAILSAFE_CHAR"
	EnvCompression  = "ZIPDIR_COMPRESSION"
	EnvLevel        = "ZIPDIR_LEVEL"
	EnvTempLocation = "ZIPDIR_TEMP_LOCATION"
	EnvLogLevel     = "ZIPDIR_LOG_LEVEL"
	EnvLogFormat    = "ZIPDIR_LOG_FORMAT"
	EnvProgress     = "ZIPDIR_PROGRESS"
)

// Config holds the settings shared by the zipdir commands.
type Config struct {
	// FailsafeChar replaces em dashes in entry names. Exactly one character.
	FailsafeChar string `yaml:"failsafe_char"`

	// Compression is one of store, deflate, zstd, lz4.
	Compression string `yaml:"compression"`
	Level       int    `yaml:"level"`

	// TempLocation is where archive directories are created. Empty means
	// the system temp directory.
	TempLocation string `yaml:"temp_location"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Progress forces progress reporting on or off. Unset means on for
	// terminals only.
	Progress *bool `yaml:"progress"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		FailsafeChar: string(archive.DefaultFailsafeChar),
		Compression:  "deflate",
		Level:        -1,
		LogLevel:     "warn",
		LogFormat:    "console",
	}
}

// Load returns the defaults overlaid with the YAML file at path, when path
// is not empty, and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.FailsafeChar = envOr(EnvFailsafeChar, cfg.FailsafeChar)
	cfg.Compression = envOr(EnvCompression, cfg.Compression)
	cfg.TempLocation = envOr(EnvTempLocation, cfg.TempLocation)
	cfg.LogLevel = envOr(EnvLogLevel, cfg.LogLevel)
	cfg.LogFormat = envOr(EnvLogFormat, cfg.LogFormat)

	level, err := envInt(EnvLevel, cfg.Level)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	if v := os.Getenv(EnvProgress); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvProgress, err)
		}
		cfg.Progress = &b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for errors.
func (c *Config) Validate() error {
	var errs []error
	if utf8.RuneCountInString(c.FailsafeChar) != 1 {
		errs = append(errs, fmt.Errorf("failsafe_char must be a single character, got %q", c.FailsafeChar))
	} else if r, _ := utf8.DecodeRuneInString(c.FailsafeChar); r == '/' || r == '\\' || r == 0 || r == utf8.RuneError {
		errs = append(errs, fmt.Errorf("failsafe_char %q cannot appear in entry names", c.FailsafeChar))
	}
	if method, err := archive.ParseMethod(c.Compression); err != nil {
		errs = append(errs, err)
	} else if err := archive.CheckLevel(method, c.Level); err != nil {
		errs = append(errs, fmt.Errorf("level %d out of range for %s: %w", c.Level, c.Compression, err))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", c.LogFormat))
	}
	return multierr.Combine(errs...)
}

// Failsafe returns the failsafe character as a rune.
func (c *Config) Failsafe() rune {
	r, _ := utf8.DecodeRuneInString(c.FailsafeChar)
	return r
}

// EncodeOptions returns the archive options selected by the settings.
func (c *Config) EncodeOptions() ([]archive.Option, error) {
	method, err := archive.ParseMethod(c.Compression)
	if err != nil {
		return nil, err
	}
	return []archive.Option{
		archive.WithFailsafeChar(c.Failsafe()),
		archive.WithMethod(method),
		archive.WithLevel(c.Level),
	}, nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
	}
}

// ProgressEnabled reports whether progress should be shown on an output that
// is, or is not, a terminal.
func (c *Config) ProgressEnabled(terminal bool) bool {
	if c.Progress != nil {
		return *c.Progress
	}
	return terminal
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
