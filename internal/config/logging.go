package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Daethyra/ExecEye/internal/logging"
)

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"  env:"EXECEYE_LOG_LEVEL"`
	Format string `yaml:"format" env:"EXECEYE_LOG_FORMAT"`

	// File sends logs to a file instead of stderr, keeping the interactive
	// prompt clean.
	File string `yaml:"file" env:"EXECEYE_LOG_FILE"`
}

// Validate checks the level and format names.
func (l LoggingConfig) Validate() error {
	if l.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(l.Level)); err != nil {
			return &ConfigurationError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", l.Level)}
		}
	}
	switch strings.ToLower(l.Format) {
	case "", logging.FormatJSON, logging.FormatConsole, logging.FormatText:
	default:
		return &ConfigurationError{
			Field:  "logging.format",
			Reason: fmt.Sprintf("unknown format %q (valid: json, console, text)", l.Format),
		}
	}
	return nil
}

// ToLoggingConfig converts to the logging package's Config.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	cfg := logging.Config{
		Level:  l.Level,
		Format: l.Format,
		Output: logging.OutputStderr,
	}
	if l.File != "" {
		cfg.Output = logging.OutputFile
		cfg.File = l.File
	}
	return cfg
}

// DefaultLogFile returns the log file path inside the config directory.
func DefaultLogFile() string {
	dir := GetConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "logs", "execeye.log")
}

// EnsureLogDir creates the directory holding file.
func EnsureLogDir(file string) error {
	if file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	return nil
}
