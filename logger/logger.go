// Package logger builds the process's zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level     string `yaml:"level"`     // debug, info, warn, error
	Pretty    bool   `yaml:"pretty"`    // human-readable console output
	Redaction bool   `yaml:"redaction"` // scrub credentials before writing

	// Out overrides the destination. Defaults to stderr.
	Out io.Writer `yaml:"-"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{Level: "info", Pretty: true, Redaction: true}
}

// New creates a logger and installs it as the zerolog global logger.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if cfg.Out != nil {
		w = cfg.Out
	}
	if cfg.Redaction {
		w = NewRedactor().Wrap(w)
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: cfg.Out != nil}
	}

	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = l
	return l
}
