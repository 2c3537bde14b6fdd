// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects level, output format and timestamps.
type Config struct {
	Level            string `mapstructure:"level"`
	Format           string `mapstructure:"format"` // "text" or "json"
	DisableTimestamp bool   `mapstructure:"disable_timestamp"`
}

// New returns a logger writing to stderr. Console answers go to stdout, so
// the two streams never interleave in a pipe.
func New(cfg Config) *logrus.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(cfg Config, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.Out = out

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Level = level

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.Formatter = &logrus.JSONFormatter{
			DisableTimestamp: cfg.DisableTimestamp,
		}
	default:
		log.Formatter = &logrus.TextFormatter{
			DisableTimestamp: cfg.DisableTimestamp,
			FullTimestamp:    true,
		}
	}
	return log
}

// Discard returns a logger that drops everything. Used by tests and by
// library callers that do not care about logs.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}
