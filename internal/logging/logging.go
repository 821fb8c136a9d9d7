// Package logging builds the logrus logger shared by the CLI and the library packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const redactedValue = "[REDACTED]"

// field names containing any of these are never written out
var sensitiveKeyParts = []string{"key", "passphrase", "password", "secret", "token", "content", "plaintext"}

type Config struct {
	Level  string // trace|debug|info|warn|error, default warn
	Format string // text|json, default text
	Output io.Writer
}

func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stderr)
	}

	level := cfg.Level
	if level == "" {
		level = "warn"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l.AddHook(RedactHook{})
	return l, nil
}

// Discard returns a logger that drops everything. Library packages fall back to it when
// constructed without a logger.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// OrDiscard returns l, or a discard logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}

// RedactHook blanks out fields that could carry key material or message text.
type RedactHook struct{}

func (RedactHook) Levels() []logrus.Level { return logrus.AllLevels }

func (RedactHook) Fire(e *logrus.Entry) error {
	for k := range e.Data {
		if isSensitive(k) {
			e.Data[k] = redactedValue
		}
	}
	return nil
}

func isSensitive(field string) bool {
	f := strings.ToLower(field)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(f, part) {
			return true
		}
	}
	return false
}
