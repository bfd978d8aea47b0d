// internal/infra/logger/logger.go
package logger

import (
	"io"
	"os"

	"compliance_calendar/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger from cfg and points it at out.
// A nil out writes to stdout.
func Init(cfg *config.AppConfig, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	Log.SetOutput(out)
	Log.SetFormatter(formatterFor(cfg.LogFormat))

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		Log.WithField("log_level", cfg.LogLevel).Warn("Invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	Log.WithFields(logrus.Fields{
		"level":       level.String(),
		"format":      cfg.LogFormat,
		"environment": cfg.Environment,
	}).Debug("Logger initialized")
}

func formatterFor(format string) logrus.Formatter {
	if format == config.LogFormatJSON {
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}
