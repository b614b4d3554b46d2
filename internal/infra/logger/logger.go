// Package logger holds the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"school_admin/internal/infra/config"
)

// Log is the global logger instance
var Log = logrus.New()

// Init configures Log from the application configuration.
func Init(cfg *config.AppConfig) {
	configure(Log, cfg.LogLevel, cfg.Environment, os.Stdout)
	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Debug("Logger initialized")
}

// configure sets level, output and formatter. Production and staging log JSON
// so the lines can be shipped as is; anything else gets readable text.
func configure(l *logrus.Logger, level, environment string, out io.Writer) {
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", level, err)
	} else {
		l.SetLevel(lvl)
	}

	switch strings.ToLower(environment) {
	case "production", "staging":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}

// Component returns an entry tagged with the component name. Services receive
// one of these instead of reaching for Log.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
