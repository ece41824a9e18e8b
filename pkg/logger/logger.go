package logger

import (
	"io"
	"os"
	"time"

	"download-gate/pkg/config"

	zl "github.com/rs/zerolog"
)

// log is an unexported package-level global variable that holds the logger instance
var log *logger

type logger struct {
	engine *zl.Logger
}

type options struct {
	output io.Writer
	format string
}

func init() {
	// usable before InitLogger runs, e.g. in tests
	engine := zl.New(os.Stderr).With().Timestamp().Logger()
	log = &logger{engine: &engine}
}

// InitLogger initializes the logger with configuration
func InitLogger(cfg *config.Config) {
	logLvl := getLogLevel(cfg.Log.Level)

	opts := options{
		output: os.Stdout,
		format: cfg.Log.Format,
	}

	zl.SetGlobalLevel(logLvl)

	var engine zl.Logger
	switch opts.format {
	case FormatConsole:
		engine = newConsoleLogger(opts)
	default:
		setupCloudLoggingSeverity()
		engine = newGCPLogger(opts)
	}

	log = &logger{
		engine: &engine,
	}
}

// getLogLevel returns the zerolog level for a LOG_LEVEL value, defaulting to info
func getLogLevel(level string) zl.Level {
	if lvl, ok := levels[level]; ok {
		return lvl
	}
	return zl.InfoLevel
}

// setupCloudLoggingSeverity configures zerolog to use Cloud Logging severity levels
func setupCloudLoggingSeverity() {
	zl.LevelFieldMarshalFunc = func(l zl.Level) string {
		if severity, ok := severities[l]; ok {
			return severity
		}
		return "DEFAULT"
	}
}

// newGCPLogger creates a logger that outputs JSON format (better for cloud environments)
func newGCPLogger(opts options) zl.Logger {
	// Cloud Logging structured logging expects these field names
	zl.TimeFieldFormat = zl.TimeFormatUnix
	zl.TimestampFieldName = "timestamp"
	zl.LevelFieldName = "severity"
	zl.MessageFieldName = "message"

	return zl.New(opts.output).With().
		Timestamp().
		Logger()
}

// newConsoleLogger creates a human readable logger for local development
func newConsoleLogger(opts options) zl.Logger {
	writer := zl.ConsoleWriter{
		Out:        opts.output,
		TimeFormat: time.RFC3339,
	}

	return zl.New(writer).With().
		Timestamp().
		Logger()
}
