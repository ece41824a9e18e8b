package logger

import zl "github.com/rs/zerolog"

// FormatConsole selects human readable output, any other LOG_FORMAT logs Cloud Logging JSON
const FormatConsole = "console"

// fieldLoc carries the file:line of the call site on every entry
const fieldLoc = "loc"

// levels maps LOG_LEVEL values to zerolog levels
var levels = map[string]zl.Level{
	"debug": zl.DebugLevel,
	"info":  zl.InfoLevel,
	"warn":  zl.WarnLevel,
	"error": zl.ErrorLevel,
}

// severities maps zerolog levels to Cloud Logging severities
var severities = map[zl.Level]string{
	zl.DebugLevel: "DEBUG",
	zl.InfoLevel:  "INFO",
	zl.WarnLevel:  "WARNING",
	zl.ErrorLevel: "ERROR",
	zl.FatalLevel: "CRITICAL",
	zl.PanicLevel: "CRITICAL",
}
