package logger

import (
	"fmt"

	"download-gate/pkg/utils"

	zl "github.com/rs/zerolog"
)

// tagged stamps ev with the location of whoever called the exported helper.
// It must be called directly from that helper.
func tagged(ev *zl.Event) *zl.Event {
	return ev.Str(fieldLoc, utils.GetFileAndLoC(2))
}

// errorEvent starts an error level entry, attaching err when there is one
func errorEvent(err error) *zl.Event {
	if err == nil {
		return log.engine.Error()
	}
	return log.engine.Error().Err(err)
}

// Debugf logs a debug message given a template and arguments
func Debugf(template string, args ...interface{}) {
	tagged(log.engine.Debug()).Msgf(template, args...)
}

// Info logs an info message
func Info(message string) {
	tagged(log.engine.Info()).Msg(message)
}

// Infof logs an info message given a template and arguments
func Infof(template string, args ...interface{}) {
	tagged(log.engine.Info()).Msgf(template, args...)
}

// Warn logs a warning message
func Warn(message string) {
	tagged(log.engine.Warn()).Msg(message)
}

// Warnf logs a warning message given a template and arguments
func Warnf(template string, args ...interface{}) {
	tagged(log.engine.Warn()).Msgf(template, args...)
}

// Error logs message at error level with err attached
func Error(err error, message string) {
	tagged(errorEvent(err)).Msg(message)
}

// Errorf is Error with a formatted message
func Errorf(err error, template string, args ...interface{}) {
	tagged(errorEvent(err)).Msg(fmt.Sprintf(template, args...))
}

// Fatalf logs and exits the process
func Fatalf(template string, args ...interface{}) {
	tagged(log.engine.Fatal()).Msgf(template, args...)
}

// WithFields logs an info message carrying structured key/value fields
func WithFields(fields map[string]interface{}, message string) {
	tagged(log.engine.Info()).Fields(fields).Msg(message)
}
