package logger

import (
	"github.com/mattn/go-colorable"
	"github.com/op/go-logging"
)

// The console backend is shared by every module logger. Level defaults to
// INFO and can be raised per module via SetLevel.
var format = logging.MustStringFormatter(
	`%{color}%{time:2006-01-02 15:04:05.000} %{level:.4s}%{color:reset} %{module} %{message}`,
)

var leveled logging.LeveledBackend

func init() {
	backend := logging.NewLogBackend(colorable.NewColorableStderr(), "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	leveled = logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
}

// NewLogger returns the named module logger. The module tag is carried on
// every line, so callers conventionally pass it bracketed: NewLogger("[state]").
func NewLogger(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}

// SetLevel adjusts the verbosity of a single module, or of every module when
// module is empty.
func SetLevel(level logging.Level, module string) {
	leveled.SetLevel(level, module)
}

// Verbose drops the global threshold to DEBUG. Used by the CLI --verbose flag.
func Verbose() {
	leveled.SetLevel(logging.DEBUG, "")
}

func IsDebug(log *logging.Logger) bool {
	return log.IsEnabledFor(logging.DEBUG)
}
