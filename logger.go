package scriptlib

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the logger used by bindings created without WithLogger.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
// This must be called before any binding is created.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Log categories shared by the binding and the dispatch host.
const (
	CategoryAbsent           = "absent"
	CategoryInvalidHandle    = "invalid_handle"
	CategoryScriptFault      = "script_fault"
	CategoryMisconfiguration = "misconfiguration"
)
