// Package logging wires the process-wide structured logger.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	global *zap.Logger
)

// Init replaces the global logger. debug=true produces a development
// encoder (human-readable, stack traces on Warn+); otherwise a
// production JSON encoder is used.
func Init(debug bool) error {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	mu.Lock()
	global = logger
	mu.Unlock()

	zap.ReplaceGlobals(logger)
	return nil
}

// L returns the current global logger, initializing a development
// logger on first use if Init was never called (e.g. in tests).
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global, _ = zap.NewDevelopment()
		zap.ReplaceGlobals(global)
	}
	return global
}

// S returns the current global SugaredLogger.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Sync flushes any buffered log entries. Call on process shutdown.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return nil
	}
	return global.Sync()
}
