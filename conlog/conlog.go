// SPDX-License-Identifier: GPL-2.0-or-later

// Package conlog holds the process logger. Loads use it unless they get
// a logger of their own.
package conlog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
)

// Logger returns the process logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the process logger.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// NewLogger returns a stderr logger. debug enables debug messages, human
// switches from JSON to console output.
func NewLogger(debug, human bool) zerolog.Logger {
	return newLogger(os.Stderr, debug, human)
}

func newLogger(w io.Writer, debug, human bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func Printf(format string, v ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, v...)
}

func Debugf(format string, v ...interface{}) {
	l := Logger()
	l.Debug().Msgf(format, v...)
}
