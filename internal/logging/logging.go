// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides file-based diagnostics for the cockpit.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	log = newDiscard()
)

func newDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Init opens (or creates) the log file and configures level and format.
// level is one of debug/info/warn/error; format is text or json.
// Until Init succeeds all logging calls are no-ops.
func Init(path, level, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l := logrus.New()
	l.SetOutput(f)

	switch level {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	mu.Lock()
	log = l
	mu.Unlock()
	return nil
}

// SetOutput redirects log output. Tests use this to capture entries.
func SetOutput(w io.Writer) {
	mu.Lock()
	log.SetOutput(w)
	mu.Unlock()
}

// SetLevel changes the active level without reopening the file.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	}
}

func logger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log
}

// WithField returns an entry tagged with a single field, typically the
// request or client id a message concerns.
func WithField(key string, value interface{}) *logrus.Entry {
	return logger().WithField(key, value)
}

func Debugf(format string, args ...interface{}) {
	logger().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	logger().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	logger().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	logger().Errorf(format, args...)
}
