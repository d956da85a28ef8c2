package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// Initialize sets up the application logger. Logs go to the given file when
// it can be opened, otherwise to stderr.
func Initialize(level, file string) {
	Logger = logrus.New()

	var lvl logrus.Level
	switch level {
	case "debug", "DEBUG":
		lvl = logrus.DebugLevel
	case "warn", "WARN":
		lvl = logrus.WarnLevel
	case "error", "ERROR":
		lvl = logrus.ErrorLevel
	default:
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})

	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err == nil {
			f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err == nil {
				Logger.SetOutput(f)
			} else {
				fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", file, err)
			}
		}
	}

	Logger.WithFields(logrus.Fields{
		"log_level": lvl.String(),
		"log_file":  file,
	}).Info("logging initialized")
}

// GetLogger returns the configured logger instance.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		Initialize("info", "")
	}
	return Logger
}

// WithLog creates a logger scoped to one log record's pipeline.
func WithLog(logID uint, filename string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"log_id":    logID,
		"filename":  filename,
		"component": "pipeline",
	})
}

// WithSearch creates a logger scoped to one search request.
func WithSearch(query string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"query":     query,
		"component": "search",
	})
}

// WithBackend creates a logger scoped to a remote backend wrapper.
func WithBackend(name string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"backend":   name,
		"component": "backend_client",
	})
}

// WithError creates a logger carrying an error and the component it came from.
func WithError(err error, component string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"error":     err.Error(),
		"component": component,
	})
}

func Debug(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Debug(msg)
}

func Info(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Info(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Warn(msg)
}

func Error(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Error(msg)
}

func Fatal(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Fatal(msg)
}
