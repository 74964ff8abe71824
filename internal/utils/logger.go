// internal/utils/logger.go
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the rotating log file created under the log directory
const LogFileName = "pixeldiary.log"

var (
	globalLogger *logrus.Logger
	loggerOnce   sync.Once
	rotator      *lumberjack.Logger
	rotatorMu    sync.Mutex
)

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	loggerOnce.Do(func() {
		globalLogger = logrus.New()
		globalLogger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		globalLogger.SetOutput(os.Stdout)
		globalLogger.SetLevel(logrus.InfoLevel)
	})
	return globalLogger
}

// InitLogger sets the level and tees output to a rotating file in logDir.
// An empty logDir keeps stdout only. Unknown levels fall back to info.
func InitLogger(levelStr, logDir string) error {
	logger := GetLogger()

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	rotatorMu.Lock()
	defer rotatorMu.Unlock()

	if rotator != nil {
		rotator.Close()
		rotator = nil
	}

	if logDir == "" {
		logger.SetOutput(os.Stdout)
		return nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, LogFileName),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return nil
}

// CloseLogger flushes and closes the rotating file, if any
func CloseLogger() error {
	rotatorMu.Lock()
	defer rotatorMu.Unlock()

	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	GetLogger().SetOutput(os.Stdout)
	return err
}

// ComponentLogger returns an entry tagged with the component name
func ComponentLogger(logger *logrus.Logger, component string) *logrus.Entry {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.WithField("component", component)
}
