// Package logger is the process-wide file log shared by every package.
// Until Init is called all output is discarded.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	globalLogger *log.Logger
	logFile      *os.File
	logPath      string
	verbose      bool
	mu           sync.Mutex
)

// Init opens (appending) the log file at path, creating its directory.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
		globalLogger = nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //#nosec G304 -- log path is derived from the output directory
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	logPath = path
	globalLogger = log.New(f, "", log.Ltime|log.Lmicroseconds)
	return nil
}

// Close closes the log file. Later calls log nothing.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = nil
}

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// Path returns the current log file path, or "" before Init.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

func printf(level, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger == nil {
		return
	}
	if level == "DEBUG" && !verbose {
		return
	}
	globalLogger.Printf("["+level+"] "+format, v...)
}

// Info logs an info message.
func Info(format string, v ...interface{}) { printf("INFO", format, v...) }

// Debug logs a debug message when verbose logging is on.
func Debug(format string, v ...interface{}) { printf("DEBUG", format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { printf("WARN", format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { printf("ERROR", format, v...) }

// GetWriter returns the underlying writer for use by drivers.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
