package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

const (
	fileMaxSizeMB  = 5
	fileMaxBackups = 5
)

// SetupLogger initializes the default logger. When logFile is set, records are
// also written to a size-rotated file next to the console output.
func SetupLogger(logLevel string, logJSON, logSource bool, logFile string) (io.Closer, error) {
	var output io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
		}
		output = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}
	Init(&Config{
		Level:      ParseLevel(logLevel),
		Output:     output,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
	return closer, nil
}

// ParseLevel maps a textual level to a LogLevel, defaulting to info.
func ParseLevel(level string) LogLevel {
	switch LogLevel(level) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, DisabledLevel:
		return LogLevel(level)
	default:
		return InfoLevel
	}
}
