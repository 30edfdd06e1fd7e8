package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents a logging level
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// LogFormat represents the output format
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config represents logger configuration
type Config struct {
	Level      LogLevel
	Format     LogFormat
	Output     string // stdout, stderr, file
	Filename   string
	MaxSize    int // MB per file before rotation
	MaxAge     int // days to keep rotated files
	MaxBackups int
	Compress   bool
	Caller     bool
}

// DefaultConfig is used before Init runs.
var DefaultConfig = Config{
	Level:  LevelInfo,
	Format: FormatJSON,
	Output: "stdout",
}

// Logger is the structured logging interface used across the service.
// Fields are passed as alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// StructuredLogger implements Logger over logrus.
type StructuredLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewLogger creates a new logger from config.
func NewLogger(config Config) Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	prettyfier := func(f *runtime.Frame) (string, string) {
		filename := filepath.Base(f.File)
		return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filename, f.Line)
	}
	if config.Format == FormatText {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyfier,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyfier,
		})
	}

	switch config.Output {
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "file":
		filename := config.Filename
		if filename == "" {
			filename = "logs/fundingrate.log"
		}
		if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
			fmt.Printf("Failed to create log directory: %v\n", err)
			logger.SetOutput(os.Stdout)
		} else {
			logger.SetOutput(&lumberjack.Logger{
				Filename:   filename,
				MaxSize:    config.MaxSize,
				MaxAge:     config.MaxAge,
				MaxBackups: config.MaxBackups,
				Compress:   config.Compress,
			})
		}
	default:
		logger.SetOutput(os.Stdout)
	}

	logger.SetReportCaller(config.Caller)

	return &StructuredLogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

// Debug logs at debug level
func (l *StructuredLogger) Debug(msg string, fields ...interface{}) {
	l.logWithFields(logrus.DebugLevel, msg, fields...)
}

// Info logs at info level
func (l *StructuredLogger) Info(msg string, fields ...interface{}) {
	l.logWithFields(logrus.InfoLevel, msg, fields...)
}

// Warn logs at warn level
func (l *StructuredLogger) Warn(msg string, fields ...interface{}) {
	l.logWithFields(logrus.WarnLevel, msg, fields...)
}

// Error logs at error level
func (l *StructuredLogger) Error(msg string, fields ...interface{}) {
	l.logWithFields(logrus.ErrorLevel, msg, fields...)
}

// Fatal logs at fatal level and exits
func (l *StructuredLogger) Fatal(msg string, fields ...interface{}) {
	l.logWithFields(logrus.FatalLevel, msg, fields...)
}

// WithField returns a logger with one extra field
func (l *StructuredLogger) WithField(key string, value interface{}) Logger {
	return &StructuredLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

// WithFields returns a logger with extra fields
func (l *StructuredLogger) WithFields(fields map[string]interface{}) Logger {
	return &StructuredLogger{
		logger: l.logger,
		entry:  l.entry.WithFields(fields),
	}
}

func (l *StructuredLogger) logWithFields(level logrus.Level, msg string, fields ...interface{}) {
	entry := l.entry

	if len(fields) > 0 {
		fieldMap := make(map[string]interface{})
		for i := 0; i < len(fields)-1; i += 2 {
			if key, ok := fields[i].(string); ok {
				fieldMap[key] = fields[i+1]
			}
		}
		if len(fieldMap) > 0 {
			entry = entry.WithFields(fieldMap)
		}
	}

	entry.Log(level, msg)
}

var globalLogger Logger

func init() {
	globalLogger = NewLogger(DefaultConfig)
}

// Init replaces the global logger.
func Init(config Config) {
	globalLogger = NewLogger(config)
}

// GetGlobalLogger returns the global logger.
func GetGlobalLogger() Logger {
	return globalLogger
}

// Debug logs at debug level on the global logger
func Debug(msg string, fields ...interface{}) {
	globalLogger.Debug(msg, fields...)
}

// Info logs at info level on the global logger
func Info(msg string, fields ...interface{}) {
	globalLogger.Info(msg, fields...)
}

// Warn logs at warn level on the global logger
func Warn(msg string, fields ...interface{}) {
	globalLogger.Warn(msg, fields...)
}

// Error logs at error level on the global logger
func Error(msg string, fields ...interface{}) {
	globalLogger.Error(msg, fields...)
}

// Fatal logs at fatal level on the global logger and exits
func Fatal(msg string, fields ...interface{}) {
	globalLogger.Fatal(msg, fields...)
}

// WithField returns a global logger with one extra field
func WithField(key string, value interface{}) Logger {
	return globalLogger.WithField(key, value)
}

// WithFields returns a global logger with extra fields
func WithFields(fields map[string]interface{}) Logger {
	return globalLogger.WithFields(fields)
}

// HTTPRequestInfo carries the fields logged per HTTP request.
type HTTPRequestInfo struct {
	Method     string
	Path       string
	StatusCode int
	Latency    time.Duration
	ClientIP   string
}

// LogHTTPRequest logs one served request, choosing the level by status code.
func LogHTTPRequest(log Logger, info HTTPRequestInfo) {
	fields := map[string]interface{}{
		"method":      info.Method,
		"path":        info.Path,
		"status_code": info.StatusCode,
		"latency":     info.Latency.String(),
		"client_ip":   info.ClientIP,
	}

	msg := fmt.Sprintf("%s %s - %d", info.Method, info.Path, info.StatusCode)

	switch {
	case info.StatusCode >= 500:
		log.WithFields(fields).Error(msg)
	case info.StatusCode >= 400:
		log.WithFields(fields).Warn(msg)
	default:
		log.WithFields(fields).Info(msg)
	}
}
