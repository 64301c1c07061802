package logging

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// FileConfig configures a rotating file logger.
type FileConfig struct {
	Path       string
	Level      ports.Level
	JSON       bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns rotation defaults for path.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		Level:      ports.LevelInfo,
		MaxSizeMB:  5,
		MaxBackups: 10,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// FileLogger writes entries through logrus into a lumberjack-rotated file.
type FileLogger struct {
	base   *log.Logger
	entry  *log.Entry
	closer io.Closer
}

// NewFileLogger opens a rotating log file. Close releases it.
func NewFileLogger(cfg FileConfig) (*FileLogger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.ToSlash(cfg.Path),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	l := newFileLogger(rotator, cfg.Level, cfg.JSON)
	l.closer = rotator
	return l, nil
}

func newFileLogger(out io.Writer, level ports.Level, jsonFormat bool) *FileLogger {
	base := log.New()
	base.SetOutput(out)
	if jsonFormat {
		base.SetFormatter(&log.JSONFormatter{})
	} else {
		base.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	base.SetLevel(toLogrus(level))
	return &FileLogger{base: base, entry: log.NewEntry(base)}
}

// Close closes the underlying file.
func (l *FileLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Debug logs a debug message.
func (l *FileLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.with(ctx, fields).Debug(msg)
}

// Info logs an informational message.
func (l *FileLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.with(ctx, fields).Info(msg)
}

// Warn logs a warning message.
func (l *FileLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.with(ctx, fields).Warn(msg)
}

// Error logs an error message.
func (l *FileLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.with(ctx, fields).Error(msg)
}

// With returns a logger that adds fields to every entry.
func (l *FileLogger) With(fields ...ports.Field) ports.Logger {
	return &FileLogger{
		base:   l.base,
		entry:  l.entry.WithFields(toFields(fields)),
		closer: l.closer,
	}
}

// Level returns the minimum log level.
func (l *FileLogger) Level() ports.Level {
	return fromLogrus(l.base.GetLevel())
}

// SetLevel sets the minimum log level for this logger and its children.
func (l *FileLogger) SetLevel(level ports.Level) {
	l.base.SetLevel(toLogrus(level))
}

func (l *FileLogger) with(ctx context.Context, fields []ports.Field) *log.Entry {
	e := l.entry
	if ctx != nil {
		e = e.WithContext(ctx)
	}
	if len(fields) > 0 {
		e = e.WithFields(toFields(fields))
	}
	return e
}

func toFields(fields []ports.Field) log.Fields {
	out := make(log.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = jsonValue(f.Value)
	}
	return out
}

func toLogrus(level ports.Level) log.Level {
	switch level {
	case ports.LevelDebug:
		return log.DebugLevel
	case ports.LevelWarn:
		return log.WarnLevel
	case ports.LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func fromLogrus(level log.Level) ports.Level {
	switch level {
	case log.DebugLevel, log.TraceLevel:
		return ports.LevelDebug
	case log.WarnLevel:
		return ports.LevelWarn
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		return ports.LevelError
	default:
		return ports.LevelInfo
	}
}

// Ensure FileLogger implements Logger.
var _ ports.Logger = (*FileLogger)(nil)
