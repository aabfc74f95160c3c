package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level, encoding and optional log file directory
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	// Output receives console logs; stderr when nil
	Output io.Writer `yaml:"-"`
}

// Logger wraps a zap logger together with the log file it may own
type Logger struct {
	*zap.Logger
	file *os.File
	path string
}

// NewLogger creates a new logger instance. When Dir is set, logs are also written
// as JSON to a timestamped file inside it.
func NewLogger(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		if cfg.Level != "" {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = zapcore.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder(cfg.Format), zapcore.AddSync(out), level),
	}

	l := &Logger{}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		timestamp := time.Now().Format("2006-01-02_15-04-05")
		l.path = filepath.Join(cfg.Dir, fmt.Sprintf("loadtest_%s.log", timestamp))
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		l.file = file
		cores = append(cores, zapcore.NewCore(encoder("json"), zapcore.AddSync(file), level))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...))
	return l, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func encoder(format string) zapcore.Encoder {
	if strings.EqualFold(format, "console") {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// Path returns the log file path, or "" when logging only to the console
func (l *Logger) Path() string {
	return l.path
}

// Close flushes buffered entries and closes the log file
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// LogLLMInteraction logs one call to a language model provider
func (l *Logger) LogLLMInteraction(operation string, input interface{}, output interface{}, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Any("input", input),
	}
	if err != nil {
		l.Error("LLM operation failed", append(fields, zap.Error(err))...)
		return
	}
	l.Debug("LLM operation", append(fields, zap.Any("output", output))...)
}
