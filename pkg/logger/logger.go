package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents logging level
type Level = zerolog.Level

// Logger levels
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config holds logger configuration
type Config struct {
	Level      Level
	Pretty     bool
	TimeFormat string
	Output     io.Writer
}

// Logger wraps zerolog.Logger
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a new logger instance
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{
			Level:      InfoLevel,
			TimeFormat: time.RFC3339,
			Output:     os.Stdout,
		}
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	zl := zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}
}

// WithFields adds fields to logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

// Zerolog exposes the underlying zerolog logger for packages that
// take a *zerolog.Logger directly.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

func (l *Logger) Error(err error, msg string) {
	l.zl.Error().Err(err).Msg(msg)
}

func (l *Logger) Fatal(err error, msg string) {
	l.zl.Fatal().Err(err).Msg(msg)
}
