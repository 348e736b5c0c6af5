package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the file and console sinks.
type Options struct {
	Level      string
	Directory  string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	Console    bool
}

// New builds a logger that writes JSON lines to a rotating file and,
// optionally, human-readable colored lines to stdout. An empty Directory
// disables the file sink.
func New(opts Options) (*zap.Logger, error) {
	return newLogger(opts, os.Stdout)
}

func newLogger(opts Options, console io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", opts.Level, err)
	}
	enabler := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	if opts.Directory != "" {
		fc, err := newFileCore(opts, enabler)
		if err != nil {
			return nil, err
		}
		cores = append(cores, fc)
	}
	if opts.Console {
		cores = append(cores, newConsoleCore(console, enabler))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// newFileCore creates a core that writes to a size-rotated file.
func newFileCore(opts Options, enabler zapcore.LevelEnabler) (zapcore.Core, error) {
	if err := os.MkdirAll(opts.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Directory, "moodmetrics.log"),
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	})
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, enabler), nil
}

// newConsoleCore creates a core that writes to the console.
func newConsoleCore(w io.Writer, enabler zapcore.LevelEnabler) zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), enabler)
}
