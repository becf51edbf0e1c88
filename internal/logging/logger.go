// Package logging builds the process logger: human readable console output
// plus an append-only JSON diagnostic file that receives warnings and errors.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is the console level name ("debug", "info", ...).
	Level string
	// File is the diagnostic log path. Empty disables the file sink.
	File string
	// Console overrides stdout, mostly for tests.
	Console io.Writer
}

// New returns a logger and a close func that flushes and releases the file sink.
func New(opts Options) (*zap.Logger, func(), error) {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		if err := lvl.Set(opts.Level); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}

	var console zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	if opts.Console != nil {
		console = zapcore.Lock(zapcore.AddSync(opts.Console))
	}
	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), console, lvl),
	}

	closeFile := func() {}
	if opts.File != "" {
		sink, closer, err := zap.Open(opts.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open diagnostic log: %w", err)
		}
		closeFile = closer
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), sink, zapcore.WarnLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeAll := func() {
		_ = logger.Sync()
		closeFile()
	}
	return logger, closeAll, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
