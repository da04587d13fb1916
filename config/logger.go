package config

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the library's standard console-encoded zap logger,
// writing to stderr so it never interleaves with a backend's own output.
func NewLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(NewEncoderConfig()), zapcore.Lock(os.Stderr), level)
	return zap.New(core).Named("mu-epub")
}

// NewEncoderConfig exposes the console encoder configuration used by
// NewLogger so embedders can build their own core with a different sink
// (a file, a ring buffer for tests) while keeping the same field layout.
func NewEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	return ec
}
