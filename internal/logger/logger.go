// Package logger builds the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at the given level. Unknown levels fall back to info.
// Console encoding writes to stderr so it does not interleave with the board.
func New(level, encoding string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	l, err := zapcore.ParseLevel(level)
	if err != nil {
		l = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(l)

	if encoding == "console" {
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		config.Sampling = nil
	}
	config.OutputPaths = []string{"stderr"}

	return config.Build()
}

// ToFile builds a JSON logger that appends to path. The interactive game
// uses it so log lines stay off the terminal. Call closeFn once the logger
// is no longer used.
func ToFile(level, path string) (log *zap.Logger, closeFn func(), err error) {
	sink, closeFn, err := zap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		l = zapcore.InfoLevel
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		zap.NewAtomicLevelAt(l),
	)
	return zap.New(core), closeFn, nil
}
