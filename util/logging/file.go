package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileSizeMB = 10
	maxLogFileBackup = 3
)

// WithFile returns a logger that writes every entry enabled by level to the
// rotated log file at path, in addition to log's own outputs. The returned
// func closes the file.
func WithFile(log *zap.Logger, path string, level zapcore.LevelEnabler) (*zap.Logger, func() error) {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileSizeMB,
		MaxBackups: maxLogFileBackup,
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		level,
	)

	teed := log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))

	return teed, file.Close
}
