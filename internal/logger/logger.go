// Package logger собирает общий для сервиса zap-логгер.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stockbill/internal/config"
)

// New собирает zap-логгер из cfg. В окружении разработки (APP_ENV dev
// или development) кодировка переключается на console, уровень на debug.
func New(appEnv string, cfg config.LoggerConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if config.IsDevelopment(appEnv) {
		zc = zap.NewDevelopmentConfig()
		cfg.Encoding = "console"
		cfg.Level = "debug"
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
