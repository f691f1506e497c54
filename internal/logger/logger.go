package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New создает zap.Logger для API сервера и воркера. Уровень и формат
// приходят из конфигурации (LOG_LEVEL, LOG_ENCODING), вывод всегда идёт
// в stdout - в контейнерах его собирает рантайм.
func New(levelName, encoding string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		return nil, fmt.Errorf("неизвестный уровень логирования %q: %w", levelName, err)
	}

	encoding = strings.ToLower(encoding)
	if encoding != "console" {
		encoding = "json"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("не удалось собрать логгер: %w", err)
	}
	return logger, nil
}
