package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"Tweeter/internal/config"
)

var (
	// AppLogger 业务日志：stdout + app.log
	AppLogger = zap.NewNop()
	// ErrorLogger 只写 error.log
	ErrorLogger = zap.NewNop()
)

// Init 初始化全局 logger，返回的 flush 在进程退出前调用
func Init(cfg config.LogConfig) (func(), error) {
	if err := os.MkdirAll(cfg.Dir, os.ModePerm); err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	appCore := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(encoder,
			zapcore.AddSync(&lumberjack.Logger{
				Filename: filepath.Join(cfg.Dir, "app.log"), MaxSize: 100, MaxAge: 28, Compress: true,
			}),
			level,
		),
	)
	AppLogger = zap.New(appCore, zap.AddCaller())

	errorCore := zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(cfg.Dir, "error.log"), MaxSize: 100, MaxAge: 30, Compress: true,
		}),
		zap.ErrorLevel,
	)
	ErrorLogger = zap.New(errorCore, zap.AddCaller())

	return func() {
		_ = AppLogger.Sync()
		_ = ErrorLogger.Sync()
	}, nil
}

// Error 同时写入 app.log 和 error.log
func Error(msg string, fields ...zap.Field) {
	AppLogger.Error(msg, fields...)
	ErrorLogger.Error(msg, fields...)
}
