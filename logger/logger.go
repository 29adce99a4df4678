package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log - общий логгер приложения. До вызова Init ничего не пишет.
var Log = zap.NewNop()

func Init(level string) error {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level.SetLevel(lvl)
	l, err := config.Build()
	if err != nil {
		return err
	}
	Log = l
	return nil
}

func Sync() {
	_ = Log.Sync()
}
