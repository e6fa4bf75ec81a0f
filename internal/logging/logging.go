package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop().Sugar()
)

// Init builds the process-wide logger. Verbose enables debug level.
func Init(verbose bool) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return
	}
	mu.Lock()
	logger = l.Sugar()
	mu.Unlock()
}

func Debug(format string, args ...any) { logger.Debugf(format, args...) }
func Info(format string, args ...any)  { logger.Infof(format, args...) }
func Warn(format string, args ...any)  { logger.Warnf(format, args...) }
func Error(format string, args ...any) { logger.Errorf(format, args...) }

// Sync flushes buffered log entries. Called before process exit.
func Sync() { _ = logger.Sync() }
