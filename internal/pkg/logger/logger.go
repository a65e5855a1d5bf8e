package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log      *zap.Logger
	mu       sync.RWMutex
	once     sync.Once
	fallback *zap.Logger
)

// InitLogger 初始化 Zap 日志库
// outputPath: 日志文件路径，例如 "logs/app.log"
// errorPath: 错误日志文件路径，例如 "logs/error.log"
// level: 日志级别 (debug, info, warn, error, dpanic, panic, fatal)
func InitLogger(outputPath, errorPath string, level string) {
	SetLogger(build([]string{outputPath, "stdout"}, []string{errorPath, "stderr"}, level))
}

func build(outputs, errOutputs []string, level string) *zap.Logger {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = zap.InfoLevel // 默认 INFO 级别
		fmt.Fprintf(os.Stderr, "Failed to parse log level '%s', defaulting to info: %v\n", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(l)
	cfg.OutputPaths = outputs
	cfg.ErrorOutputPaths = errOutputs
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	built, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build zap logger: %v", err))
	}
	return built
}

// SetLogger 替换全局 logger，测试里可以传入 zap.NewNop()
func SetLogger(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
	zap.ReplaceGlobals(l)
}

// 返回全局logger
func GetLogger() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		// 如果在调用 InitLogger 之前调用 GetLogger，则使用只输出到标准输出的默认 logger
		once.Do(func() {
			fallback = build([]string{"stdout"}, []string{"stderr"}, "info")
		})
		return fallback
	}
	return l
}

// With 返回携带固定字段的子 logger
func With(fields ...zap.Field) *zap.Logger {
	return GetLogger().With(fields...)
}

// Sugar 返回 Zap 的 SugaredLogger
func Sugar() *zap.SugaredLogger {
	return GetLogger().Sugar()
}

// 刷新缓冲区,确保程序退出前使用
func Sync() {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		if err := l.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync zap logger: %v\n", err)
		}
	}
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}
