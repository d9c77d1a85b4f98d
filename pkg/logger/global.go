// pkg/logger/global.go
package logger

import (
	"os"
)

var globalLogger *Logger

func InitGlobal(logPath, logLevel string, debug bool) error {
	l, err := NewLogger(logPath, logLevel, debug)
	if err != nil {
		return err
	}
	globalLogger = l
	return nil
}

// SetGlobal подменяет глобальный логгер (используется в тестах)
func SetGlobal(l *Logger) {
	globalLogger = l
}

func GetLogger() *Logger {
	if globalLogger == nil {
		// Fallback к консольному логгеру
		globalLogger = New(os.Stdout, LevelInfo)
	}
	return globalLogger
}

// Глобальные методы для удобства
func Debug(format string, v ...interface{}) {
	GetLogger().Debug(format, v...)
}

func Info(format string, v ...interface{}) {
	GetLogger().Info(format, v...)
}

func Warn(format string, v ...interface{}) {
	GetLogger().Warn(format, v...)
}

func Error(format string, v ...interface{}) {
	GetLogger().Error(format, v...)
}
