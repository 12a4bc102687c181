package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance. It is a no-op logger until Initialize runs,
// so packages can log from tests without setup.
var Log = zap.NewNop()

// Initialize sets up the structured logger with file rotation
// logLevel: "debug", "info", "warn", "error" (default: "info")
// logFile: path to log file (default: "watchfeed.log")
func Initialize(logLevel string, logFile string) error {
	return InitializeWithConsole(logLevel, logFile, os.Stdout)
}

// InitializeWithConsole is Initialize with the human-readable stream sent to
// console instead of stdout. A nil console logs to the file only.
func InitializeWithConsole(logLevel string, logFile string, console io.Writer) error {
	if logFile == "" {
		logFile = "watchfeed.log"
	}
	if logLevel == "" {
		logLevel = "info"
	}

	level := parseLogLevel(logLevel)

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	})

	// Human-readable on stdout, JSON in the rotated file
	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())

	jsonEncoderConfig := zap.NewProductionEncoderConfig()
	jsonEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEncoder := zapcore.NewJSONEncoder(jsonEncoderConfig)

	cores := []zapcore.Core{zapcore.NewCore(jsonEncoder, fileWriter, level)}
	if console != nil {
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), level))
	}
	core := zapcore.NewTee(cores...)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	Log.Info("Logger initialized",
		zap.String("level", logLevel),
		zap.String("file", logFile),
	)

	return nil
}

// Close flushes the logger before shutdown
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

// parseLogLevel converts string to zapcore.Level
func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WarnWithFields logs a warning message, optionally with an error
func WarnWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Warn(msg, fields...)
}

// ErrorWithFields logs an error message with an error
func ErrorWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

// Field helpers for the identifiers that show up in most engine log lines

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithContentID(contentID string) zap.Field {
	return zap.String("content_id", contentID)
}

func WithCardType(cardType string) zap.Field {
	return zap.String("card_type", cardType)
}

func WithSource(source string) zap.Field {
	return zap.String("source", source)
}
