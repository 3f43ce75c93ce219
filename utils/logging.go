package utils

import (
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Global loggers: informational output goes to stdout, errors to stderr.
var (
	InfoLogger  = zap.NewNop()
	ErrorLogger = zap.NewNop()
)

// InitLogging initializes structured logging with separate stdout/stderr streams.
// format is "console" (default) or "json".
func InitLogging(format string, debug bool) {
	InfoLogger, ErrorLogger = NewLoggers(format, debug, zapcore.AddSync(os.Stdout), zapcore.AddSync(os.Stderr))
	zap.ReplaceGlobals(InfoLogger)
}

// NewLoggers builds the info/error logger pair writing to the given sinks
func NewLoggers(format string, debug bool, out, errOut zapcore.WriteSyncer) (*zap.Logger, *zap.Logger) {
	var encoder zapcore.Encoder
	if strings.EqualFold(format, "json") {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	info := zap.New(zapcore.NewCore(encoder, out, level), zap.AddCaller(), zap.AddCallerSkip(1))
	errs := zap.New(zapcore.NewCore(encoder.Clone(), errOut, zapcore.WarnLevel),
		zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	return info, errs
}

// SyncLogging flushes buffered log entries
func SyncLogging() {
	_ = InfoLogger.Sync()
	_ = ErrorLogger.Sync()
}

// InfoWriter exposes the info logger as an io.Writer for middleware that
// wants a plain writer (Fiber's request logger).
func InfoWriter() io.Writer {
	return zap.NewStdLog(InfoLogger).Writer()
}

// LogError logs errors with context to stderr
func LogError(context string, err error, metadata ...interface{}) {
	if err != nil {
		ErrorLogger.Sugar().Errorw(context, append([]interface{}{"error", err}, metadata...)...)
	}
}

// LogWarn logs a warning to stderr
func LogWarn(message string, metadata ...interface{}) {
	ErrorLogger.Sugar().Warnw(message, metadata...)
}

// LogInfo logs informational messages to stdout
func LogInfo(message string, metadata ...interface{}) {
	InfoLogger.Sugar().Infow(message, metadata...)
}

// LogDebug logs debug messages to stdout when debug logging is enabled
func LogDebug(message string, metadata ...interface{}) {
	InfoLogger.Sugar().Debugw(message, metadata...)
}

// LogRequestError logs errors with request context to stderr
func LogRequestError(c *fiber.Ctx, context string, err error, metadata ...interface{}) {
	if err != nil {
		requestID, _ := c.Locals("request_id").(string)

		args := []interface{}{
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"ip", ClientIP(c),
			"error", err,
		}
		args = append(args, metadata...)
		ErrorLogger.Sugar().Errorw(context, args...)
	}
}
