package logging

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Loggers are no-ops until InitLogger runs, so packages can log from tests.
var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger   = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

type traceKey struct{}

// ensureLogsDir makes sure the log folder exists
func ensureLogsDir(dir string) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		panic("Failed to create logs directory: " + err.Error())
	}
}

// InitLogger writes rotating JSON logs under ./logs (or $LOG_DIR).
// App and error logs are mirrored to stderr.
func InitLogger() {
	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = "./logs"
	}
	ensureLogsDir(dir)
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	stderr := zapcore.Lock(os.Stderr)

	rotate := func(name string, maxSize, maxAge int) zapcore.WriteSyncer {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(dir, name), MaxSize: maxSize, MaxAge: maxAge, Compress: true,
		})
	}

	AppLogger = zap.New(zapcore.NewTee(
		zapcore.NewCore(encoder, rotate("app.log", 100, 28), zap.InfoLevel),
		zapcore.NewCore(encoder, stderr, zap.InfoLevel),
	))
	RequestLogger = zap.New(zapcore.NewCore(encoder, rotate("request.log", 50, 7), zap.InfoLevel))
	TimerLogger = zap.New(zapcore.NewCore(encoder, rotate("timer.log", 50, 7), zap.InfoLevel))
	ErrorLogger = zap.New(zapcore.NewTee(
		zapcore.NewCore(encoder, rotate("error.log", 100, 30), zap.ErrorLevel),
		zapcore.NewCore(encoder, stderr, zap.ErrorLevel),
	), zap.AddCaller())
}

// Sync flushes every logger; call it before exit.
func Sync() {
	for _, l := range []*zap.Logger{AppLogger, RequestLogger, TimerLogger, ErrorLogger} {
		_ = l.Sync()
	}
}

// WithTraceID tags ctx so LogDuration can correlate timings with a request.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// LogDuration lets you do: defer logging.LogDuration(ctx, "FuncName")()
func LogDuration(ctx context.Context, name string) func() {
	start := time.Now()
	traceID, _ := ctx.Value(traceKey{}).(string)
	if traceID == "" {
		traceID = middleware.GetReqID(ctx)
	}

	return func() {
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		// write ONLY to timer.log
		TimerLogger.Info("Function timed", fields...)
	}
}

// RequestMiddleware records one line per request to request.log.
func RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			RequestLogger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("remote", r.RemoteAddr),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
