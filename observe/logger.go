package observe

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap.Logger to the Logger interface.
type zapLogger struct {
	base *zap.Logger
}

// NewLogger builds a zap-backed Logger at the given level. JSON selects the
// production encoder; otherwise a console encoder is used.
func NewLogger(level string, json bool) (Logger, error) {
	lvl, ok := parseLevel(level)
	if !ok {
		return nil, ErrInvalidLogLevel
	}

	var cfg zap.Config
	if json {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "msg"

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{base: base}, nil
}

// NewLoggerFromZap wraps an existing zap logger. Tests pass a logger built
// on zaptest/observer to assert on entries.
func NewLoggerFromZap(base *zap.Logger) Logger {
	if base == nil {
		return NopLogger()
	}
	return &zapLogger{base: base}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &zapLogger{base: zap.NewNop()}
}

// Sync flushes buffered entries if the logger is zap-backed.
func Sync(l Logger) error {
	if zl, ok := l.(*zapLogger); ok {
		return zl.base.Sync()
	}
	return nil
}

func (l *zapLogger) With(op Op) Logger {
	fields := []zap.Field{zap.String("component", op.Component)}
	if op.Name != "" {
		fields = append(fields, zap.String("op", op.Name))
	}
	return &zapLogger{base: l.base.With(fields...)}
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.base.Info(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.base.Warn(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.base.Error(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.base.Debug(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) convert(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out = append(out,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
		if id := RequestIDFromContext(ctx); id != "" {
			out = append(out, zap.String("request_id", id))
		}
	}

	for _, f := range fields {
		if isRedactedField(f.Key) {
			out = append(out, zap.String(f.Key, "[REDACTED]"))
			continue
		}
		if err, ok := f.Value.(error); ok {
			// %+v keeps the stack and details attached by cockroachdb/errors.
			out = append(out,
				zap.NamedError(f.Key, err),
				zap.String(f.Key+"_detail", fmt.Sprintf("%+v", err)),
			)
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func parseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

func isRedactedField(key string) bool {
	for _, k := range RedactedFields {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
