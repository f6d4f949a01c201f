package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	traceIDKey   contextKey = "trace_id"
	userIDKey    contextKey = "user_id"
	sessionIDKey contextKey = "session_id"
)

// WithTraceID stores a trace id for later log enrichment.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *zap.SugaredLogger
}

func NewContextLogger(logger *zap.SugaredLogger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext adds the ids carried by ctx to the logger.
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.SugaredLogger {
	fields := []interface{}{}
	for _, key := range []contextKey{traceIDKey, userIDKey, sessionIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, string(key), v)
		}
	}
	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// WithFields adds custom fields to logger
func (cl *ContextLogger) WithFields(fields ...zapcore.Field) *zap.SugaredLogger {
	return cl.logger.Desugar().With(fields...).Sugar()
}

func (cl *ContextLogger) Debugw(ctx context.Context, msg string, kv ...interface{}) {
	cl.WithContext(ctx).Debugw(msg, kv...)
}

func (cl *ContextLogger) Infow(ctx context.Context, msg string, kv ...interface{}) {
	cl.WithContext(ctx).Infow(msg, kv...)
}

func (cl *ContextLogger) Warnw(ctx context.Context, msg string, kv ...interface{}) {
	cl.WithContext(ctx).Warnw(msg, kv...)
}

// Errorw logs err under the "error" key together with kv.
func (cl *ContextLogger) Errorw(ctx context.Context, err error, msg string, kv ...interface{}) {
	cl.WithContext(ctx).With(zap.Error(err)).Errorw(msg, kv...)
}
