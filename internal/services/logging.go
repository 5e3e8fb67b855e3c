package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
)

// LogLevel represents different log levels for service operations
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ServiceLogger provides structured logging for session operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// Logger exposes the underlying slog logger with the service attributes.
func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}

// ===== OPERATION LOGGING =====

func classify(err error) (LogLevel, string) {
	switch {
	case err == nil:
		return LogLevelInfo, "success"
	case IsValidation(err):
		return LogLevelWarn, "validation_error"
	case IsConcurrency(err):
		return LogLevelWarn, "concurrency_error"
	case IsTransport(err):
		return LogLevelWarn, "transport_error"
	case IsRejected(err):
		return LogLevelInfo, "rejected"
	case IsContentParse(err):
		return LogLevelError, "content_parse_error"
	default:
		return LogLevelError, "error"
	}
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, activityID, attemptID int64, duration time.Duration, err error) {
	logLevel, status := classify(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Int64("activity_id", activityID),
		slog.Int64("attempt_id", attemptID),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErrs apperrors.ValidationErrors
		var concurrencyErr *apperrors.ConcurrencyError
		var transportErr *apperrors.TransportError
		switch {
		case errors.As(err, &validationErrs):
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErrs)))
		case errors.As(err, &concurrencyErr):
			attrs = append(attrs, slog.String("lock_component", concurrencyErr.Component))
		case errors.As(err, &transportErr):
			attrs = append(attrs, slog.String("transport_op", transportErr.Op))
		}

		if logLevel == LogLevelError {
			if pc, file, line, ok := runtime.Caller(2); ok {
				if fn := runtime.FuncForPC(pc); fn != nil {
					attrs = append(attrs,
						slog.String("caller_func", fn.Name()),
						slog.String("caller_file", file),
						slog.Int("caller_line", line),
					)
				}
			}
		}
	}

	message := fmt.Sprintf("%s operation %s", operation, status)

	switch logLevel {
	case LogLevelDebug:
		if l.config.EnableDebug {
			l.logger.LogAttrs(ctx, slog.LevelDebug, message, attrs...)
		}
	case LogLevelInfo:
		l.logger.LogAttrs(ctx, slog.LevelInfo, message, attrs...)
	case LogLevelWarn:
		l.logger.LogAttrs(ctx, slog.LevelWarn, message, attrs...)
	case LogLevelError:
		l.logger.LogAttrs(ctx, slog.LevelError, message, attrs...)
	}
}

func (l *ServiceLogger) LogStateTransition(ctx context.Context, activityID int64, from, to SessionState) {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "Session state changed",
		slog.Int64("activity_id", activityID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

func (l *ServiceLogger) LogRecovery(ctx context.Context, operation string, recovered interface{}, stack []byte) {
	l.logger.LogAttrs(ctx, slog.LevelError, "Panic recovered",
		slog.String("operation", operation),
		slog.Any("panic_value", recovered),
		slog.String("stack_trace", string(stack)),
	)
}

// ===== CONTEXTUAL LOGGING =====

// ContextualLogger times one operation and logs its result
type ContextualLogger struct {
	logger     *ServiceLogger
	operation  string
	activityID int64
	startTime  time.Time
	ctx        context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, activityID int64) *ContextualLogger {
	return &ContextualLogger{
		logger:     l,
		operation:  operation,
		activityID: activityID,
		startTime:  time.Now(),
		ctx:        ctx,
	}
}

func (cl *ContextualLogger) LogResult(attemptID int64, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.activityID, attemptID, time.Since(cl.startTime), err)
}
