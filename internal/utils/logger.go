package utils

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"

	loggerKey    = "logger"
	requestIDKey = "request_id"
)

// Logger is the structured logger of the HTTP layer. The engine services take
// the *slog.Logger returned by Slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
	Slog() *slog.Logger
}

// SlogLogger implements Logger on top of slog.
type SlogLogger struct {
	*slog.Logger
}

func NewSlogLogger(logger *slog.Logger) Logger {
	return SlogLogger{Logger: logger}
}

// NewLogger returns a JSON logger at info level in production and a text
// logger at debug level everywhere else.
func NewLogger(environment string) Logger {
	if environment == "production" {
		return NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})))
	}
	return NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

func (l SlogLogger) With(args ...any) Logger {
	return SlogLogger{Logger: l.Logger.With(args...)}
}

func (l SlogLogger) Slog() *slog.Logger {
	return l.Logger
}

// LoggerMiddleware writes one line per request: info for successful
// responses, warn for 4xx and error for 5xx.
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.Slog().Log(c.Request.Context(), level, "HTTP Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", status,
			"duration", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", RequestID(c),
		)
	}
}

// ContextLogger stores a request-scoped logger in the gin context. Requests
// without an X-Request-ID header get a generated one, echoed in the response.
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		fields := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if sessionID := c.Param("id"); sessionID != "" {
			fields = append(fields, "session_id", sessionID)
		}
		c.Set(loggerKey, logger.With(fields...))
		c.Next()
	}
}

// LoggerFromContext returns the logger stored by ContextLogger.
func LoggerFromContext(c *gin.Context) (Logger, bool) {
	value, exists := c.Get(loggerKey)
	if !exists {
		return nil, false
	}
	logger, ok := value.(Logger)
	return logger, ok
}

// RequestID returns the id assigned by ContextLogger, empty without it.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
