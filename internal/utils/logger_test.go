package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	router := gin.New()
	router.Use(LoggerMiddleware(logger))
	router.Use(ContextLogger(logger))
	router.GET("/sessions/:id", func(c *gin.Context) {
		requestLogger, ok := LoggerFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		requestLogger.InfoContext(c.Request.Context(), "handled")
		c.Status(http.StatusNotFound)
	})
	return router
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestContextLogger_KeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	router := newTestEngine(&buf)

	req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "handled", lines[0]["msg"])
	assert.Equal(t, "abc", lines[0]["session_id"])
	assert.Equal(t, "req-1", lines[0]["request_id"])

	assert.Equal(t, "HTTP Request", lines[1]["msg"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, float64(http.StatusNotFound), lines[1]["status_code"])
	assert.Equal(t, "req-1", lines[1]["request_id"])
}

func TestContextLogger_GeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	router := newTestEngine(&buf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))

	requestID := rec.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, requestID)
	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, requestID, lines[0]["request_id"])
}

func TestSlogLogger_WithKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil))).With("component", "player")

	logger.Info("ready")
	logger.Slog().Debug("hidden")

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "player", lines[0]["component"])
}
