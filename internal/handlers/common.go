package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

func (h *BaseHandler) requestFields(c *gin.Context) []interface{} {
	fields := []interface{}{
		"request_id", c.GetHeader(utils.RequestIDHeader),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	if sessionID := c.Param("id"); sessionID != "" {
		fields = append(fields, "session_id", sessionID)
	}
	return fields
}

// log returns the request logger set by utils.ContextLogger, or the handler
// logger with the request fields when that middleware is not installed.
func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	if logger, ok := utils.LoggerFromContext(c); ok {
		return logger
	}
	return h.logger.With(h.requestFields(c)...)
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append(additionalFields,
		"remote_addr", c.ClientIP(),
		"user_agent", c.Request.UserAgent(),
	)
	h.log(c).InfoContext(c.Request.Context(), message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"error", err}, additionalFields...)
	h.log(c).ErrorContext(c.Request.Context(), message, fields...)
}

// LogInfo logs informational messages with context
func (h *BaseHandler) LogInfo(c *gin.Context, message string, additionalFields ...interface{}) {
	h.log(c).InfoContext(c.Request.Context(), message, additionalFields...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.log(c).WarnContext(c.Request.Context(), message, additionalFields...)
}

// LogDebug logs debug messages with context
func (h *BaseHandler) LogDebug(c *gin.Context, message string, additionalFields ...interface{}) {
	h.log(c).DebugContext(c.Request.Context(), message, additionalFields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}

	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "error", err)
	}

	c.JSON(statusCode, errorResp)
}

// handleServiceError maps engine errors to HTTP responses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, []services.ValidationError{*validationError})
		return
	}

	var accessDenied *services.AccessDeniedError
	if errors.As(err, &accessDenied) {
		h.RespondWithError(c, http.StatusForbidden, "New attempt not allowed", err, map[string]interface{}{
			"reasons": accessDenied.Reasons,
		})
		return
	}

	var concurrencyError *apperrors.ConcurrencyError
	if errors.As(err, &concurrencyError) {
		h.RespondWithError(c, http.StatusConflict, "Activity already in use", err, map[string]interface{}{
			"component":   concurrencyError.Component,
			"instance_id": concurrencyError.InstanceID,
		})
		return
	}

	var parseError *apperrors.ContentParseError
	if errors.As(err, &parseError) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, "Activity content cannot be displayed", err, map[string]interface{}{
			"content": parseError.What,
			"reasons": parseError.Reasons,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Session not found", err)
	case errors.Is(err, services.ErrFinishNotConfirmed):
		h.RespondWithError(c, http.StatusPreconditionRequired, "Finishing requires confirmation", err)
	case errors.Is(err, services.ErrNavigationNotAllowed):
		h.RespondWithError(c, http.StatusForbidden, "Navigation not allowed", err)
	case errors.Is(err, services.ErrAttemptNotAllowed):
		h.RespondWithError(c, http.StatusForbidden, "New attempt not allowed", err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "Session is not in a usable state", err)
	case services.IsTransport(err):
		h.RespondWithError(c, http.StatusBadGateway, "Activity server unreachable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.RespondWithError(c, http.StatusGatewayTimeout, "Request cancelled", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
