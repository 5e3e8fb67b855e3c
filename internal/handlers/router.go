package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/services"
	"github.com/SAP-F-2025/attempt-engine/internal/utils"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	eventHandler   *EventStreamHandler
	manager        *services.SessionManager
}

func NewHandlerManager(
	manager *services.SessionManager,
	subscriber events.Subscriber,
	validator *validator.Validator,
	allowedOrigins []string,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(manager, validator, logger),
		eventHandler:   NewEventStreamHandler(manager, subscriber, allowedOrigins, logger),
		manager:        manager,
	}
}

// NewRouter builds the gin engine with the shared middleware and every route.
func NewRouter(hm *HandlerManager, allowedOrigins []string, logger utils.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(utils.ContextLogger(logger))
	router.Use(cors.New(corsConfig(allowedOrigins)))

	hm.SetupRoutes(router)
	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cfg
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.OpenSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.CloseSession)
			sessions.POST("/:id/start", hm.sessionHandler.StartSession)
			sessions.PUT("/:id/answers", hm.sessionHandler.UpdateAnswers)
			sessions.POST("/:id/page", hm.sessionHandler.ChangePage)
			sessions.POST("/:id/finish", hm.sessionHandler.FinishSession)
			sessions.GET("/:id/events", hm.eventHandler.StreamSessionEvents)
		}
	}
}

func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "attempt-engine",
		"sessions": hm.manager.Count(),
	})
}
