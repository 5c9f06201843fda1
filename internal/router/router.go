package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"clockko/focus/internal/handler"
	"clockko/focus/internal/middleware"
	"clockko/focus/internal/service"
)

func New(
	tokenService *service.TokenService,
	timerHandler *handler.TimerHandler,
	sessionHandler *handler.SessionHandler,
	corsOrigins []string,
	logger zerolog.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.Use(middleware.Auth(tokenService))

	timer := api.Group("/timer")
	timer.GET("/state", timerHandler.GetState)
	timer.GET("/events", timerHandler.Events)
	timer.POST("/focus", timerHandler.StartFocus)
	timer.POST("/break", timerHandler.StartBreak)
	timer.POST("/pause", timerHandler.Pause)
	timer.POST("/resume", timerHandler.Resume)
	timer.POST("/stop", timerHandler.Stop)

	sessions := api.Group("/sessions")
	sessions.GET("/current", sessionHandler.GetCurrent)
	sessions.GET("/paused", sessionHandler.GetPaused)
	sessions.GET("/daily-summary", sessionHandler.GetDailySummary)
	sessions.GET("/history", sessionHandler.GetHistory)

	return engine
}
