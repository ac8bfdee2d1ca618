// Package api wires the HTTP routers for the ranker and dispatcher services.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/data-rescue/internal/handlers"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// NewRankerRouter builds the ranker service router.
func NewRankerRouter(
	rankingHandler *handlers.RankingHandler,
	healthHandler *handlers.HealthHandler,
	log logger.Logger,
) *gin.Engine {
	router := gin.New()

	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Health)
	router.POST("/ranking", rankingHandler.GetRanking)
	router.POST("/test_ranking", rankingHandler.TriggerRecompute)

	return router
}

// NewDispatcherRouter builds the dispatcher service router.
func NewDispatcherRouter(
	dispatchHandler *handlers.DispatchHandler,
	rescueHandler *handlers.RescueHandler,
	healthHandler *handlers.HealthHandler,
	log logger.Logger,
) *gin.Engine {
	router := gin.New()

	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Health)
	router.POST("/dispatch", dispatchHandler.Dispatch)
	router.POST("/assets-downloaded", rescueHandler.Report)

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
