package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthHandler struct {
	db      *sql.DB
	service string
	version string
}

func NewHealthHandler(db *sql.DB, service, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		service: service,
		version: version,
	}
}

// Health reports service liveness and database reachability.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"
	dbStatus := "connected"
	code := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status = "unhealthy"
			dbStatus = "disconnected"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  h.service,
		"version":  h.version,
		"database": dbStatus,
	})
}
