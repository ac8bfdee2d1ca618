package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/data-rescue/internal/allocation"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

const mbPerGB = 1024

// DispatchRequest is a volunteer node asking for work.
type DispatchRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	FreeSpaceGB float64 `json:"free_space_gb" binding:"required,gt=0"`
	NodeID      string  `json:"node_id"`
}

type DispatchHandler struct {
	engine *allocation.Engine
	logger logger.Logger
}

func NewDispatchHandler(engine *allocation.Engine, log logger.Logger) *DispatchHandler {
	return &DispatchHandler{
		engine: engine,
		logger: log,
	}
}

// Dispatch allocates a slice of the ranked backlog to the requesting node.
// Nothing fitting the offered space is reported as 422, not as an error.
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid dispatch request",
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	freeSpaceMB := req.FreeSpaceGB * mbPerGB

	result, err := h.engine.AllocateAssets(c.Request.Context(), freeSpaceMB, req.NodeID)
	if err != nil {
		h.logger.Error("Allocation failed",
			logger.String("node_name", req.Name),
			logger.Float64("free_space_mb", freeSpaceMB),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Allocation failed"})
		return
	}

	if result == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "no_assets",
			"message": "No assets fit the offered free space",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Assets allocated",
		"received_data": gin.H{
			"name":          req.Name,
			"description":   req.Description,
			"free_space_gb": req.FreeSpaceGB,
			"node_id":       result.NodeID,
		},
		"allocation_id":     result.AllocationID,
		"allocated_size_mb": result.AllocatedSizeMB,
		"asset":             result.Assets,
	})
}
