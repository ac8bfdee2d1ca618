package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/reconcile"
)

// RescueReportRequest is a volunteer node reporting download outcomes.
type RescueReportRequest struct {
	RescuerID int64                     `json:"rescuer_id" binding:"required"`
	Message   string                    `json:"message"`
	Assets    []reconcile.ReportedAsset `json:"assets"`
}

type RescueHandler struct {
	reconciler *reconcile.Reconciler
	auditLog   *reconcile.RescueLog
	logger     logger.Logger
}

// NewRescueHandler creates a rescue report handler. auditLog may be nil to
// disable the file-backed audit trail.
func NewRescueHandler(reconciler *reconcile.Reconciler, auditLog *reconcile.RescueLog, log logger.Logger) *RescueHandler {
	return &RescueHandler{
		reconciler: reconciler,
		auditLog:   auditLog,
		logger:     log,
	}
}

// Report reconciles a batch of reported rescues into the catalog. Batches
// failing validation are rejected whole with 422; a batch where every row
// failed to commit is a 500.
func (h *RescueHandler) Report(c *gin.Context) {
	var req RescueReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid rescue report",
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.Assets) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Empty asset list"})
		return
	}

	for i := range req.Assets {
		if err := domain.ValidateLocator(req.Assets[i].Locator()); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    "Invalid asset locator",
				"asset_id": req.Assets[i].AssetID,
			})
			return
		}
	}

	summary, err := h.reconciler.UpsertRescues(c.Request.Context(), req.RescuerID, req.Assets)
	if err != nil {
		if isValidationError(err) {
			h.logger.Debug("Rescue report rejected",
				logger.Int64("rescuer_id", req.RescuerID),
				logger.Error(err),
			)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to reconcile rescues",
			logger.Int64("rescuer_id", req.RescuerID),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile rescues"})
		return
	}

	if !summary.Committed() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":                 "No rescues committed",
			"not_committed_rescues": summary.NotCommitted,
		})
		return
	}

	if h.auditLog != nil {
		if _, auditErr := h.auditLog.Upsert(strconv.FormatInt(req.RescuerID, 10), req.Assets); auditErr != nil {
			h.logger.Warn("Rescue audit log write failed",
				logger.Int64("rescuer_id", req.RescuerID),
				logger.Error(auditErr),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":                "ok",
		"message":               "Rescues reconciled",
		"updated_rescues":       summary.Updated,
		"inserted_rescues":      summary.Inserted,
		"not_committed_rescues": summary.NotCommitted,
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, reconcile.ErrUnknownRescuer) ||
		errors.Is(err, reconcile.ErrUnknownAsset) ||
		errors.Is(err, reconcile.ErrAssetURLMismatch) ||
		errors.Is(err, reconcile.ErrBadAssetID)
}
