// Package handlers contains the Gin HTTP handlers for the ranker and
// dispatcher services.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/ranking"
)

// RankedAssetSource serves the ranked asset listing.
type RankedAssetSource interface {
	RankedAssets(ctx context.Context, limit int) ([]domain.RankedAsset, error)
}

type RankingHandler struct {
	repo       RankedAssetSource
	recomputer *ranking.Recomputer
	pageSize   int
	logger     logger.Logger
}

func NewRankingHandler(
	repo RankedAssetSource,
	recomputer *ranking.Recomputer,
	pageSize int,
	log logger.Logger,
) *RankingHandler {
	return &RankingHandler{
		repo:       repo,
		recomputer: recomputer,
		pageSize:   pageSize,
		logger:     log,
	}
}

// GetRanking returns the current ranked asset page, most urgent first.
func (h *RankingHandler) GetRanking(c *gin.Context) {
	assets, err := h.repo.RankedAssets(c.Request.Context(), h.pageSize)
	if err != nil {
		h.logger.Error("Failed to load ranked assets",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ranking"})
		return
	}

	if assets == nil {
		assets = []domain.RankedAsset{}
	}

	c.JSON(http.StatusOK, gin.H{"asset": assets})
}

// TriggerRecompute runs one ranking pass synchronously and returns the rank
// records it emitted. Intended for operators and integration tests.
func (h *RankingHandler) TriggerRecompute(c *gin.Context) {
	records, err := h.recomputer.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Error("Ranking recompute failed",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ranking recompute failed"})
		return
	}

	if records == nil {
		records = []ranking.RankRecord{}
	}

	c.JSON(http.StatusOK, records)
}
