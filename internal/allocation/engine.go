// Package allocation converts the current ranking and a node's space budget
// into a concrete, durably logged work assignment.
package allocation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// RankingSource fetches the live ranking (normally the rankclient).
type RankingSource interface {
	GetRanking(ctx context.Context) ([]domain.RankedAsset, error)
}

// Cache is the local fallback store for the last known ranking.
type Cache interface {
	Store(ctx context.Context, assets []domain.RankedAsset) error
	Load(ctx context.Context) ([]domain.RankedAsset, error)
}

// AllocationLog appends allocation records.
type AllocationLog interface {
	AppendAllocations(ctx context.Context, allocationID, nodeID string, assets []domain.RankedAsset) error
}

// EventSink publishes allocation lifecycle events. May be a nil publisher.
type EventSink interface {
	AllocationCreated(result *domain.AllocationResult)
}

// defaultMaxUnknownSize caps unknown-size assets accepted per allocation so
// optimistic packing cannot overcommit a node without bound.
const defaultMaxUnknownSize = 5

// Engine packs ranked assets into a space budget and records the result.
type Engine struct {
	source         RankingSource
	cache          Cache
	log            AllocationLog
	events         EventSink
	logger         logger.Logger
	maxUnknownSize int
}

// NewEngine creates an allocation engine. events may be nil.
func NewEngine(
	source RankingSource,
	cache Cache,
	allocLog AllocationLog,
	events EventSink,
	log logger.Logger,
	maxUnknownSize int,
) *Engine {
	if maxUnknownSize <= 0 {
		maxUnknownSize = defaultMaxUnknownSize
	}
	return &Engine{
		source:         source,
		cache:          cache,
		log:            allocLog,
		events:         events,
		logger:         log,
		maxUnknownSize: maxUnknownSize,
	}
}

// GetAvailableAssets returns the current ranking. A successful live fetch is
// written through to the cache; on any fetch failure the last cached ranking
// is served instead. With neither available the result is empty, which is an
// answer, not an error: availability wins over freshness here.
func (e *Engine) GetAvailableAssets(ctx context.Context) []domain.RankedAsset {
	assets, err := e.source.GetRanking(ctx)
	if err == nil {
		if cacheErr := e.cache.Store(ctx, assets); cacheErr != nil {
			e.logger.Warn("Ranking cache write failed",
				logger.Error(cacheErr),
			)
		}
		return assets
	}

	e.logger.Warn("Live ranking unavailable, falling back to cache",
		logger.Error(err),
	)

	cached, cacheErr := e.cache.Load(ctx)
	if cacheErr != nil {
		e.logger.Warn("No cached ranking available",
			logger.Error(cacheErr),
		)
		return []domain.RankedAsset{}
	}

	return cached
}

// AllocateAssets greedily packs the available assets into freeSpaceMB and
// appends the selection to the allocation log. Assets are considered in
// (priority ascending, size ascending) order, so the most urgent and, within
// one urgency level, the smallest assets are taken first. Unknown-size assets
// are accepted optimistically without consuming budget, up to a fixed cap per
// allocation.
//
// A nil result means nothing fit; callers surface that as an empty outcome,
// not a failure. The allocation log is append-only: concurrent callers may
// both win the same asset, which the domain tolerates as a duplicate
// download attempt.
func (e *Engine) AllocateAssets(
	ctx context.Context,
	freeSpaceMB float64,
	nodeID string,
) (*domain.AllocationResult, error) {
	available := e.GetAvailableAssets(ctx)

	selected := e.pack(available, freeSpaceMB)
	if len(selected) == 0 {
		return nil, nil
	}

	if nodeID == "" {
		nodeID = uuid.New().String()
	}
	allocationID := uuid.New().String()

	if err := e.log.AppendAllocations(ctx, allocationID, nodeID, selected); err != nil {
		return nil, fmt.Errorf("record allocation: %w", err)
	}

	result := &domain.AllocationResult{
		NodeID:          nodeID,
		AllocatedSizeMB: knownSizeTotal(selected),
		Assets:          selected,
		AllocationID:    allocationID,
	}

	if e.events != nil {
		e.events.AllocationCreated(result)
	}

	e.logger.Info("Assets allocated",
		logger.String("allocation_id", allocationID),
		logger.String("node_id", nodeID),
		logger.Int("assets", len(selected)),
		logger.Float64("allocated_size_mb", result.AllocatedSizeMB),
	)

	return result, nil
}

// pack performs the greedy selection. The input is not mutated.
func (e *Engine) pack(available []domain.RankedAsset, freeSpaceMB float64) []domain.RankedAsset {
	ordered := make([]domain.RankedAsset, len(available))
	copy(ordered, available)

	// Unknown sizes sort after known ones within a priority level; asset id
	// breaks remaining ties so repeated calls select identically.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		si, sj := ordered[i].SizeMB, ordered[j].SizeMB
		switch {
		case si != nil && sj != nil:
			if *si != *sj {
				return *si < *sj
			}
		case si != nil:
			return true
		case sj != nil:
			return false
		}
		return ordered[i].AssetID < ordered[j].AssetID
	})

	selected := make([]domain.RankedAsset, 0)
	remaining := freeSpaceMB
	unknownAccepted := 0

	for _, asset := range ordered {
		if !asset.HasKnownSize() {
			if unknownAccepted >= e.maxUnknownSize {
				continue
			}
			unknownAccepted++
			selected = append(selected, asset)
			continue
		}

		if *asset.SizeMB <= remaining {
			selected = append(selected, asset)
			remaining -= *asset.SizeMB
		}
	}

	return selected
}

func knownSizeTotal(assets []domain.RankedAsset) float64 {
	var total float64
	for _, asset := range assets {
		if asset.HasKnownSize() {
			total += *asset.SizeMB
		}
	}
	return total
}
