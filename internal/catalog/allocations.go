package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// columnsPerAllocationRow is the number of columns inserted per allocation row.
const columnsPerAllocationRow = 9

// StatusAllocated marks a live allocation log entry.
const StatusAllocated = "ALLOCATED"

// AllocationRepository appends to the allocation log. The log is append-only;
// repeated allocations of the same asset to different nodes are recorded as
// separate rows, never deduplicated.
type AllocationRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewAllocationRepository creates an AllocationRepository.
func NewAllocationRepository(db *sql.DB, log logger.Logger) *AllocationRepository {
	return &AllocationRepository{
		db:     db,
		logger: log,
	}
}

// AppendAllocations records the selected assets for one allocation in a
// single multi-row insert.
func (r *AllocationRepository) AppendAllocations(
	ctx context.Context,
	allocationID, nodeID string,
	assets []domain.RankedAsset,
) error {
	if len(assets) == 0 {
		return nil
	}

	now := time.Now().UTC()

	args := make([]any, 0, len(assets)*columnsPerAllocationRow)
	var sb strings.Builder
	sb.WriteString(
		"INSERT INTO allocations (allocation_id, node_id, ds_id, res_id, asset_id, " +
			"size_mb, priority, status, created_at) VALUES ",
	)

	for i, asset := range assets {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeAllocationTuple(&sb, i)

		var size any
		if asset.SizeMB != nil {
			size = *asset.SizeMB
		}

		args = append(args,
			allocationID, nodeID,
			asset.DatasetID, asset.ResourceID, asset.AssetID,
			size, asset.Priority, StatusAllocated, now,
		)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("append allocations: %w", err)
	}

	r.logger.Debug("Allocation log appended",
		logger.String("allocation_id", allocationID),
		logger.String("node_id", nodeID),
		logger.Int("assets", len(assets)),
	)

	return nil
}

func writeAllocationTuple(sb *strings.Builder, rowIndex int) {
	base := rowIndex * columnsPerAllocationRow
	sb.WriteString("(")
	for col := 1; col <= columnsPerAllocationRow; col++ {
		if col > 1 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "$%d", base+col)
	}
	sb.WriteString(")")
}
