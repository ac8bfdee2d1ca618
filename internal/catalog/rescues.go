package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// RescueRepository reads rescuers and assets and upserts rescue outcomes.
type RescueRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewRescueRepository creates a RescueRepository.
func NewRescueRepository(db *sql.DB, log logger.Logger) *RescueRepository {
	return &RescueRepository{
		db:     db,
		logger: log,
	}
}

// RescuerExists reports whether the rescuer is registered in the catalog.
func (r *RescueRepository) RescuerExists(ctx context.Context, rescuerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rescuers WHERE id = $1)`,
		rescuerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query rescuer %d: %w", rescuerID, err)
	}
	return exists, nil
}

// AssetsByIDs returns the catalog assets for the given ids, keyed by id.
// Unknown ids are simply absent from the result.
func (r *RescueRepository) AssetsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Asset, error) {
	if len(ids) == 0 {
		return map[int64]domain.Asset{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, size_mb, created_at, updated_at FROM assets WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	assets := make(map[int64]domain.Asset, len(ids))
	for rows.Next() {
		var asset domain.Asset
		var size sql.NullFloat64
		if scanErr := rows.Scan(&asset.ID, &asset.URL, &size, &asset.CreatedAt, &asset.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("scan asset: %w", scanErr)
		}
		if size.Valid {
			asset.SizeMB = &size.Float64
		}
		assets[asset.ID] = asset
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}

	return assets, nil
}

// GetRescue returns the rescue row for (rescuerID, assetID), or nil when no
// report has been recorded yet.
func (r *RescueRepository) GetRescue(ctx context.Context, rescuerID, assetID int64) (*domain.Rescue, error) {
	var rescue domain.Rescue
	err := r.db.QueryRowContext(ctx,
		`SELECT id, asset_id, rescuer_id, locator, status, created_at, updated_at
		 FROM rescues
		 WHERE rescuer_id = $1 AND asset_id = $2`,
		rescuerID, assetID,
	).Scan(
		&rescue.ID,
		&rescue.AssetID,
		&rescue.RescuerID,
		&rescue.Locator,
		&rescue.Status,
		&rescue.CreatedAt,
		&rescue.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query rescue (%d, %d): %w", rescuerID, assetID, err)
	}
	return &rescue, nil
}

// InsertRescue records the first report for an (asset, rescuer) pair.
func (r *RescueRepository) InsertRescue(ctx context.Context, rescue *domain.Rescue) error {
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO rescues (asset_id, rescuer_id, locator, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id`,
		rescue.AssetID, rescue.RescuerID, rescue.Locator, rescue.Status, now,
	).Scan(&rescue.ID)
	if err != nil {
		return fmt.Errorf("insert rescue (%d, %d): %w", rescue.RescuerID, rescue.AssetID, err)
	}
	rescue.CreatedAt = now
	rescue.UpdatedAt = now
	return nil
}

// UpdateRescue overwrites locator and status of an existing report in place.
func (r *RescueRepository) UpdateRescue(ctx context.Context, rescue *domain.Rescue) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE rescues SET locator = $1, status = $2, updated_at = $3
		 WHERE rescuer_id = $4 AND asset_id = $5`,
		rescue.Locator, rescue.Status, now, rescue.RescuerID, rescue.AssetID,
	)
	if err != nil {
		return fmt.Errorf("update rescue (%d, %d): %w", rescue.RescuerID, rescue.AssetID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("update rescue (%d, %d): no row", rescue.RescuerID, rescue.AssetID)
	}

	rescue.UpdatedAt = now
	return nil
}
