// Package catalog implements PostgreSQL access to the asset catalog:
// dataset ranks, ranked-asset pages, rescues, and the allocation log.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/ranking"
)

// RankRepository reads ranking snapshots and appends rank batches.
type RankRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewRankRepository creates a RankRepository.
func NewRankRepository(db *sql.DB, log logger.Logger) *RankRepository {
	return &RankRepository{
		db:     db,
		logger: log,
	}
}

// DatasetSnapshots returns the per-dataset ranking inputs: resource counts,
// rescued-resource counts, and the latest event count and rank. Datasets
// with no resources report zero counts and rank with the completed group.
func (r *RankRepository) DatasetSnapshots(ctx context.Context) ([]ranking.DatasetSnapshot, error) {
	query := `
		SELECT d.id,
		       COUNT(DISTINCT res.id) AS resource_count,
		       COUNT(DISTINCT res.id) FILTER (
		           WHERE EXISTS (
		               SELECT 1
		               FROM resource_assets ra
		               JOIN rescues rc ON rc.asset_id = ra.asset_id
		               WHERE ra.resource_id = res.id
		                 AND rc.locator <> ''
		           )
		       ) AS rescued_resources,
		       COALESCE(lr.event_count, 0) AS event_count,
		       COALESCE(lr.rank, 0) AS current_rank
		FROM datasets d
		LEFT JOIN resources res ON res.dataset_id = d.id
		LEFT JOIN LATERAL (
		    SELECT dr.event_count, dr.rank
		    FROM dataset_ranks dr
		    WHERE dr.dataset_id = d.id
		    ORDER BY dr.updated_at DESC, dr.id DESC
		    LIMIT 1
		) lr ON true
		GROUP BY d.id, lr.event_count, lr.rank
		ORDER BY d.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query dataset snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]ranking.DatasetSnapshot, 0)
	for rows.Next() {
		var s ranking.DatasetSnapshot
		if scanErr := rows.Scan(
			&s.DatasetID,
			&s.ResourceCount,
			&s.RescuedResources,
			&s.EventCount,
			&s.CurrentRank,
		); scanErr != nil {
			return nil, fmt.Errorf("scan dataset snapshot: %w", scanErr)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset snapshots: %w", err)
	}

	return snapshots, nil
}

// InsertRankBatch appends the emitted rank rows in a single transaction so
// concurrent rank queries observe either the prior ranking or the whole new
// one.
func (r *RankRepository) InsertRankBatch(ctx context.Context, records []ranking.RankRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rank batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO dataset_ranks (dataset_id, ranking_id, event_count, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, record := range records {
		if _, execErr := tx.ExecContext(ctx, query,
			record.DatasetID,
			record.RankingID,
			record.EventCount,
			record.Rank,
			record.UpdatedAt,
		); execErr != nil {
			return fmt.Errorf("insert rank for dataset %d: %w", record.DatasetID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rank batch: %w", err)
	}

	r.logger.Debug("Rank batch persisted",
		logger.Int("records", len(records)),
	)

	return nil
}

// RankedAssets returns up to limit asset entries ordered most-urgent-first,
// with assets whose resource has no successful rescue ahead of already
// rescued ones. The demotion keys on the resource, so an unrescued asset of
// a partially rescued resource still sorts into the rescued tail. The URL is
// the latest successful rescue locator when one exists, otherwise the
// asset's own locator.
func (r *RankRepository) RankedAssets(ctx context.Context, limit int) ([]domain.RankedAsset, error) {
	query := `
		SELECT res.dg_description,
		       res.dg_name,
		       lr.rank,
		       a.size_mb,
		       d.id::text,
		       res.id::text,
		       a.id::text,
		       COALESCE(sr.locator, a.url) AS url
		FROM datasets d
		JOIN resources res ON res.dataset_id = d.id
		JOIN resource_assets ra ON ra.resource_id = res.id
		JOIN assets a ON a.id = ra.asset_id
		JOIN LATERAL (
		    SELECT dr.rank
		    FROM dataset_ranks dr
		    WHERE dr.dataset_id = d.id
		    ORDER BY dr.updated_at DESC, dr.id DESC
		    LIMIT 1
		) lr ON true
		LEFT JOIN LATERAL (
		    SELECT rc.locator
		    FROM rescues rc
		    WHERE rc.asset_id = a.id
		      AND rc.status = 'success'
		      AND rc.locator <> ''
		    ORDER BY rc.updated_at DESC
		    LIMIT 1
		) sr ON true
		ORDER BY EXISTS (
		    SELECT 1
		    FROM resource_assets rra
		    JOIN rescues rrc ON rrc.asset_id = rra.asset_id
		    WHERE rra.resource_id = res.id
		      AND rrc.status = 'success'
		      AND rrc.locator <> ''
		), lr.rank, a.id
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ranked assets: %w", err)
	}
	defer rows.Close()

	assets, err := scanRankedAssets(rows)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func scanRankedAssets(rows *sql.Rows) ([]domain.RankedAsset, error) {
	assets := make([]domain.RankedAsset, 0)
	for rows.Next() {
		var asset domain.RankedAsset
		var size sql.NullFloat64

		if err := rows.Scan(
			&asset.Path,
			&asset.Name,
			&asset.Priority,
			&size,
			&asset.DatasetID,
			&asset.ResourceID,
			&asset.AssetID,
			&asset.URL,
		); err != nil {
			return nil, fmt.Errorf("scan ranked asset: %w", err)
		}

		if size.Valid {
			asset.SizeMB = &size.Float64
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked assets: %w", err)
	}
	return assets, nil
}
