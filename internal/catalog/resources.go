package catalog

import (
	"context"
	"fmt"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// RefreshResourceMetadata classifies resources the ingestion pipeline left
// untyped and refreshes the per-dataset access counts derived from those
// types. Run before each ranking pass so completion and counts reflect the
// newest catalog state.
func (r *RankRepository) RefreshResourceMetadata(ctx context.Context) error {
	if err := r.classifyUntypedResources(ctx); err != nil {
		return err
	}
	return r.refreshAccessCounts(ctx)
}

func (r *RankRepository) classifyUntypedResources(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, dg_url FROM resources WHERE resource_type IS NULL`,
	)
	if err != nil {
		return fmt.Errorf("query untyped resources: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id      int64
		dbValue string
	}

	updates := make([]pending, 0)
	for rows.Next() {
		var id int64
		var rawURL string
		if scanErr := rows.Scan(&id, &rawURL); scanErr != nil {
			return fmt.Errorf("scan untyped resource: %w", scanErr)
		}

		dbValue := domain.ClassifyURL(rawURL).DBValue()
		if dbValue == "" {
			// Blank URL, nothing to record.
			continue
		}
		updates = append(updates, pending{id: id, dbValue: dbValue})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate untyped resources: %w", err)
	}

	for _, u := range updates {
		if _, execErr := r.db.ExecContext(ctx,
			`UPDATE resources SET resource_type = $1, updated_at = now() WHERE id = $2`,
			u.dbValue, u.id,
		); execErr != nil {
			return fmt.Errorf("classify resource %d: %w", u.id, execErr)
		}
	}

	if len(updates) > 0 {
		r.logger.Info("Classified resources",
			logger.Int("count", len(updates)),
		)
	}

	return nil
}

// refreshAccessCounts recomputes access_direct_dl_count / access_total_count
// from the stored resource types. Directory listings and web pages are not
// directly downloadable.
func (r *RankRepository) refreshAccessCounts(ctx context.Context) error {
	query := `
		UPDATE datasets d
		SET access_total_count = s.total,
		    access_direct_dl_count = s.direct,
		    updated_at = now()
		FROM (
		    SELECT dataset_id,
		           COUNT(*) AS total,
		           COUNT(*) FILTER (
		               WHERE resource_type IS NOT NULL
		                 AND resource_type NOT IN ('dir', 'web')
		           ) AS direct
		    FROM resources
		    GROUP BY dataset_id
		) s
		WHERE d.id = s.dataset_id
		  AND (d.access_total_count <> s.total OR d.access_direct_dl_count <> s.direct)
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("refresh access counts: %w", err)
	}
	return nil
}
