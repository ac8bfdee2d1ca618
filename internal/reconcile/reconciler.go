// Package reconcile validates rescue outcome reports and upserts them into
// durable state, either the catalog or a local JSON log.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// ReportedAsset is one asset outcome a rescuer reports after attempting its
// allocation. MagnetLink is the locator the rescuer produced; when absent the
// original URL is recorded as the locator.
type ReportedAsset struct {
	AssetID    string              `json:"asset_id"`
	DatasetID  string              `json:"ds_id"`
	ResourceID string              `json:"res_id"`
	Path       string              `json:"path"`
	Name       string              `json:"name"`
	Priority   int                 `json:"priority"`
	SizeMB     *float64            `json:"size_mb"`
	URL        string              `json:"url"`
	MagnetLink string              `json:"magnet_link,omitempty"`
	Status     domain.RescueStatus `json:"status"`
}

// Locator returns the retrieval locator to record for this report.
func (a *ReportedAsset) Locator() string {
	if a.MagnetLink != "" {
		return a.MagnetLink
	}
	return a.URL
}

// Summary partitions a processed batch into three disjoint asset-id lists.
type Summary struct {
	Updated      []string `json:"updated_rescues"`
	Inserted     []string `json:"inserted_rescues"`
	NotCommitted []string `json:"not_committed_rescues"`
}

func newSummary() *Summary {
	return &Summary{
		Updated:      []string{},
		Inserted:     []string{},
		NotCommitted: []string{},
	}
}

// Committed reports whether at least one row was durably written.
func (s *Summary) Committed() bool {
	return len(s.Updated)+len(s.Inserted) > 0
}

// Consistency-guard errors. A batch failing any of these is rejected whole,
// before any row is written.
var (
	ErrUnknownRescuer   = errors.New("unknown rescuer")
	ErrUnknownAsset     = errors.New("unknown asset")
	ErrAssetURLMismatch = errors.New("asset url does not match catalog")
	ErrBadAssetID       = errors.New("malformed asset id")
)

// Catalog is the store access the reconciler needs.
type Catalog interface {
	RescuerExists(ctx context.Context, rescuerID int64) (bool, error)
	AssetsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Asset, error)
	GetRescue(ctx context.Context, rescuerID, assetID int64) (*domain.Rescue, error)
	InsertRescue(ctx context.Context, rescue *domain.Rescue) error
	UpdateRescue(ctx context.Context, rescue *domain.Rescue) error
}

// EventSink publishes rescue report events. May be nil.
type EventSink interface {
	RescuesReported(rescuerID int64, summary *Summary)
}

// Reconciler upserts rescue outcomes into the catalog.
type Reconciler struct {
	catalog Catalog
	events  EventSink
	logger  logger.Logger
}

// NewReconciler creates a Reconciler. events may be nil.
func NewReconciler(catalog Catalog, events EventSink, log logger.Logger) *Reconciler {
	return &Reconciler{
		catalog: catalog,
		events:  events,
		logger:  log,
	}
}

// UpsertRescues validates the batch against the catalog, then upserts each
// report keyed by (rescuer, asset). Validation failures reject the whole
// batch before anything is written. Each row commits independently: a row
// failure lands in NotCommitted and never blocks its siblings.
func (r *Reconciler) UpsertRescues(
	ctx context.Context,
	rescuerID int64,
	reported []ReportedAsset,
) (*Summary, error) {
	exists, err := r.catalog.RescuerExists(ctx, rescuerID)
	if err != nil {
		return nil, fmt.Errorf("check rescuer: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRescuer, rescuerID)
	}

	assetIDs, err := parseAssetIDs(reported)
	if err != nil {
		return nil, err
	}

	catalogAssets, err := r.catalog.AssetsByIDs(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	if err := checkConsistency(reported, assetIDs, catalogAssets); err != nil {
		return nil, err
	}

	summary := newSummary()
	for i, report := range reported {
		r.upsertOne(ctx, rescuerID, assetIDs[i], &report, summary)
	}

	if r.events != nil {
		r.events.RescuesReported(rescuerID, summary)
	}

	r.logger.Info("Rescue batch reconciled",
		logger.Int64("rescuer_id", rescuerID),
		logger.Int("updated", len(summary.Updated)),
		logger.Int("inserted", len(summary.Inserted)),
		logger.Int("not_committed", len(summary.NotCommitted)),
	)

	return summary, nil
}

func (r *Reconciler) upsertOne(
	ctx context.Context,
	rescuerID, assetID int64,
	report *ReportedAsset,
	summary *Summary,
) {
	existing, err := r.catalog.GetRescue(ctx, rescuerID, assetID)
	if err != nil {
		r.logger.Error("Rescue lookup failed",
			logger.Int64("asset_id", assetID),
			logger.Error(err),
		)
		summary.NotCommitted = append(summary.NotCommitted, report.AssetID)
		return
	}

	rescue := &domain.Rescue{
		AssetID:   assetID,
		RescuerID: rescuerID,
		Locator:   report.Locator(),
		Status:    report.Status,
	}

	if existing != nil {
		if err := r.catalog.UpdateRescue(ctx, rescue); err != nil {
			r.logger.Error("Rescue update failed",
				logger.Int64("asset_id", assetID),
				logger.Error(err),
			)
			summary.NotCommitted = append(summary.NotCommitted, report.AssetID)
			return
		}
		summary.Updated = append(summary.Updated, report.AssetID)
		return
	}

	if err := r.catalog.InsertRescue(ctx, rescue); err != nil {
		r.logger.Error("Rescue insert failed",
			logger.Int64("asset_id", assetID),
			logger.Error(err),
		)
		summary.NotCommitted = append(summary.NotCommitted, report.AssetID)
		return
	}
	summary.Inserted = append(summary.Inserted, report.AssetID)
}

func parseAssetIDs(reported []ReportedAsset) ([]int64, error) {
	ids := make([]int64, len(reported))
	for i, report := range reported {
		id, err := strconv.ParseInt(report.AssetID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadAssetID, report.AssetID)
		}
		ids[i] = id
	}
	return ids, nil
}

// checkConsistency guards against stale or tampered client state: every
// reported asset must exist and its URL must match the catalog record.
func checkConsistency(
	reported []ReportedAsset,
	assetIDs []int64,
	catalogAssets map[int64]domain.Asset,
) error {
	for i, report := range reported {
		asset, ok := catalogAssets[assetIDs[i]]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAsset, report.AssetID)
		}
		if asset.URL != report.URL {
			return fmt.Errorf("%w: asset %s", ErrAssetURLMismatch, report.AssetID)
		}
	}
	return nil
}
