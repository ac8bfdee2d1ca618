// Package domain holds the catalog entities and wire shapes shared by the
// ranker and dispatcher services.
package domain

import "time"

// Organization is a data.gov publishing organization. Immutable once created.
type Organization struct {
	ID        int64     `json:"id"         db:"id"`
	DgID      string    `json:"dg_id"      db:"dg_id"`
	DgName    string    `json:"dg_name"    db:"dg_name"`
	DgTitle   string    `json:"dg_title"   db:"dg_title"`
	DgCreated time.Time `json:"dg_created" db:"dg_created"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Dataset is a government open-data publication belonging to one organization.
// DgMetadataModified drives upsert conflict resolution in the ingestion
// pipeline: the newer record wins.
type Dataset struct {
	ID                  int64     `json:"id"                     db:"id"`
	DgID                string    `json:"dg_id"                  db:"dg_id"`
	DgName              string    `json:"dg_name"                db:"dg_name"`
	DgTitle             string    `json:"dg_title"               db:"dg_title"`
	DgNotes             string    `json:"dg_notes"               db:"dg_notes"`
	DgMetadataModified  time.Time `json:"dg_metadata_modified"   db:"dg_metadata_modified"`
	AccessDirectDlCount int       `json:"access_direct_dl_count" db:"access_direct_dl_count"`
	AccessTotalCount    int       `json:"access_total_count"     db:"access_total_count"`
	OrganizationID      int64     `json:"organization_id"        db:"organization_id"`
	CreatedAt           time.Time `json:"created_at"             db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"             db:"updated_at"`
}

// Resource is one downloadable item of a dataset. ResourceType is derived
// deterministically from the URL shape, see ClassifyURL.
type Resource struct {
	ID            int64     `json:"id"            db:"id"`
	DgID          string    `json:"dg_id"         db:"dg_id"`
	DgName        string    `json:"dg_name"       db:"dg_name"`
	DgDescription string    `json:"dg_description" db:"dg_description"`
	DgURL         string    `json:"dg_url"        db:"dg_url"`
	ResourceType  string    `json:"resource_type" db:"resource_type"`
	DatasetID     int64     `json:"dataset_id"    db:"dataset_id"`
	CreatedAt     time.Time `json:"created_at"    db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"    db:"updated_at"`
}

// Asset is one physical object to download. Size is nil until first probed.
type Asset struct {
	ID        int64     `json:"id"         db:"id"`
	URL       string    `json:"url"        db:"url"`
	SizeMB    *float64  `json:"size_mb"    db:"size_mb"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Rescuer is an identified volunteer node. A rescuer must exist before any
// rescue referencing it is accepted.
type Rescuer struct {
	ID        int64     `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RescueStatus is the reported outcome of a rescue attempt.
type RescueStatus string

const (
	RescueSuccess RescueStatus = "success"
	RescueFail    RescueStatus = "fail"
)

// Valid reports whether s is a known rescue status.
func (s RescueStatus) Valid() bool {
	return s == RescueSuccess || s == RescueFail
}

// Rescue is a volunteer's reported outcome for one asset. One row per
// (asset, rescuer) pair; re-reports update the row in place.
type Rescue struct {
	ID        int64        `json:"id"         db:"id"`
	AssetID   int64        `json:"asset_id"   db:"asset_id"`
	RescuerID int64        `json:"rescuer_id" db:"rescuer_id"`
	Locator   string       `json:"locator"    db:"locator"`
	Status    RescueStatus `json:"status"     db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// DatasetRank is one row of the append-only ranking log. The current rank of
// a dataset is its row with the latest UpdatedAt.
type DatasetRank struct {
	ID         int64     `json:"id"          db:"id"`
	DatasetID  int64     `json:"dataset_id"  db:"dataset_id"`
	RankingID  string    `json:"ranking_id"  db:"ranking_id"`
	EventCount int64     `json:"event_count" db:"event_count"`
	Rank       int       `json:"rank"        db:"rank"`
	UpdatedAt  time.Time `json:"updated_at"  db:"updated_at"`
}
