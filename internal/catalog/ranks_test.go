package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/ranking"
)

func newRankRepo(t *testing.T) (*RankRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRankRepository(db, logger.NewNopLogger()), mock
}

func TestDatasetSnapshots(t *testing.T) {
	repo, mock := newRankRepo(t)

	mock.ExpectQuery("SELECT d.id").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "resource_count", "rescued_resources", "event_count", "current_rank"},
		).
			AddRow(int64(1), 3, 1, int64(120), 2).
			AddRow(int64(2), 0, 0, int64(0), 0))

	snapshots, err := repo.DatasetSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, ranking.DatasetSnapshot{
		DatasetID:        1,
		ResourceCount:    3,
		RescuedResources: 1,
		EventCount:       120,
		CurrentRank:      2,
	}, snapshots[0])
	assert.Equal(t, 0, snapshots[1].CurrentRank)
}

func TestInsertRankBatch(t *testing.T) {
	repo, mock := newRankRepo(t)

	now := time.Now().UTC()
	records := []ranking.RankRecord{
		{DatasetID: 1, RankingID: "20260314", EventCount: 10, Rank: 1, UpdatedAt: now},
		{DatasetID: 2, RankingID: "20260314", EventCount: 5, Rank: 2, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dataset_ranks").
		WithArgs(int64(1), "20260314", int64(10), 1, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO dataset_ranks").
		WithArgs(int64(2), "20260314", int64(5), 2, now).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.InsertRankBatch(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRankBatch_EmptyIsNoop(t *testing.T) {
	repo, mock := newRankRepo(t)

	require.NoError(t, repo.InsertRankBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRankBatch_FailureRollsBack(t *testing.T) {
	repo, mock := newRankRepo(t)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dataset_ranks").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.InsertRankBatch(context.Background(), []ranking.RankRecord{
		{DatasetID: 1, RankingID: "20260314", Rank: 1, UpdatedAt: now},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRankedAssets(t *testing.T) {
	repo, mock := newRankRepo(t)

	mock.ExpectQuery("SELECT res.dg_description").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(
			[]string{"dg_description", "dg_name", "rank", "size_mb", "ds_id", "res_id", "asset_id", "url"},
		).
			AddRow("daily air quality", "air.csv", 1, 12.5, "1", "2", "3", "https://example.org/air.csv").
			AddRow("census tracts", "tracts.zip", 2, nil, "4", "5", "6", "https://example.org/tracts.zip"))

	assets, err := repo.RankedAssets(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, "3", assets[0].AssetID)
	assert.Equal(t, 1, assets[0].Priority)
	require.NotNil(t, assets[0].SizeMB)
	assert.InDelta(t, 12.5, *assets[0].SizeMB, 0.001)

	assert.Nil(t, assets[1].SizeMB)
	assert.Equal(t, "https://example.org/tracts.zip", assets[1].URL)
}

// The already-rescued demotion must key on the resource, not the asset: an
// unrescued asset of a partially rescued resource belongs in the rescued
// tail, not among the untouched resources.
func TestRankedAssets_OrdersByResourceLevelRescue(t *testing.T) {
	repo, mock := newRankRepo(t)

	mock.ExpectQuery(`(?s)ORDER BY EXISTS \(\s*SELECT 1\s*FROM resource_assets rra\s*` +
		`JOIN rescues rrc ON rrc\.asset_id = rra\.asset_id\s*` +
		`WHERE rra\.resource_id = res\.id\s*` +
		`AND rrc\.status = 'success'`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(
			[]string{"dg_description", "dg_name", "rank", "size_mb", "ds_id", "res_id", "asset_id", "url"},
		).
			AddRow("daily air quality", "air.csv", 1, 12.5, "1", "2", "3", "https://example.org/air.csv"))

	assets, err := repo.RankedAssets(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
