package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

func newRescueRepo(t *testing.T) (*RescueRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRescueRepository(db, logger.NewNopLogger()), mock
}

func TestRescuerExists(t *testing.T) {
	repo, mock := newRescueRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM rescuers WHERE id = $1)`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.RescuerExists(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetsByIDs(t *testing.T) {
	repo, mock := newRescueRepo(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, url, size_mb, created_at, updated_at FROM assets WHERE id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "size_mb", "created_at", "updated_at"}).
			AddRow(int64(1), "https://example.org/a.csv", 12.5, now, now).
			AddRow(int64(2), "https://example.org/b.zip", nil, now, now))

	assets, err := repo.AssetsByIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, assets, 2)

	require.NotNil(t, assets[1].SizeMB)
	assert.InDelta(t, 12.5, *assets[1].SizeMB, 0.001)
	assert.Nil(t, assets[2].SizeMB)

	// Unknown id 3 is simply absent.
	_, ok := assets[3]
	assert.False(t, ok)
}

func TestAssetsByIDs_EmptyInput(t *testing.T) {
	repo, _ := newRescueRepo(t)

	assets, err := repo.AssetsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestGetRescue_NoRowReturnsNil(t *testing.T) {
	repo, mock := newRescueRepo(t)

	mock.ExpectQuery("SELECT id, asset_id, rescuer_id").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rescue, err := repo.GetRescue(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Nil(t, rescue)
}

func TestGetRescue_ReturnsRow(t *testing.T) {
	repo, mock := newRescueRepo(t)

	now := time.Now()
	mock.ExpectQuery("SELECT id, asset_id, rescuer_id").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "asset_id", "rescuer_id", "locator", "status", "created_at", "updated_at"},
		).AddRow(int64(10), int64(1), int64(7), "magnet:?xt=urn:btih:abc", "success", now, now))

	rescue, err := repo.GetRescue(context.Background(), 7, 1)
	require.NoError(t, err)
	require.NotNil(t, rescue)
	assert.Equal(t, domain.RescueSuccess, rescue.Status)
	assert.Equal(t, int64(10), rescue.ID)
}

func TestInsertRescue(t *testing.T) {
	repo, mock := newRescueRepo(t)

	mock.ExpectQuery("INSERT INTO rescues").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	rescue := &domain.Rescue{
		AssetID:   1,
		RescuerID: 7,
		Locator:   "magnet:?xt=urn:btih:abc",
		Status:    domain.RescueSuccess,
	}
	require.NoError(t, repo.InsertRescue(context.Background(), rescue))
	assert.Equal(t, int64(42), rescue.ID)
	assert.False(t, rescue.UpdatedAt.IsZero())
}

func TestUpdateRescue_NoRowFails(t *testing.T) {
	repo, mock := newRescueRepo(t)

	mock.ExpectExec("UPDATE rescues").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rescue := &domain.Rescue{AssetID: 1, RescuerID: 7, Status: domain.RescueFail}
	err := repo.UpdateRescue(context.Background(), rescue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no row")
}

func TestUpdateRescue(t *testing.T) {
	repo, mock := newRescueRepo(t)

	mock.ExpectExec("UPDATE rescues").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rescue := &domain.Rescue{AssetID: 1, RescuerID: 7, Status: domain.RescueSuccess}
	require.NoError(t, repo.UpdateRescue(context.Background(), rescue))
	assert.False(t, rescue.UpdatedAt.IsZero())
}
