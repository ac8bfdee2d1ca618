package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

func TestAppendAllocations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewAllocationRepository(db, logger.NewNopLogger())

	size := 10.5
	assets := []domain.RankedAsset{
		{DatasetID: "1", ResourceID: "2", AssetID: "3", Priority: 1, SizeMB: &size},
		{DatasetID: "4", ResourceID: "5", AssetID: "6", Priority: 2},
	}

	mock.ExpectExec("INSERT INTO allocations").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = repo.AppendAllocations(context.Background(), "alloc-1", "node-1", assets)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAllocations_EmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewAllocationRepository(db, logger.NewNopLogger())

	require.NoError(t, repo.AppendAllocations(context.Background(), "alloc-1", "node-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
