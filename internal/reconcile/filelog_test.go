package reconcile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

func newTestRescueLog(t *testing.T) *RescueLog {
	t.Helper()
	return NewRescueLog(filepath.Join(t.TempDir(), "rescues.json"), logger.NewNopLogger())
}

func TestRescueLog_FirstUpsertInserts(t *testing.T) {
	log := newTestRescueLog(t)

	summary, err := log.Upsert("7", []ReportedAsset{
		report("154562", "https://example.org/a.csv", "magnet:?xt=urn:btih:abc123", domain.RescueSuccess),
		report("71465", "https://example.org/b.zip", "", domain.RescueFail),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"154562", "71465"}, summary.Inserted)
	assert.Empty(t, summary.Updated)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "magnet:?xt=urn:btih:abc123", entries[0].Locator)
	assert.Equal(t, "https://example.org/b.zip", entries[1].Locator)
}

func TestRescueLog_SecondReportUpdatesInPlace(t *testing.T) {
	log := newTestRescueLog(t)

	_, err := log.Upsert("7", []ReportedAsset{
		report("154562", "https://example.org/a.csv", "", domain.RescueFail),
	})
	require.NoError(t, err)

	summary, err := log.Upsert("7", []ReportedAsset{
		report("154562", "https://example.org/a.csv", "magnet:?xt=urn:btih:abc123", domain.RescueSuccess),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"154562"}, summary.Updated)
	assert.Empty(t, summary.Inserted)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RescueSuccess, entries[0].Status)
	assert.Equal(t, "magnet:?xt=urn:btih:abc123", entries[0].Locator)
}

func TestRescueLog_DuplicateAssetInBatchUpdatesInsertedRow(t *testing.T) {
	log := newTestRescueLog(t)

	summary, err := log.Upsert("154562", []ReportedAsset{
		report("71465", "https://example.org/b.zip", "", domain.RescueFail),
		report("71465", "https://example.org/b.zip", "magnet:?xt=urn:btih:abc123", domain.RescueSuccess),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"71465"}, summary.Inserted)
	assert.Equal(t, []string{"71465"}, summary.Updated)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RescueSuccess, entries[0].Status)
	assert.Equal(t, "magnet:?xt=urn:btih:abc123", entries[0].Locator)
}

func TestRescueLog_SameAssetDifferentRescuersKeepsBoth(t *testing.T) {
	log := newTestRescueLog(t)

	_, err := log.Upsert("7", []ReportedAsset{
		report("154562", "https://example.org/a.csv", "", domain.RescueSuccess),
	})
	require.NoError(t, err)

	summary, err := log.Upsert("8", []ReportedAsset{
		report("154562", "https://example.org/a.csv", "", domain.RescueSuccess),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"154562"}, summary.Inserted)

	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRescueLog_UnrelatedEntriesPassThrough(t *testing.T) {
	log := newTestRescueLog(t)

	_, err := log.Upsert("7", []ReportedAsset{
		report("1", "https://example.org/a.csv", "", domain.RescueSuccess),
		report("2", "https://example.org/b.csv", "", domain.RescueSuccess),
	})
	require.NoError(t, err)

	_, err = log.Upsert("8", []ReportedAsset{
		report("1", "https://example.org/a.csv", "", domain.RescueFail),
	})
	require.NoError(t, err)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Rescuer 7's rows are untouched by rescuer 8's report.
	assert.Equal(t, "7", entries[0].RescuerID)
	assert.Equal(t, domain.RescueSuccess, entries[0].Status)
}

func TestRescueLog_MissingFileReadsEmpty(t *testing.T) {
	log := newTestRescueLog(t)

	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
