package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/data-rescue/internal/allocation"
	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/handlers"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

type stubSource struct {
	assets []domain.RankedAsset
	err    error
}

func (s *stubSource) GetRanking(_ context.Context) ([]domain.RankedAsset, error) {
	return s.assets, s.err
}

type stubCache struct{}

func (stubCache) Store(_ context.Context, _ []domain.RankedAsset) error { return nil }
func (stubCache) Load(_ context.Context) ([]domain.RankedAsset, error) {
	return nil, allocation.ErrCacheMiss
}

type stubAllocLog struct {
	err error
}

func (s *stubAllocLog) AppendAllocations(_ context.Context, _, _ string, _ []domain.RankedAsset) error {
	return s.err
}

func sized(mb float64) *float64 { return &mb }

func newDispatchRouter(source *stubSource, allocLog *stubAllocLog) *gin.Engine {
	gin.SetMode(gin.TestMode)

	engine := allocation.NewEngine(source, stubCache{}, allocLog, nil, logger.NewNopLogger(), 0)
	handler := handlers.NewDispatchHandler(engine, logger.NewNopLogger())

	router := gin.New()
	router.POST("/dispatch", handler.Dispatch)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestDispatch_AllocatesAssets(t *testing.T) {
	source := &stubSource{assets: []domain.RankedAsset{
		{AssetID: "1", Priority: 1, SizeMB: sized(100), URL: "https://example.org/a.csv"},
		{AssetID: "2", Priority: 2, SizeMB: sized(2048), URL: "https://example.org/b.zip"},
	}}
	router := newDispatchRouter(source, &stubAllocLog{})

	recorder := postJSON(t, router, "/dispatch", gin.H{
		"name":          "fast-node",
		"free_space_gb": 1.0,
		"node_id":       "node-1",
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Status       string `json:"status"`
		AllocationID string `json:"allocation_id"`
		ReceivedData struct {
			NodeID string `json:"node_id"`
		} `json:"received_data"`
		Asset []domain.RankedAsset `json:"asset"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.AllocationID)
	assert.Equal(t, "node-1", resp.ReceivedData.NodeID)
	// 1 GB budget holds the 100 MB asset but not the 2 GB one.
	require.Len(t, resp.Asset, 1)
	assert.Equal(t, "1", resp.Asset[0].AssetID)
}

func TestDispatch_NothingFitsIs422(t *testing.T) {
	source := &stubSource{assets: []domain.RankedAsset{
		{AssetID: "1", Priority: 1, SizeMB: sized(5000), URL: "https://example.org/a.csv"},
	}}
	router := newDispatchRouter(source, &stubAllocLog{})

	recorder := postJSON(t, router, "/dispatch", gin.H{
		"name":          "small-node",
		"free_space_gb": 1.0,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "no_assets")
}

func TestDispatch_MissingFieldsIs422(t *testing.T) {
	router := newDispatchRouter(&stubSource{}, &stubAllocLog{})

	recorder := postJSON(t, router, "/dispatch", gin.H{"description": "no name or space"})

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestDispatch_ZeroFreeSpaceIs422(t *testing.T) {
	router := newDispatchRouter(&stubSource{}, &stubAllocLog{})

	recorder := postJSON(t, router, "/dispatch", gin.H{
		"name":          "node",
		"free_space_gb": 0,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestDispatch_LogFailureIs500(t *testing.T) {
	source := &stubSource{assets: []domain.RankedAsset{
		{AssetID: "1", Priority: 1, SizeMB: sized(10), URL: "https://example.org/a.csv"},
	}}
	router := newDispatchRouter(source, &stubAllocLog{err: errors.New("insert failed")})

	recorder := postJSON(t, router, "/dispatch", gin.H{
		"name":          "node",
		"free_space_gb": 1.0,
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
