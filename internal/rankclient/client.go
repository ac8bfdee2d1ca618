// Package rankclient is the dispatcher's transport to the ranker service.
// It is a pure transport concern: it fetches and decodes the ranking and
// propagates failures; the cache-fallback decision belongs to the caller.
package rankclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/retry"
)

// Connection pool bounds for the long-lived client.
const (
	defaultTimeout       = 30 * time.Second
	maxIdleConns         = 10
	maxConnsPerHost      = 10
	idleConnTimeout      = 90 * time.Second
	clientRetryAttempts  = 2
	clientRetryBaseDelay = 200 * time.Millisecond
)

// ErrUnexpectedStatus is returned when the ranker responds with a non-200
// status.
var ErrUnexpectedStatus = errors.New("unexpected ranking status")

// Client calls the ranker over a pooled HTTP connection. Create one per
// process and Close it on shutdown.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a ranking client for the given base URL. A zero timeout
// uses the default of 30s.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxIdleConnsPerHost: maxIdleConns,
				MaxConnsPerHost:     maxConnsPerHost,
				IdleConnTimeout:     idleConnTimeout,
			},
		},
		logger: log,
	}
}

// rankingResponse mirrors the ranker's wire format. Entries are kept raw so
// one malformed entry cannot fail the whole decode.
type rankingResponse struct {
	Asset []json.RawMessage `json:"asset"`
}

// GetRanking fetches the current ranking. Malformed entries are logged and
// skipped; transport and status errors are returned to the caller. Transient
// transport failures are retried once with backoff.
func (c *Client) GetRanking(ctx context.Context) ([]domain.RankedAsset, error) {
	var body []byte

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = clientRetryAttempts
	cfg.InitialDelay = clientRetryBaseDelay

	err := retry.Do(ctx, cfg, func() error {
		var fetchErr error
		body, fetchErr = c.fetchRanking(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	var decoded rankingResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode ranking response: %w", err)
	}

	assets := make([]domain.RankedAsset, 0, len(decoded.Asset))
	for _, raw := range decoded.Asset {
		var asset domain.RankedAsset
		if err := json.Unmarshal(raw, &asset); err != nil {
			c.logger.Warn("Skipping malformed ranking entry",
				logger.String("entry", string(raw)),
				logger.Error(err),
			)
			continue
		}
		if err := domain.ValidateLocator(asset.URL); err != nil {
			c.logger.Warn("Skipping ranking entry with invalid locator",
				logger.String("asset_id", asset.AssetID),
				logger.String("url", asset.URL),
			)
			continue
		}
		assets = append(assets, asset)
	}

	c.logger.Info("Ranking received",
		logger.Int("assets", len(assets)),
	)

	return assets, nil
}

func (c *Client) fetchRanking(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ranking", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build ranking request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request ranking: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ranking response: %w", err)
	}
	return body, nil
}

// Close releases the pooled connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
