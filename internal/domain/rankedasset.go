package domain

import (
	"errors"
	"net/url"
	"regexp"
)

// RankedAsset is one entry of the ranked worklist served by the ranker and
// consumed by the dispatcher. Priority 1 is the most urgent. SizeMB is nil
// when the asset has never been probed. URL is the rescue locator when one
// exists, otherwise the original resource locator.
type RankedAsset struct {
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Priority   int      `json:"priority"`
	SizeMB     *float64 `json:"size_mb"`
	DatasetID  string   `json:"ds_id"`
	ResourceID string   `json:"res_id"`
	AssetID    string   `json:"asset_id"`
	URL        string   `json:"url"`
}

// HasKnownSize reports whether the asset size has been probed.
func (a *RankedAsset) HasKnownSize() bool {
	return a.SizeMB != nil
}

// AllocationResult is one node's assigned subset of ranked assets for a
// given space budget.
type AllocationResult struct {
	NodeID          string        `json:"node_id"`
	AllocatedSizeMB float64       `json:"allocated_size_mb"`
	Assets          []RankedAsset `json:"assets"`
	AllocationID    string        `json:"allocation_id"`
}

// magnetRegex matches content-addressed magnet locators produced by
// rescuers: magnet:?xt=urn:<protocol>:<1-40 alphanumeric hash chars>.
var magnetRegex = regexp.MustCompile(`^magnet:\?xt=urn:[a-z0-9]+:[a-zA-Z0-9]{1,40}`)

// ErrInvalidLocator is returned for a value that is neither a well-formed
// HTTP(S) URL nor a magnet link.
var ErrInvalidLocator = errors.New("invalid magnet link or URL format")

// ValidateLocator accepts either a well-formed HTTP(S) URL or a magnet link.
func ValidateLocator(raw string) error {
	if magnetRegex.MatchString(raw) {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidLocator
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrInvalidLocator
	}
	return nil
}
