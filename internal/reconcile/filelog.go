package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
)

// LogEntry is one row of the file-backed rescue log.
type LogEntry struct {
	RescuerID string              `json:"rescuer_id"`
	AssetID   string              `json:"asset_id"`
	Locator   string              `json:"locator"`
	Status    domain.RescueStatus `json:"status"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// RescueLog is the file-backed variant of the rescue upsert, for environments
// without the catalog store. It keeps the same updated/inserted partition
// semantics as the catalog reconciler and rewrites the log atomically: the
// new content lands in a temp file that replaces the log in one rename.
type RescueLog struct {
	path   string
	logger logger.Logger
	mu     sync.Mutex
}

// NewRescueLog creates a rescue log at the given path. The file is created
// on first upsert.
func NewRescueLog(path string, log logger.Logger) *RescueLog {
	return &RescueLog{
		path:   path,
		logger: log,
	}
}

// Upsert applies a batch of reports for one rescuer. Existing (rescuer,
// asset) entries are updated in place, genuinely new pairs are appended, and
// every other entry is carried over untouched.
func (l *RescueLog) Upsert(rescuerID string, reported []ReportedAsset) (*Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	summary := newSummary()

	// Index this rescuer's existing entries; everything else passes through.
	existing := make(map[string]int, len(entries))
	for i, entry := range entries {
		if entry.RescuerID == rescuerID {
			existing[entry.AssetID] = i
		}
	}

	for _, report := range reported {
		if idx, ok := existing[report.AssetID]; ok {
			entries[idx].Locator = report.Locator()
			entries[idx].Status = report.Status
			entries[idx].UpdatedAt = now
			summary.Updated = append(summary.Updated, report.AssetID)
			continue
		}

		entries = append(entries, LogEntry{
			RescuerID: rescuerID,
			AssetID:   report.AssetID,
			Locator:   report.Locator(),
			Status:    report.Status,
			UpdatedAt: now,
		})
		// Index the new row so a later report for the same asset in this
		// batch updates it instead of appending a duplicate.
		existing[report.AssetID] = len(entries) - 1
		summary.Inserted = append(summary.Inserted, report.AssetID)
	}

	if err := l.replace(entries); err != nil {
		return nil, err
	}

	l.logger.Info("Rescue log rewritten",
		logger.String("rescuer_id", rescuerID),
		logger.Int("updated", len(summary.Updated)),
		logger.Int("inserted", len(summary.Inserted)),
	)

	return summary, nil
}

// Entries returns the full current log.
func (l *RescueLog) Entries() ([]LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *RescueLog) load() ([]LogEntry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []LogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rescue log: %w", err)
	}
	if len(data) == 0 {
		return []LogEntry{}, nil
	}

	var entries []LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode rescue log: %w", err)
	}
	return entries, nil
}

// replace writes the full log to a temp file in the same directory and
// renames it over the old one, so a crashed write never leaves a partial log.
func (l *RescueLog) replace(entries []LogEntry) error {
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rescue log: %w", err)
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".rescue-log-*")
	if err != nil {
		return fmt.Errorf("create temp rescue log: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp rescue log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp rescue log: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace rescue log: %w", err)
	}
	return nil
}
