// Package ranking computes dataset rescue priority from catalog state.
package ranking

import (
	"sort"
	"time"
)

// DatasetSnapshot is the per-dataset view the engine ranks over: completion
// inputs, the latest popularity signal, and the previously recorded rank.
type DatasetSnapshot struct {
	DatasetID        int64
	ResourceCount    int
	RescuedResources int
	EventCount       int64
	// CurrentRank is the rank from the dataset's latest DatasetRank row,
	// or 0 if the dataset has never been ranked.
	CurrentRank int
}

// RankRecord is one newly emitted row of the append-only ranking log.
type RankRecord struct {
	DatasetID  int64     `json:"dataset_id"`
	RankingID  string    `json:"ranking_id"`
	EventCount int64     `json:"event_count"`
	PrevRank   int       `json:"db_rank"`
	Rank       int       `json:"rank"`
	UpdatedAt  time.Time `json:"updated"`
}

// CompletionPredicate decides whether a dataset is fully rescued. It is
// pluggable because the catalog populates the resource/asset join unevenly
// across ingestion variants.
type CompletionPredicate func(DatasetSnapshot) bool

// DefaultCompletion treats a dataset as complete when every distinct resource
// has at least one asset with a rescue locator. A dataset with no resources
// is vacuously complete.
func DefaultCompletion(s DatasetSnapshot) bool {
	return s.RescuedResources >= s.ResourceCount
}

// rankingIDLayout formats the shared batch identifier as a UTC day code.
const rankingIDLayout = "20060102"

// Engine computes dataset rankings. It is pure computation over a snapshot;
// persistence belongs to the caller.
type Engine struct {
	complete CompletionPredicate
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompletion overrides the completion predicate.
func WithCompletion(p CompletionPredicate) Option {
	return func(e *Engine) {
		e.complete = p
	}
}

// WithClock overrides the engine clock. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a ranking engine with the default completion predicate.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		complete: DefaultCompletion,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeRank assigns dense ranks 1..N over the snapshot, incomplete datasets
// first, then by descending event count, ties broken by ascending dataset id.
// It returns a record for every dataset whose rank changed; unchanged
// datasets are not re-emitted. All returned records share one UpdatedAt and
// one RankingID so a batch is observed whole or not at all.
func (e *Engine) ComputeRank(snapshot []DatasetSnapshot) []RankRecord {
	ordered := make([]DatasetSnapshot, len(snapshot))
	copy(ordered, snapshot)

	completed := make(map[int64]bool, len(ordered))
	for _, s := range ordered {
		completed[s.DatasetID] = e.complete(s)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := completed[ordered[i].DatasetID], completed[ordered[j].DatasetID]
		if ci != cj {
			return !ci
		}
		if ordered[i].EventCount != ordered[j].EventCount {
			return ordered[i].EventCount > ordered[j].EventCount
		}
		return ordered[i].DatasetID < ordered[j].DatasetID
	})

	updatedAt := e.now().UTC()
	rankingID := updatedAt.Format(rankingIDLayout)

	records := make([]RankRecord, 0, len(ordered))
	for idx, s := range ordered {
		rank := idx + 1
		if rank == s.CurrentRank {
			continue
		}
		records = append(records, RankRecord{
			DatasetID:  s.DatasetID,
			RankingID:  rankingID,
			EventCount: s.EventCount,
			PrevRank:   s.CurrentRank,
			Rank:       rank,
			UpdatedAt:  updatedAt,
		})
	}

	return records
}
