// Package events publishes allocation and rescue lifecycle events to Redis
// Streams for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/data-rescue/internal/domain"
	"github.com/jonesrussell/data-rescue/internal/logger"
	"github.com/jonesrussell/data-rescue/internal/reconcile"
)

// StreamName is the Redis stream carrying dispatcher events.
const StreamName = "data-rescue:dispatcher:events"

// asyncPublishTimeout bounds async publish operations.
const asyncPublishTimeout = 5 * time.Second

// EventType identifies a dispatcher lifecycle event.
type EventType string

const (
	// EventAllocationCreated is emitted after an allocation is logged.
	EventAllocationCreated EventType = "allocation.created"
	// EventRescuesReported is emitted after a rescue batch is reconciled.
	EventRescuesReported EventType = "rescues.reported"
)

// Event is the stream payload.
type Event struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	AllocationID    string  `json:"allocation_id,omitempty"`
	NodeID          string  `json:"node_id,omitempty"`
	AssetCount      int     `json:"asset_count,omitempty"`
	AllocatedSizeMB float64 `json:"allocated_size_mb,omitempty"`

	RescuerID    int64 `json:"rescuer_id,omitempty"`
	Updated      int   `json:"updated,omitempty"`
	Inserted     int   `json:"inserted,omitempty"`
	NotCommitted int   `json:"not_committed,omitempty"`
}

// Publisher publishes events to Redis Streams. A nil Publisher is a no-op,
// so callers never need to guard event emission.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher creates an event publisher. Returns nil if client is nil.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{
		client: client,
		log:    log,
	}
}

// Publish sends an event to the stream.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]any{
			"event": string(payload),
		},
	})
	if publishErr := result.Err(); publishErr != nil {
		p.log.Error("Failed to publish event",
			logger.String("event_type", string(event.EventType)),
			logger.Error(publishErr),
		)
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.log.Debug("Event published",
		logger.String("event_type", string(event.EventType)),
		logger.String("stream_id", result.Val()),
	)

	return nil
}

// AllocationCreated publishes an allocation.created event asynchronously.
func (p *Publisher) AllocationCreated(result *domain.AllocationResult) {
	if p == nil {
		return
	}
	p.publishAsync(Event{
		EventType:       EventAllocationCreated,
		AllocationID:    result.AllocationID,
		NodeID:          result.NodeID,
		AssetCount:      len(result.Assets),
		AllocatedSizeMB: result.AllocatedSizeMB,
	})
}

// RescuesReported publishes a rescues.reported event asynchronously.
func (p *Publisher) RescuesReported(rescuerID int64, summary *reconcile.Summary) {
	if p == nil {
		return
	}
	p.publishAsync(Event{
		EventType:    EventRescuesReported,
		RescuerID:    rescuerID,
		Updated:      len(summary.Updated),
		Inserted:     len(summary.Inserted),
		NotCommitted: len(summary.NotCommitted),
	})
}

func (p *Publisher) publishAsync(event Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.log.Error("Async publish failed",
				logger.String("event_type", string(event.EventType)),
				logger.Error(err),
			)
		}
	}()
}
