package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jee-coach/tutor/internal/domain/shared"
)

// DefaultChannel is the Pub/Sub channel events are mirrored to.
const DefaultChannel = "tutor:events"

// Envelope is the wire form of a mirrored event.
type Envelope struct {
	Type        shared.EventType `json:"type"`
	AggregateID string           `json:"aggregate_id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Payload     map[string]any   `json:"payload"`
}

// RedisMirror republishes events on a Redis channel so a dashboard or a
// second process can follow sessions live.
type RedisMirror struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

// NewRedisMirror creates a mirror. An empty channel uses DefaultChannel.
func NewRedisMirror(client *redis.Client, channel string) *RedisMirror {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisMirror{client: client, channel: channel, timeout: 2 * time.Second}
}

// Handle is a shared.EventHandler; subscribe it with SubscribeAll.
func (m *RedisMirror) Handle(event shared.Event) error {
	data, err := json.Marshal(Envelope{
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.client.Publish(ctx, m.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.channel, err)
	}
	return nil
}
