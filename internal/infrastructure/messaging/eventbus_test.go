package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jee-coach/tutor/internal/domain/shared"
)

var at = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	var got []string
	require.NoError(t, bus.Subscribe(shared.EventSessionStarted, func(e shared.Event) error {
		got = append(got, "typed:"+e.AggregateID())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+string(e.EventType()))
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("riya", "s-1", at)))
	require.NoError(t, bus.Publish(shared.NewPlanGeneratedEvent("riya", "Physics", 20, 10, at)))

	assert.Equal(t, []string{"typed:riya", "all:session.started", "all:plan.generated"}, got)
	assert.Equal(t, int64(1), bus.Metrics().Published[shared.EventSessionStarted])
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))

	called := false
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		called = true
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewSessionStartedEvent("riya", "s-1", at)))
	assert.True(t, called)

	m := bus.Metrics()
	assert.Equal(t, int64(2), m.Failed)
	assert.Equal(t, int64(1), m.Succeeded)
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(Config{AsyncMode: true, WorkerPoolSize: 2})

	var mu sync.Mutex
	n := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		n++
		mu.Unlock()
		return nil
	}))
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("riya", "s", at)))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	assert.LessOrEqual(t, n, 5)
	mu.Unlock()
	assert.ErrorIs(t, bus.Publish(shared.NewSessionStartedEvent("riya", "s", at)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventSessionEnded, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestRedisMirror_Publishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	mirror := NewRedisMirror(client, "")
	require.NoError(t, mirror.Handle(shared.NewSessionStartedEvent("riya", "s-1", at)))

	select {
	case msg := <-sub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, shared.EventSessionStarted, env.Type)
		assert.Equal(t, "riya", env.AggregateID)
		assert.Equal(t, "s-1", env.Payload["session_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no message mirrored")
	}
}
