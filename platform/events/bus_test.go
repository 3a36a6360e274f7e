package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"callcenter_backend/platform/logger"
)

type sampleEvent struct {
	BaseEvent
}

func (sampleEvent) EventName() string { return "test.sample" }

func TestPublishReachesAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		bus.Subscribe("test.sample", HandlerFunc(func(ctx context.Context, event Event) error {
			calls.Add(1)
			return nil
		}))
	}

	bus.Publish(context.Background(), sampleEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	first := errors.New("first")

	bus.Subscribe("test.sample", HandlerFunc(func(ctx context.Context, event Event) error { return first }))
	bus.Subscribe("test.sample", HandlerFunc(func(ctx context.Context, event Event) error { return nil }))

	err := bus.PublishSync(context.Background(), sampleEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, first) {
		t.Fatalf("expected joined error to contain first handler error, got %v", err)
	}
}
