package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"vibedesk/internal/domain"
	"vibedesk/internal/infra/logger"
)

func TestBusTypedSubscription(t *testing.T) {
	b := New(logger.Discard())
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var got domain.Event
	b.Subscribe(domain.EventStreamDelta, func(_ context.Context, ev domain.Event) {
		got = ev
		wg.Done()
	})

	b.Publish(context.Background(), domain.Event{Type: domain.EventStreamCompleted, SessionID: "ignored"})
	b.Publish(context.Background(), domain.Event{Type: domain.EventStreamDelta, SessionID: "s1"})
	wg.Wait()

	if got.SessionID != "s1" {
		t.Fatalf("got event for session %q, want s1", got.SessionID)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	b := New(logger.Discard())
	defer b.Close()

	var mu sync.Mutex
	var types []domain.EventType
	var wg sync.WaitGroup
	wg.Add(2)
	b.SubscribeAll(func(_ context.Context, ev domain.Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
		wg.Done()
	})

	b.Publish(context.Background(), domain.Event{Type: domain.EventStreamStarted})
	b.Publish(context.Background(), domain.Event{Type: domain.EventStreamError})
	wg.Wait()

	if len(types) != 2 {
		t.Fatalf("received %d events, want 2", len(types))
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := New(logger.Discard())
	defer b.Close()

	var count int
	var mu sync.Mutex
	unsub := b.Subscribe(domain.EventStreamDelta, func(context.Context, domain.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsub()

	b.Publish(context.Background(), domain.Event{Type: domain.EventStreamDelta})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("handler ran %d times after unsubscribe", count)
	}
}

func TestBusRecoverFromPanic(t *testing.T) {
	b := New(logger.Discard())
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe(domain.EventStreamDelta, func(context.Context, domain.Event) {
		panic("handler bug")
	})
	b.Subscribe(domain.EventStreamDelta, func(context.Context, domain.Event) {
		wg.Done()
	})

	// The panicking handler must not take down the process or starve the
	// other subscriber.
	b.Publish(context.Background(), domain.Event{Type: domain.EventStreamDelta})
	wg.Wait()
}

func TestBusClosedDropsPublishes(t *testing.T) {
	b := New(logger.Discard())

	var count int
	var mu sync.Mutex
	b.Subscribe(domain.EventStreamDelta, func(context.Context, domain.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Close()
	b.Publish(context.Background(), domain.Event{Type: domain.EventStreamDelta})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Fatalf("handler ran %d times after close", count)
	}
}
