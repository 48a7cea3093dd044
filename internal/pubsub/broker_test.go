package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testEvent EventType = "test"

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event[T]{}
}

func requireClosed[T any](t *testing.T, ch <-chan Event[T]) {
	t.Helper()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestBrokerPublishSubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker[string]()
	t.Cleanup(b.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s1 := b.Subscribe(ctx)
	s2 := b.Subscribe(ctx)
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(testEvent, "hello")

	for _, ch := range []<-chan Event[string]{s1, s2} {
		ev := receive(t, ch)
		require.Equal(t, testEvent, ev.Type)
		require.Equal(t, "hello", ev.Payload)
	}
}

func TestBrokerUnsubscribeOnContextDone(t *testing.T) {
	t.Parallel()

	b := NewBroker[int]()
	t.Cleanup(b.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	requireClosed(t, ch)
	require.Equal(t, 0, b.SubscriberCount())

	// Publishing with no subscribers is fine.
	b.Publish(testEvent, 1)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	t.Parallel()

	b := NewBrokerWithBuffer[int](1)
	t.Cleanup(b.Shutdown)

	ch := b.Subscribe(context.Background())
	b.Publish(testEvent, 1)
	b.Publish(testEvent, 2)

	require.Equal(t, 1, receive(t, ch).Payload)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestBrokerShutdown(t *testing.T) {
	t.Parallel()

	b := NewBroker[string]()
	ch := b.Subscribe(context.Background())

	b.Shutdown()
	requireClosed(t, ch)
	require.Equal(t, 0, b.SubscriberCount())

	// Idempotent, and later use is inert.
	b.Shutdown()
	b.Publish(testEvent, "ignored")
	late := b.Subscribe(context.Background())
	requireClosed(t, late)
}
