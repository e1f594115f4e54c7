package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToSubscriber(t *testing.T) {
	b := New(Config{QueueSize: 8, Workers: 1}, nil)
	defer b.Shutdown()

	received := make(chan Event, 1)
	b.Subscribe(OrderAdded, func(ev Event) error {
		received <- ev
		return nil
	})

	b.Publish(New(OrderAdded, map[string]interface{}{"order_id": "o1"}))

	select {
	case ev := <-received:
		assert.Equal(t, OrderAdded, ev.Type)
		assert.Equal(t, "o1", ev.Data["order_id"])
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestBus_SubscribersOfOtherTypesNeverSee(t *testing.T) {
	b := New(Config{QueueSize: 8, Workers: 1}, nil)
	defer b.Shutdown()

	var sawTrade bool
	var mu sync.Mutex
	done := make(chan struct{})
	b.Subscribe(Trade, func(ev Event) error {
		mu.Lock()
		sawTrade = true
		mu.Unlock()
		return nil
	})
	b.Subscribe(OrderCancelled, func(ev Event) error {
		close(done)
		return nil
	})

	b.Publish(New(OrderCancelled, nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OrderCancelled subscriber never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, sawTrade)
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	b := New(Config{QueueSize: 8, Workers: 1}, nil)
	defer b.Shutdown()

	second := make(chan struct{})
	b.Subscribe(Trade, func(Event) error { return errors.New("boom") })
	b.Subscribe(Trade, func(Event) error {
		close(second)
		return nil
	})

	b.Publish(New(Trade, nil))

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second subscriber never ran after first errored")
	}
}

func TestBus_HandlerPanicDoesNotStopWorker(t *testing.T) {
	b := New(Config{QueueSize: 8, Workers: 1}, nil)
	defer b.Shutdown()

	done := make(chan struct{})
	b.Subscribe(Trade, func(Event) error { panic("boom") })
	b.Subscribe(Trade, func(Event) error {
		close(done)
		return nil
	})

	b.Publish(New(Trade, nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker died after a subscriber panic")
	}
}

func TestBus_TestModePublishIsNoOp(t *testing.T) {
	b := New(Config{TestMode: true}, nil)

	called := false
	b.Subscribe(Trade, func(Event) error {
		called = true
		return nil
	})

	b.Publish(New(Trade, nil))

	require.False(t, called)
}

func TestBus_ShutdownDrainsQueuedEvents(t *testing.T) {
	b := New(Config{QueueSize: 8, Workers: 1}, nil)

	var count int
	var mu sync.Mutex
	b.Subscribe(Trade, func(Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		b.Publish(New(Trade, nil))
	}
	b.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}
