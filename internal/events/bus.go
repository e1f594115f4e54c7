package events

import (
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Handler is the subscriber capability: a single method invoked
// synchronously by a bus worker for every event of a type it registered
// for. A returned error is logged and does not stop delivery to the next
// subscriber; repeated errors trip that subscriber's circuit breaker.
// Defined as a func type rather than a named-method interface so plain
// closures can subscribe without a wrapper struct, matching the
// "duck-typed callback" design note.
type Handler func(Event) error

// Bus is a bounded, asynchronous publisher. Producer-side Publish is
// thread-safe; a dispatcher goroutine drains the queue and hands each
// event to a github.com/panjf2000/ants/v2 goroutine pool, which invokes
// every subscriber for the event's type synchronously, in registration
// order. A handler that panics or is wrapped with a breaker that keeps
// tripping is skipped without affecting other subscribers or the pool
// worker running it.
//
// Queue policy: Publish blocks when the queue is full (documented choice,
// see DESIGN.md) rather than dropping events — lifecycle events are the
// only record some subscribers (the audit log) ever see, so silently
// dropping them would violate the "subscribers must not observe a gap"
// expectation even though the spec allows either policy. ants.Pool itself
// runs in blocking mode (its default), so once every pool worker is busy
// the dispatcher goroutine blocks on Submit, which in turn lets the queue
// fill and Publish block — the same backpressure chain as before, now with
// ants doing the panic-safe execution and rejection/overload accounting
// instead of a hand-rolled goroutine fan-out.
type Bus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[Type][]*subscriber

	queue    chan Event
	pool     *ants.Pool
	tasks    sync.WaitGroup
	dispatch sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once

	testMode bool
}

type subscriber struct {
	handler Handler
	breaker *gobreaker.CircuitBreaker
}

// Config controls the bus's queue depth and worker pool size.
type Config struct {
	QueueSize int
	Workers   int
	// TestMode disables the worker pool entirely and makes Publish a
	// no-op, for deterministic unit tests of the engine without event
	// delivery.
	TestMode bool
}

// New creates a Bus and, unless cfg.TestMode, starts its worker pool.
func New(cfg Config, logger *zap.Logger) *Bus {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	b := &Bus{
		logger:      logger,
		subscribers: make(map[Type][]*subscriber),
		queue:       make(chan Event, cfg.QueueSize),
		shutdown:    make(chan struct{}),
		testMode:    cfg.TestMode,
	}
	if !b.testMode {
		pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(r interface{}) {
			if b.logger != nil {
				b.logger.Error("event subscriber pool task panicked", zap.Any("panic", r))
			}
		}))
		if err != nil {
			// cfg.Workers is normalized to at least 1 above; ants only
			// rejects a non-positive size, so this cannot happen.
			panic(fmt.Sprintf("events: create worker pool: %v", err))
		}
		b.pool = pool
		b.dispatch.Add(1)
		go b.run()
	}
	return b
}

// run drains the queue and submits one pool task per event. It is the only
// goroutine that reads from b.queue, so ants.Pool sees tasks in arrival
// order even though it may run up to Workers of them concurrently.
func (b *Bus) run() {
	defer b.dispatch.Done()
	for {
		select {
		case ev, ok := <-b.queue:
			if !ok {
				return
			}
			b.submit(ev)
		case <-b.shutdown:
			// Drain remaining queued events before exiting.
			for {
				select {
				case ev, ok := <-b.queue:
					if !ok {
						return
					}
					b.submit(ev)
				default:
					return
				}
			}
		}
	}
}

// submit hands ev to the pool, blocking until a worker is free. tasks
// tracks in-flight deliveries so Shutdown can wait for them after the
// dispatcher has stopped pulling from the queue.
func (b *Bus) submit(ev Event) {
	b.tasks.Add(1)
	err := b.pool.Submit(func() {
		defer b.tasks.Done()
		b.deliver(ev)
	})
	if err != nil {
		b.tasks.Done()
		if b.logger != nil {
			b.logger.Warn("event dropped: worker pool rejected task", zap.String("event_type", string(ev.Type)), zap.Error(err))
		}
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subscribers[ev.Type]...)
	b.mu.RUnlock()

	for _, s := range subs {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.invoke(ev)
		})
		if err != nil && b.logger != nil {
			b.logger.Warn("event subscriber skipped", zap.String("event_type", string(ev.Type)), zap.Error(err))
		}
	}
}

// invoke runs the handler, converting a panic into an error so one bad
// subscriber can never take down a pool worker. ants' own PanicHandler is
// a second line of defense for a panic that somehow escapes this recover,
// e.g. one raised from a goroutine the handler itself spawned.
func (s *subscriber) invoke(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return s.handler(ev)
}

// Subscribe registers handler for all events of the given type. Subscribers
// of unrelated types never see each other's events — each type keeps its
// own handler list.
func (b *Bus) Subscribe(t Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := gobreaker.Settings{
		Name:        string(t),
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	b.subscribers[t] = append(b.subscribers[t], &subscriber{
		handler: handler,
		breaker: gobreaker.NewCircuitBreaker(st),
	})
}

// Publish hands ev to the internal queue. In test mode this is a no-op so
// engine unit tests can run deterministically without worker goroutines.
// Otherwise it blocks if the queue is full (see the queue policy in the Bus
// doc).
func (b *Bus) Publish(ev Event) {
	if b.testMode {
		return
	}
	b.queue <- ev
}

// Shutdown signals the dispatcher to drain the queue and stop, waits for
// every submitted task to finish, and releases the pool. Safe to call
// multiple times.
func (b *Bus) Shutdown() {
	b.once.Do(func() {
		close(b.shutdown)
	})
	b.dispatch.Wait()
	b.tasks.Wait()
	if b.pool != nil {
		b.pool.Release()
	}
}
