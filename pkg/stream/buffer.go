package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	strandv1 "github.com/rzbill/strand/api/strand/v1"
)

// EventBuffer bridges a single push-producing goroutine (the inbound network
// side of a session) to a single pull-based consumer. Raw envelopes are
// queued as pushed; the upcast/deserialize pipeline runs lazily on the
// consumer's goroutine when an event is first observed.
//
// A terminal failure set with Fail is sticky: the first failure wins and
// every past, present, and future blocking poll observes that same error.
type EventBuffer struct {
	pipeline Pipeline

	mu      sync.Mutex
	queue   []*strandv1.EventEnvelope
	pending []Event
	failure error
	closed  bool
	// notify is closed and re-armed on every push to wake waiters.
	notify chan struct{}
	// done is closed once, on failure or explicit close.
	done     chan struct{}
	doneOnce sync.Once

	consumeFns []func(count int)
	closeFns   []func()
	closeOnce  sync.Once
}

// NewEventBuffer constructs a buffer draining through the given pipeline.
// A nil pipeline defaults to NoopPipeline.
func NewEventBuffer(pipeline Pipeline) *EventBuffer {
	if pipeline == nil {
		pipeline = NoopPipeline()
	}
	return &EventBuffer{
		pipeline: pipeline,
		notify:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Push enqueues a raw envelope. It must only be called from the session's
// single producer goroutine. Once the buffer has been failed or closed,
// pushes are silently dropped; no error surfaces to the producer.
func (b *EventBuffer) Push(env *strandv1.EventEnvelope) {
	b.mu.Lock()
	if b.failure != nil || b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, env)
	close(b.notify)
	b.notify = make(chan struct{})
	b.mu.Unlock()
}

// Peek returns the next logical event without removing it. The conversion
// result is cached: consecutive peeks return the identical element. It never
// blocks and reports false when nothing is buffered.
func (b *EventBuffer) Peek() (Event, bool) {
	b.mu.Lock()
	consumed, convErr := b.convertLocked()
	var ev Event
	ok := false
	if len(b.pending) > 0 {
		ev = b.pending[0]
		ok = true
	}
	fns := b.consumeFns
	b.mu.Unlock()

	b.reportConsumed(fns, consumed)
	if convErr != nil {
		b.Fail(fmt.Errorf("upcast pipeline: %w", convErr))
	}
	return ev, ok
}

// HasNextAvailable blocks up to timeout for an event to become observable.
// A stored failure is raised in preference to reporting a timeout. A
// non-positive timeout checks once without blocking.
func (b *EventBuffer) HasNextAvailable(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		b.mu.Lock()
		if b.failure != nil {
			err := b.failure
			b.mu.Unlock()
			return false, err
		}
		consumed, convErr := b.convertLocked()
		has := len(b.pending) > 0
		closed := b.closed
		notify := b.notify
		done := b.done
		fns := b.consumeFns
		b.mu.Unlock()

		b.reportConsumed(fns, consumed)
		if convErr != nil {
			b.Fail(fmt.Errorf("upcast pipeline: %w", convErr))
			continue
		}
		if has {
			return true, nil
		}
		if closed {
			return false, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-notify:
		case <-done:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// NextAvailable removes and returns the next logical event, blocking until
// one is observable. It returns the stored failure once the buffer has
// failed, ErrStreamClosed after a client-initiated close, and wraps
// ctx.Err() when the wait is interrupted.
func (b *EventBuffer) NextAvailable(ctx context.Context) (Event, error) {
	for {
		b.mu.Lock()
		if b.failure != nil {
			err := b.failure
			b.mu.Unlock()
			return Event{}, err
		}
		consumed, convErr := b.convertLocked()
		if len(b.pending) > 0 {
			ev := b.pending[0]
			b.pending = b.pending[1:]
			fns := b.consumeFns
			b.mu.Unlock()
			b.reportConsumed(fns, consumed)
			return ev, nil
		}
		closed := b.closed
		notify := b.notify
		done := b.done
		fns := b.consumeFns
		b.mu.Unlock()

		b.reportConsumed(fns, consumed)
		if convErr != nil {
			b.Fail(fmt.Errorf("upcast pipeline: %w", convErr))
			continue
		}
		if closed {
			return Event{}, ErrStreamClosed
		}
		select {
		case <-notify:
		case <-done:
		case <-ctx.Done():
			return Event{}, fmt.Errorf("interrupted while waiting for events: %w", ctx.Err())
		}
	}
}

// Fail marks the buffer terminally failed and wakes all blocked waiters.
// The first failure wins; later calls keep the original error. The close
// listeners fire (once) because failing ends the session.
func (b *EventBuffer) Fail(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	if b.failure == nil {
		b.failure = err
	}
	b.mu.Unlock()
	b.doneOnce.Do(func() { close(b.done) })
	b.fireClose()
}

// Close ends the session from the consumer side. Idempotent. Blocked and
// future polls observe ErrStreamClosed once drained; pushes arriving after
// the close are dropped.
func (b *EventBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.doneOnce.Do(func() { close(b.done) })
	b.fireClose()
}

// Closed reports whether the consumer ended the session.
func (b *EventBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// RegisterConsumeListener registers fn to be invoked with the number of raw
// envelopes removed from the buffer in each draining operation. Raw counts,
// not logical event counts, drive flow-control credit accounting.
func (b *EventBuffer) RegisterConsumeListener(fn func(count int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumeFns = append(b.consumeFns, fn)
}

// RegisterCloseListener registers fn to be invoked exactly once when the
// session ends, by failure or by an explicit Close.
func (b *EventBuffer) RegisterCloseListener(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeFns = append(b.closeFns, fn)
}

// convertLocked drains raw envelopes through the pipeline until at least one
// logical event is pending or the queue is empty. Returns the number of raw
// envelopes consumed. Caller holds b.mu.
func (b *EventBuffer) convertLocked() (int, error) {
	consumed := 0
	for len(b.pending) == 0 && len(b.queue) > 0 {
		env := b.queue[0]
		b.queue = b.queue[1:]
		consumed++
		events, err := b.pipeline.Upcast(env)
		if err != nil {
			return consumed, err
		}
		b.pending = append(b.pending, events...)
	}
	return consumed, nil
}

func (b *EventBuffer) reportConsumed(fns []func(int), count int) {
	if count <= 0 {
		return
	}
	for _, fn := range fns {
		fn(count)
	}
}

func (b *EventBuffer) fireClose() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		fns := b.closeFns
		b.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	})
}
