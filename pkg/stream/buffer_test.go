package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	strandv1 "github.com/rzbill/strand/api/strand/v1"
)

func envelopeAt(pos int64) *strandv1.EventEnvelope {
	return &strandv1.EventEnvelope{
		Position: pos,
		TypeName: "test.event",
		Payload:  []byte(fmt.Sprintf("payload-%d", pos)),
	}
}

func TestBufferFIFO(t *testing.T) {
	b := NewEventBuffer(nil)
	for i := int64(0); i < 5; i++ {
		b.Push(envelopeAt(i))
	}

	ctx := context.Background()
	for i := int64(0); i < 5; i++ {
		ev, err := b.NextAvailable(ctx)
		if err != nil {
			t.Fatalf("NextAvailable: %v", err)
		}
		p, ok := ev.Token.Position()
		if !ok || p != i {
			t.Fatalf("event %d: position = %d,%v", i, p, ok)
		}
	}
}

func TestBufferPeekCachesHead(t *testing.T) {
	b := NewEventBuffer(nil)
	b.Push(envelopeAt(1))

	first, ok := b.Peek()
	if !ok {
		t.Fatalf("expected an event")
	}
	second, ok := b.Peek()
	if !ok {
		t.Fatalf("expected the cached event")
	}
	if !first.Token.Equal(second.Token) {
		t.Fatalf("peek returned different elements")
	}

	ev, err := b.NextAvailable(context.Background())
	if err != nil {
		t.Fatalf("NextAvailable: %v", err)
	}
	if !ev.Token.Equal(first.Token) {
		t.Fatalf("pop did not return the peeked element")
	}
	if _, ok := b.Peek(); ok {
		t.Fatalf("expected empty buffer after pop")
	}
}

// A pipeline that drops events exercises the difference between raw and
// logical consumption counts.
func TestBufferConsumeListenerCountsRawItems(t *testing.T) {
	drop := PipelineFunc(func(env *strandv1.EventEnvelope) ([]Event, error) {
		if env.Position%3 != 2 {
			return nil, nil
		}
		p, _ := NoopPipeline().Upcast(env)
		return p, nil
	})
	b := NewEventBuffer(drop)

	var counted int32
	b.RegisterConsumeListener(func(n int) { atomic.AddInt32(&counted, int32(n)) })

	for i := int64(0); i < 3; i++ {
		b.Push(envelopeAt(i))
	}

	// One observable event, produced by draining three raw envelopes.
	ev, ok := b.Peek()
	if !ok {
		t.Fatalf("expected an event")
	}
	if p, _ := ev.Token.Position(); p != 2 {
		t.Fatalf("surviving event position = %d, want 2", p)
	}
	if got := atomic.LoadInt32(&counted); got != 3 {
		t.Fatalf("consume listener counted %d raw items, want 3", got)
	}
}

func TestBufferFailIsSticky(t *testing.T) {
	b := NewEventBuffer(nil)
	first := errors.New("first failure")
	b.Fail(first)
	b.Fail(errors.New("second failure"))

	if _, err := b.NextAvailable(context.Background()); !errors.Is(err, first) {
		t.Fatalf("NextAvailable error = %v, want first failure", err)
	}
	if _, err := b.HasNextAvailable(0); !errors.Is(err, first) {
		t.Fatalf("HasNextAvailable error = %v, want first failure", err)
	}
}

func TestBufferFailTakesPrecedenceOverTimeout(t *testing.T) {
	b := NewEventBuffer(nil)
	b.Push(envelopeAt(1))
	cause := errors.New("stream broke")
	b.Fail(cause)

	if _, err := b.HasNextAvailable(50 * time.Millisecond); !errors.Is(err, cause) {
		t.Fatalf("HasNextAvailable error = %v, want failure", err)
	}
}

func TestBufferFailWakesBlockedReader(t *testing.T) {
	b := NewEventBuffer(nil)
	cause := errors.New("stream broke")

	errCh := make(chan error, 1)
	go func() {
		_, err := b.NextAvailable(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	b.Fail(cause)

	select {
	case err := <-errCh:
		if !errors.Is(err, cause) {
			t.Fatalf("blocked reader got %v, want failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("blocked reader was not woken by Fail")
	}
}

func TestBufferPushAfterFailIsDropped(t *testing.T) {
	b := NewEventBuffer(nil)
	b.Fail(errors.New("down"))
	b.Push(envelopeAt(1))

	// The push must not resurrect the buffer or panic; the failure stays.
	if _, err := b.HasNextAvailable(0); err == nil {
		t.Fatalf("expected stored failure after post-fail push")
	}
}

func TestBufferCloseUnblocksAndDrains(t *testing.T) {
	b := NewEventBuffer(nil)
	b.Push(envelopeAt(1))
	b.Close()

	// Buffered event still drains after close.
	ev, err := b.NextAvailable(context.Background())
	if err != nil {
		t.Fatalf("NextAvailable after close: %v", err)
	}
	if p, _ := ev.Token.Position(); p != 1 {
		t.Fatalf("drained position = %d, want 1", p)
	}

	if _, err := b.NextAvailable(context.Background()); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("error = %v, want ErrStreamClosed", err)
	}
	has, err := b.HasNextAvailable(10 * time.Millisecond)
	if err != nil || has {
		t.Fatalf("HasNextAvailable after close = %v,%v, want false,nil", has, err)
	}
}

func TestBufferCloseListenerFiresOnce(t *testing.T) {
	b := NewEventBuffer(nil)
	var fired int32
	b.RegisterCloseListener(func() { atomic.AddInt32(&fired, 1) })

	b.Close()
	b.Close()
	b.Fail(errors.New("late"))

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("close listener fired %d times, want 1", got)
	}
}

func TestBufferContextCancellation(t *testing.T) {
	b := NewEventBuffer(nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := b.NextAvailable(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancellation did not unblock the reader")
	}
}

func TestBufferPipelineErrorFailsBuffer(t *testing.T) {
	boom := errors.New("cannot upcast")
	bad := PipelineFunc(func(*strandv1.EventEnvelope) ([]Event, error) { return nil, boom })
	b := NewEventBuffer(bad)
	b.Push(envelopeAt(1))

	if _, ok := b.Peek(); ok {
		t.Fatalf("expected no event from a failing pipeline")
	}
	if _, err := b.HasNextAvailable(0); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want pipeline failure", err)
	}
}

func TestBufferHasNextAvailableWaits(t *testing.T) {
	b := NewEventBuffer(nil)

	go func() {
		time.Sleep(30 * time.Millisecond)
		b.Push(envelopeAt(1))
	}()

	has, err := b.HasNextAvailable(2 * time.Second)
	if err != nil {
		t.Fatalf("HasNextAvailable: %v", err)
	}
	if !has {
		t.Fatalf("expected the waiter to observe the pushed event")
	}
}
