package client

import (
	"context"
	"time"

	"github.com/rzbill/strand/pkg/liveness"
	"github.com/rzbill/strand/pkg/stream"
)

// Session is one open tailing stream. It is a thin view over the buffer and
// flow controller wired together by OpenStream.
type Session struct {
	buffer  *stream.EventBuffer
	flow    *stream.FlowController
	monitor *liveness.Monitor
}

// Peek returns the next event without consuming it. Non-blocking.
func (s *Session) Peek() (stream.Event, bool) {
	return s.buffer.Peek()
}

// HasNextAvailable blocks up to timeout for an event to become observable.
func (s *Session) HasNextAvailable(timeout time.Duration) (bool, error) {
	return s.buffer.HasNextAvailable(timeout)
}

// NextAvailable removes and returns the next event, blocking until one is
// available, the session ends, or ctx is canceled.
func (s *Session) NextAvailable(ctx context.Context) (stream.Event, error) {
	return s.buffer.NextAvailable(ctx)
}

// Close ends the session from the consumer side: the outbound stream is
// half-closed and the liveness monitor stops. Idempotent.
func (s *Session) Close() {
	s.buffer.Close()
}
