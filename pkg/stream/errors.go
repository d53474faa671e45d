package stream

import (
	"errors"
	"fmt"
)

// ErrStreamTerminated signals that the server completed the stream. The
// protocol is a tail with no natural end, so an inbound completion that the
// client did not initiate is always a failure.
var ErrStreamTerminated = errors.New("event stream completed by server")

// ErrStreamClosed is returned by blocking polls after the session was closed
// by the client.
var ErrStreamClosed = errors.New("event stream closed")

// ConnectionError wraps a transport-level failure observed on the stream.
type ConnectionError struct {
	Op    string
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream connection failure during %s: %v", e.Op, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }
