// Package client composes the strand consumption core into a resumable
// streaming client: it opens the gRPC session, bridges inbound envelopes into
// an EventBuffer, replenishes flow-control credits as the consumer makes
// progress, and pairs the connection with a liveness monitor.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	strandv1 "github.com/rzbill/strand/api/strand/v1"
	"github.com/rzbill/strand/internal/connection"
	"github.com/rzbill/strand/pkg/liveness"
	"github.com/rzbill/strand/pkg/log"
	"github.com/rzbill/strand/pkg/stream"
	"github.com/rzbill/strand/pkg/token"
)

// streamContext names the shared channel used for event streaming.
const streamContext = "event-stream"

// Options configures a Client.
type Options struct {
	// Endpoint is the event store gRPC address.
	Endpoint string
	// ClientID identifies this client instance. Generated when empty.
	ClientID string
	// ComponentID names the logical application component.
	ComponentID string

	// Flow sizes the per-session credit window. Zero fields take defaults.
	Flow stream.FlowConfig
	// Liveness is the heartbeat cadence. Zero fields take defaults.
	Liveness liveness.Config
	// DisableLiveness turns the per-session liveness monitor off.
	DisableLiveness bool

	// Pipeline upcasts raw envelopes into logical events. Nil means the no-op
	// pipeline.
	Pipeline stream.Pipeline

	// Dialer overrides how channels are established, for tests and embedders.
	Dialer connection.Dialer

	Logger log.Logger
}

// Client opens resumable event stream sessions against one event store.
type Client struct {
	opts   Options
	conns  *connection.Manager
	logger log.Logger

	mu     sync.Mutex
	closed bool
}

// New builds a Client. The connection is dialed lazily on the first
// OpenStream call.
func New(opts Options) *Client {
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	if opts.ComponentID == "" {
		opts.ComponentID = "strand-client"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	logger = logger.WithComponent("client").With(
		log.Field{Key: "client_id", Value: opts.ClientID})
	return &Client{
		opts:   opts,
		conns:  connection.NewManager(opts.Endpoint, opts.Dialer, logger),
		logger: logger,
	}
}

// resumePosition maps a checkpoint token to the first position to request.
// A nil token starts from the head of the stream.
func resumePosition(tok token.Token) (int64, error) {
	if tok == nil {
		return 0, nil
	}
	g, ok := tok.(token.Global)
	if !ok {
		return 0, &token.IncompatibleTokenError{
			Reason: fmt.Sprintf("cannot resume a global stream from a %T", tok),
		}
	}
	return g.Index() + 1, nil
}

// OpenStream opens a tailing session resuming after tok, or from the head of
// the stream when tok is nil. The returned session must be closed by the
// caller.
func (c *Client) OpenStream(ctx context.Context, tok token.Token) (*Session, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("client closed")
	}
	c.mu.Unlock()

	pos, err := resumePosition(tok)
	if err != nil {
		return nil, err
	}

	cc, err := c.conns.Channel(streamContext)
	if err != nil {
		return nil, err
	}
	st, err := strandv1.NewEventStreamClient(cc).OpenStream(ctx)
	if err != nil {
		return nil, &stream.ConnectionError{Op: "open", Cause: err}
	}

	buffer := stream.NewEventBuffer(c.opts.Pipeline)
	flow := stream.NewFlowController(st, c.opts.Flow, c.logger)
	buffer.RegisterCloseListener(func() { _ = flow.Complete() })
	buffer.RegisterConsumeListener(flow.MarkConsumed)

	if err := flow.SendInitial(&strandv1.OpenStream{
		ResumeFromPosition: pos,
		ClientID:           c.opts.ClientID,
		ComponentID:        c.opts.ComponentID,
	}); err != nil {
		buffer.Close()
		return nil, &stream.ConnectionError{Op: "open", Cause: err}
	}

	sess := &Session{buffer: buffer, flow: flow}

	if !c.opts.DisableLiveness {
		monitor := liveness.NewMonitor(
			func(context.Context) (bool, error) { return c.conns.Healthy(streamContext), nil },
			func() {
				c.conns.DisconnectExceptionally(streamContext,
					errors.New("liveness probe declared connection dead"))
			},
			nil, c.opts.Liveness, c.logger)
		monitor.Start()
		buffer.RegisterCloseListener(monitor.Shutdown)
		sess.monitor = monitor
	}

	c.logger.Info("stream session opened",
		log.Field{Key: "resume_from", Value: pos},
		log.Field{Key: "component_id", Value: c.opts.ComponentID})

	go c.receive(st, buffer)
	return sess, nil
}

// receive pumps inbound envelopes into the buffer until the stream ends.
// Every non-client-initiated ending is a failure: the protocol is a tail with
// no natural EOF.
func (c *Client) receive(st strandv1.EventStream_OpenStreamClient, buffer *stream.EventBuffer) {
	for {
		env, err := st.Recv()
		if err == nil {
			buffer.Push(env)
			continue
		}
		if buffer.Closed() {
			// Client-initiated shutdown; whatever the transport reports now
			// is not a failure.
			return
		}
		if errors.Is(err, io.EOF) {
			c.logger.Warn("server completed the event stream")
			buffer.Fail(stream.ErrStreamTerminated)
			return
		}
		if status.Code(err) == codes.Canceled {
			buffer.Fail(fmt.Errorf("stream canceled: %w", err))
			return
		}
		cause := &stream.ConnectionError{Op: "receive", Cause: err}
		c.logger.Warn("event stream receive failed", log.Field{Key: "error", Value: err.Error()})
		c.conns.DisconnectExceptionally(streamContext, cause)
		buffer.Fail(cause)
		return
	}
}

// Close tears down the client and its channels. Open sessions observe a
// connection failure.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conns.Close()
}
