package stream

import (
	"sync"
	"sync/atomic"

	strandv1 "github.com/rzbill/strand/api/strand/v1"
	"github.com/rzbill/strand/pkg/log"
)

// Outbound is the sending half of a stream session as seen by the
// FlowController. The gRPC client stream satisfies it directly.
type Outbound interface {
	Send(*strandv1.StreamRequest) error
	CloseSend() error
}

// FlowConfig sizes the credit window of a session.
type FlowConfig struct {
	// InitialPermits is granted with the open request.
	InitialPermits int32
	// Threshold is the consumption count at which a refill is sent.
	Threshold int32
	// Refill is the number of permits granted per refill.
	Refill int32
}

// DefaultFlowConfig returns the stock window sizing.
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{InitialPermits: 1000, Threshold: 500, Refill: 500}
}

func (c FlowConfig) withDefaults() FlowConfig {
	d := DefaultFlowConfig()
	if c.InitialPermits <= 0 {
		c.InitialPermits = d.InitialPermits
	}
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.Refill <= 0 {
		c.Refill = d.Refill
	}
	return c
}

// FlowController tracks consumption on a session and replenishes the
// server's send credits in batches. It is safe for concurrent use.
type FlowController struct {
	out    Outbound
	cfg    FlowConfig
	logger log.Logger

	// suppress, when set, is consulted before each refill; returning true
	// skips the send. Used to silence permits while a reconnect is pending.
	suppress func() bool

	mu       sync.Mutex
	consumed int32

	completed atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// FlowOption configures a FlowController.
type FlowOption func(*FlowController)

// WithSuppression installs a predicate consulted before each refill send.
func WithSuppression(fn func() bool) FlowOption {
	return func(f *FlowController) { f.suppress = fn }
}

// NewFlowController wraps out with credit accounting per cfg. Zero fields of
// cfg fall back to DefaultFlowConfig.
func NewFlowController(out Outbound, cfg FlowConfig, logger log.Logger, opts ...FlowOption) *FlowController {
	f := &FlowController{
		out:    out,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
	if f.logger == nil {
		f.logger = log.GetDefaultLogger().WithComponent("flow")
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SendInitial sends the open request carrying the initial permit grant. The
// open request must be the first message on the session.
func (f *FlowController) SendInitial(open *strandv1.OpenStream) error {
	open.InitialPermits = f.cfg.InitialPermits
	return f.out.Send(&strandv1.StreamRequest{Open: open})
}

// MarkConsumed records that n raw messages were taken off the buffer. When
// accumulated consumption reaches the threshold the counter resets and a
// refill grant goes out. Send failures are logged and swallowed: a broken
// session surfaces through the inbound side, not through credit accounting.
func (f *FlowController) MarkConsumed(n int) {
	if n <= 0 || f.completed.Load() {
		return
	}
	f.mu.Lock()
	f.consumed += int32(n)
	refill := f.consumed >= f.cfg.Threshold
	if refill {
		f.consumed = 0
	}
	f.mu.Unlock()

	if refill {
		f.sendRefill()
	}
}

func (f *FlowController) sendRefill() {
	if f.completed.Load() {
		return
	}
	if f.suppress != nil && f.suppress() {
		return
	}
	req := &strandv1.StreamRequest{FlowControl: &strandv1.FlowControl{Permits: f.cfg.Refill}}
	if err := f.out.Send(req); err != nil {
		f.logger.Warn("failed to send flow-control permits", log.Field{Key: "error", Value: err.Error()})
	}
}

// Complete half-closes the outbound side. Idempotent; sends after completion
// are silent no-ops.
func (f *FlowController) Complete() error {
	f.closeOnce.Do(func() {
		f.completed.Store(true)
		f.closeErr = f.out.CloseSend()
	})
	return f.closeErr
}

// Completed reports whether the outbound side was half-closed.
func (f *FlowController) Completed() bool {
	return f.completed.Load()
}
