package stream

import (
	"sync"
	"testing"

	strandv1 "github.com/rzbill/strand/api/strand/v1"
)

type fakeOutbound struct {
	mu        sync.Mutex
	sent      []*strandv1.StreamRequest
	sendErr   error
	closeSend int
}

func (f *fakeOutbound) Send(req *strandv1.StreamRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeOutbound) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSend++
	return nil
}

func (f *fakeOutbound) requests() []*strandv1.StreamRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*strandv1.StreamRequest(nil), f.sent...)
}

func (f *fakeOutbound) closeSendCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeSend
}

func newTestFlow(out Outbound) *FlowController {
	return NewFlowController(out, FlowConfig{InitialPermits: 100, Threshold: 10, Refill: 50}, nil)
}

func TestFlowSendInitialCarriesPermits(t *testing.T) {
	out := &fakeOutbound{}
	f := newTestFlow(out)

	if err := f.SendInitial(&strandv1.OpenStream{ResumeFromPosition: 7}); err != nil {
		t.Fatalf("SendInitial: %v", err)
	}
	reqs := out.requests()
	if len(reqs) != 1 || reqs[0].Open == nil {
		t.Fatalf("expected one open request, got %v", reqs)
	}
	if reqs[0].Open.InitialPermits != 100 {
		t.Fatalf("initial permits = %d, want 100", reqs[0].Open.InitialPermits)
	}
	if reqs[0].Open.ResumeFromPosition != 7 {
		t.Fatalf("resume position = %d, want 7", reqs[0].Open.ResumeFromPosition)
	}
}

func TestFlowRefillAtThreshold(t *testing.T) {
	out := &fakeOutbound{}
	f := newTestFlow(out)

	for i := 0; i < 9; i++ {
		f.MarkConsumed(1)
	}
	if n := len(out.requests()); n != 0 {
		t.Fatalf("refill sent below threshold: %d requests", n)
	}

	f.MarkConsumed(1)
	reqs := out.requests()
	if len(reqs) != 1 || reqs[0].FlowControl == nil {
		t.Fatalf("expected one flow-control request, got %v", reqs)
	}
	if reqs[0].FlowControl.Permits != 50 {
		t.Fatalf("refill permits = %d, want 50", reqs[0].FlowControl.Permits)
	}

	// Counter reset: the next 9 consumptions stay below threshold again.
	for i := 0; i < 9; i++ {
		f.MarkConsumed(1)
	}
	if n := len(out.requests()); n != 1 {
		t.Fatalf("counter did not reset after refill: %d requests", n)
	}
}

func TestFlowBatchConsumptionResetsCounter(t *testing.T) {
	out := &fakeOutbound{}
	f := newTestFlow(out)

	// A single batch crossing the threshold grants one refill and zeroes the
	// counter, however far past the threshold it went.
	f.MarkConsumed(25)
	if n := len(out.requests()); n != 1 {
		t.Fatalf("expected 1 refill for a batch of 25 at threshold 10, got %d", n)
	}
	f.MarkConsumed(9)
	if n := len(out.requests()); n != 1 {
		t.Fatalf("counter was not reset to zero after the batch refill")
	}
	f.MarkConsumed(1)
	if n := len(out.requests()); n != 2 {
		t.Fatalf("expected a second refill at the next threshold crossing, got %d", n)
	}
}

func TestFlowSuppressionVetoesRefill(t *testing.T) {
	out := &fakeOutbound{}
	suppressed := true
	f := NewFlowController(out, FlowConfig{InitialPermits: 100, Threshold: 10, Refill: 50}, nil,
		WithSuppression(func() bool { return suppressed }))

	f.MarkConsumed(10)
	if n := len(out.requests()); n != 0 {
		t.Fatalf("suppressed refill was sent: %d requests", n)
	}

	suppressed = false
	f.MarkConsumed(10)
	if n := len(out.requests()); n != 1 {
		t.Fatalf("expected refill once suppression lifted, got %d", n)
	}
}

func TestFlowCompleteIsIdempotentAndSilencesSends(t *testing.T) {
	out := &fakeOutbound{}
	f := newTestFlow(out)

	if err := f.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := f.Complete(); err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if got := out.closeSendCalls(); got != 1 {
		t.Fatalf("CloseSend called %d times, want 1", got)
	}

	f.MarkConsumed(100)
	if n := len(out.requests()); n != 0 {
		t.Fatalf("refill sent after completion: %d requests", n)
	}
	if !f.Completed() {
		t.Fatalf("Completed() = false after Complete")
	}
}

func TestFlowConcurrentMarkConsumed(t *testing.T) {
	out := &fakeOutbound{}
	f := newTestFlow(out)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				f.MarkConsumed(1)
			}
		}()
	}
	wg.Wait()

	// 1000 consumed at threshold 10 must produce exactly 100 refills.
	if n := len(out.requests()); n != 100 {
		t.Fatalf("refills = %d, want 100", n)
	}
}
