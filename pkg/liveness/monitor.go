// Package liveness detects silently dead connections by probing them on a
// fixed-delay schedule and triggering recovery when a probe fails.
package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/strand/pkg/log"
)

// CheckFunc probes a connection. It returns false when the connection must be
// considered dead. An error means the probe itself could not run; the monitor
// logs it and keeps the connection.
type CheckFunc func(ctx context.Context) (bool, error)

// Config holds the monitor cadence.
type Config struct {
	// InitialDelay is the quiet period before the first probe.
	InitialDelay time.Duration
	// Delay between the end of one probe and the start of the next.
	Delay time.Duration
}

// DefaultConfig returns the stock cadence.
func DefaultConfig() Config {
	return Config{InitialDelay: 10 * time.Second, Delay: time.Second}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.Delay <= 0 {
		c.Delay = d.Delay
	}
	return c
}

// Monitor periodically runs a liveness probe and invokes a recovery callback
// whenever the probe declares the connection dead. The monitor never recovers
// on its own: once shut down it stays down.
type Monitor struct {
	check     CheckFunc
	onInvalid func()
	scheduler Scheduler
	cfg       Config
	logger    log.Logger

	mu      sync.Mutex
	task    ScheduledTask
	started bool
	downed  bool
}

// NewMonitor wires a probe to a recovery callback on the given scheduler. A
// nil scheduler gets a TimerScheduler; zero cfg fields take defaults.
func NewMonitor(check CheckFunc, onInvalid func(), scheduler Scheduler, cfg Config, logger log.Logger) *Monitor {
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("liveness")
	}
	return &Monitor{
		check:     check,
		onInvalid: onInvalid,
		scheduler: scheduler,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Start schedules the probe. Starting twice, or after Shutdown, is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.downed {
		return
	}
	m.started = true
	m.task = m.scheduler.ScheduleWithFixedDelay(m.run, m.cfg.InitialDelay, m.cfg.Delay)
}

func (m *Monitor) run() {
	valid, err := m.check(context.Background())
	if err != nil {
		m.logger.Warn("liveness probe failed to run", log.Field{Key: "error", Value: err.Error()})
		return
	}
	if !valid {
		m.logger.Info("connection declared dead by liveness probe, triggering recovery")
		m.onInvalid()
	}
}

// Shutdown cancels the probe permanently. Idempotent. A shut-down monitor
// cannot be restarted.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.downed {
		return
	}
	m.downed = true
	if m.task != nil {
		m.task.Cancel()
	}
	m.scheduler.ShutdownNow()
}
