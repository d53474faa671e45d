// Package connection manages the gRPC channels a strand client holds toward
// the event store, keyed by context name. Channels are created lazily and
// recreated after an exceptional disconnect.
package connection

import (
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rzbill/strand/pkg/log"
)

// Dialer creates a client connection to target. Defaults to an insecure
// grpc.NewClient for local/dev; production embedders install their own.
type Dialer func(target string) (*grpc.ClientConn, error)

func defaultDialer(target string) (*grpc.ClientConn, error) {
	return grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// Manager hands out shared channels by context name and tracks the last
// failure that forced a disconnect.
type Manager struct {
	target string
	dial   Dialer
	logger log.Logger

	mu        sync.Mutex
	conns     map[string]*grpc.ClientConn
	lastFault map[string]error
	closed    bool
}

// NewManager builds a Manager for target. A nil dialer uses the insecure
// default.
func NewManager(target string, dial Dialer, logger log.Logger) *Manager {
	if dial == nil {
		dial = defaultDialer
	}
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("connection")
	}
	return &Manager{
		target:    target,
		dial:      dial,
		logger:    logger,
		conns:     make(map[string]*grpc.ClientConn),
		lastFault: make(map[string]error),
	}
}

// Channel returns the shared connection for a context name, dialing it on
// first use or after an exceptional disconnect.
func (m *Manager) Channel(name string) (*grpc.ClientConn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("connection manager closed")
	}
	if cc, ok := m.conns[name]; ok {
		return cc, nil
	}
	cc, err := m.dial(m.target)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", m.target, err)
	}
	m.conns[name] = cc
	delete(m.lastFault, name)
	m.logger.Info("channel established",
		log.Field{Key: "context", Value: name},
		log.Field{Key: "target", Value: m.target})
	return cc, nil
}

// DisconnectExceptionally tears down the channel for a context name because
// of cause. The next Channel call redials.
func (m *Manager) DisconnectExceptionally(name string, cause error) {
	m.mu.Lock()
	cc := m.conns[name]
	delete(m.conns, name)
	if cause != nil {
		m.lastFault[name] = cause
	}
	m.mu.Unlock()

	if cc != nil {
		_ = cc.Close()
	}
	m.logger.Warn("channel disconnected",
		log.Field{Key: "context", Value: name},
		log.Field{Key: "error", Value: fmt.Sprint(cause)})
}

// LastFault returns the error that forced the most recent disconnect of a
// context, if any.
func (m *Manager) LastFault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFault[name]
}

// Healthy reports whether the channel for a context name exists and its
// transport is usable.
func (m *Manager) Healthy(name string) bool {
	m.mu.Lock()
	cc := m.conns[name]
	m.mu.Unlock()
	if cc == nil {
		return false
	}
	switch cc.GetState() {
	case connectivity.Ready, connectivity.Idle, connectivity.Connecting:
		return true
	default:
		return false
	}
}

// Close tears down every channel. The manager is unusable afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	conns := m.conns
	m.conns = map[string]*grpc.ClientConn{}
	m.mu.Unlock()

	var firstErr error
	for _, cc := range conns {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
