package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/mgreenly/space-captain/logger"
)

// DefaultClientTimeout is the session reap deadline: 30 seconds of
// inactivity.
const DefaultClientTimeout = 30 * time.Second

// ReapInterval is how often the live-session set is walked for stale
// entries: every 5 seconds.
const ReapInterval = 5 * time.Second

// Manager owns the live-session set. The secure front end runs one
// goroutine per peer (each calling Put/Remove) alongside the reap loop
// and shutdown's CloseAll, so the set is guarded by mu rather than
// confined to a single goroutine.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	log      logger.Logger
}

// NewManager builds an empty live-session set reaping at timeout.
func NewManager(timeout time.Duration, log logger.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		log:      log,
	}
}

// Put registers an existing session under its peer address, replacing
// any session already stored for that address.
func (m *Manager) Put(s *Session) {
	m.mu.Lock()
	m.sessions[s.PeerAddr().String()] = s
	m.mu.Unlock()
}

// Get looks up a session by peer address, or (nil, false) if this is an
// unknown peer and a fresh handshake must begin.
func (m *Manager) Get(addr net.Addr) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[addr.String()]
	return s, ok
}

// Remove evicts a session from the live set without closing it; callers
// that also need the close-notify side effect should call Close first
// (or use ReapOnce, which does both).
func (m *Manager) Remove(addr net.Addr) {
	m.mu.Lock()
	delete(m.sessions, addr.String())
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ReapOnce walks the live set and evicts (Close + Remove) any session
// whose last activity is older than the configured timeout. It returns
// the peer addresses evicted this pass, for the connection-management
// DISCONNECT_NOTIFY the front end sends on eviction.
func (m *Manager) ReapOnce() []net.Addr {
	return m.ReapOnceNotify(nil)
}

type staleEntry struct {
	key string
	s   *Session
}

// ReapOnceNotify is ReapOnce with a hook invoked on each session just
// before it is closed and removed, letting the caller write a
// DISCONNECT_NOTIFY while the session's transport is still open to
// receive it.
func (m *Manager) ReapOnceNotify(notify func(*Session)) []net.Addr {
	deadline := time.Now().Add(-m.timeout)

	m.mu.Lock()
	var stale []staleEntry
	for key, s := range m.sessions {
		if s.LastActivity().Before(deadline) {
			stale = append(stale, staleEntry{key, s})
		}
	}
	for _, e := range stale {
		delete(m.sessions, e.key)
	}
	m.mu.Unlock()

	var evicted []net.Addr
	for _, e := range stale {
		addr := e.s.PeerAddr()
		if notify != nil {
			notify(e.s)
		}
		_ = e.s.Close()
		evicted = append(evicted, addr)
		m.log.Info("session reaped on timeout", logger.Fields{"peer": addr.String()})
	}
	return evicted
}

// Run walks the live set on ReapInterval until ctx is cancelled, sending
// notify (if non-nil) to each session before eviction. It is meant to
// run in its own goroutine, started by the secure front end.
func (m *Manager) Run(ctx context.Context, notify func(*Session)) {
	ticker := time.NewTicker(ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapOnceNotify(notify)
		}
	}
}

// CloseAll closes every live session, for server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
