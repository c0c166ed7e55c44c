package session

import (
	"net"
	"testing"
	"time"

	"github.com/mgreenly/space-captain/logger"
)

type fakeAddr string

func (f fakeAddr) Network() string { return "udp" }
func (f fakeAddr) String() string  { return string(f) }

func newFakeSession(addr net.Addr, lastActivity time.Time) *Session {
	return &Session{
		addr:              addr,
		state:             StateEstablished,
		handshakeComplete: true,
		lastActivity:      lastActivity,
	}
}

func TestManagerPutGetRemove(t *testing.T) {
	m := NewManager(time.Second, logger.Nop())
	addr := fakeAddr("127.0.0.1:9999")
	s := newFakeSession(addr, time.Now())

	m.Put(s)
	if got, ok := m.Get(addr); !ok || got != s {
		t.Fatalf("expected to find the session just put")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", m.Len())
	}

	m.Remove(addr)
	if _, ok := m.Get(addr); ok {
		t.Fatal("expected session to be gone after Remove")
	}
}

func TestManagerReapsStaleSessions(t *testing.T) {
	m := NewManager(30*time.Millisecond, logger.Nop())

	stale := newFakeSession(fakeAddr("10.0.0.1:1"), time.Now().Add(-time.Hour))
	fresh := newFakeSession(fakeAddr("10.0.0.2:1"), time.Now())
	m.Put(stale)
	m.Put(fresh)

	evicted := m.ReapOnce()
	if len(evicted) != 1 || evicted[0].String() != "10.0.0.1:1" {
		t.Fatalf("expected exactly the stale session evicted, got %v", evicted)
	}
	if _, ok := m.Get(fakeAddr("10.0.0.2:1")); !ok {
		t.Fatal("fresh session should not have been reaped")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 remaining session, got %d", m.Len())
	}
}
