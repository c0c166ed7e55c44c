// Package pool implements the connection buffer pool: a fixed array of
// per-connection read-state records linked by a free list, avoiding
// per-message malloc/free churn at the 5,000-class connection counts
// the stream transport targets.
//
// A raw pointer handle into a pool needs re-architecture in Go: here
// the pool is a contiguous slice (the arena) plus integer indices (the
// typed handles), and a fallback dynamic allocation is a distinct,
// explicitly tagged variant rather than a pointer that happens to fall
// outside the array.
package pool

import (
	"sync"

	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/wire"
)

// ConnState is the per-fd read-framing record ("Connection read
// state"). It is owned solely by the goroutine running the stream-mode
// accept/read loop; no locking is required.
type ConnState struct {
	// InUse is true while the record is checked out (i.e. not on the
	// free list).
	InUse bool

	// dynamic is true if this record was a pool-exhaustion fallback
	// allocation rather than a slot inside Pool.slots.
	dynamic bool

	// slot is this record's index in Pool.slots when !dynamic; it is the
	// typed index into the arena in place of a raw pointer.
	slot int

	// Reading state machine. HeaderBuf is sized for
	// the stream transport's 8-byte legacy header (wire.LegacyHeaderSize),
	// the only header format ever read through this pool — the secure
	// transport's 18-byte wire.Header goes through session, not framing.
	State         ReadState
	HeaderBuf     [wire.LegacyHeaderSize]byte
	HeaderRead    int
	Payload       []byte
	PayloadRead   int
	PayloadLength int
}

// ReadState enumerates the partial-read state machine.
type ReadState uint8

const (
	ReadingHeader ReadState = iota
	ReadingBody
)

// Reset returns a ConnState to its just-acquired, pre-header-parse state,
// ready for the next message on the same connection.
func (c *ConnState) Reset() {
	c.State = ReadingHeader
	c.HeaderRead = 0
	c.Payload = nil
	c.PayloadRead = 0
	c.PayloadLength = 0
}

// Pool is a fixed array of ConnState records accessed through a free
// list, with a logged fallback to dynamic allocation on exhaustion.
// Acquire/Release are called from one goroutine per accepted connection,
// so the free list needs its own lock; mu guards freeList and the
// slots it indexes into.
type Pool struct {
	mu       sync.Mutex
	slots    []ConnState
	freeList []int // indices of free slots, used as a stack
	log      logger.Logger
}

// New allocates a pool of size records, all initially free.
func New(size int, log logger.Logger) *Pool {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pool{
		slots:    make([]ConnState, size),
		freeList: make([]int, 0, size),
		log:      log,
	}
	for i := size - 1; i >= 0; i-- {
		p.freeList = append(p.freeList, i)
	}
	return p
}

// Acquire pops the head of the free list, resetting it to its initial
// state. If the pool is exhausted it falls back to a one-off dynamic
// allocation (logged as pool exhaustion) flagged so Release can tell the
// two apart.
func (p *Pool) Acquire() *ConnState {
	p.mu.Lock()
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		c := &p.slots[idx]
		*c = ConnState{slot: idx, InUse: true}
		p.mu.Unlock()
		return c
	}
	p.mu.Unlock()

	p.log.Warn("connection buffer pool exhausted, falling back to dynamic allocation")
	c := &ConnState{dynamic: true, InUse: true}
	return c
}

// Release returns buf to the pool (pushing its slot back onto the free
// list) or, if it was a dynamic fallback allocation, simply drops it.
// Release(nil) is a no-op.
func (p *Pool) Release(buf *ConnState) {
	if buf == nil {
		return
	}
	buf.Payload = nil
	buf.InUse = false

	if buf.dynamic {
		return
	}

	p.mu.Lock()
	p.freeList = append(p.freeList, buf.slot)
	p.mu.Unlock()
}

// Cleanup drops every remaining attached payload buffer and the pool
// array itself. After Cleanup the Pool must not be used.
func (p *Pool) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		p.slots[i].Payload = nil
	}
	p.slots = nil
	p.freeList = nil
}

// Size returns the fixed capacity the pool was built with.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Free returns the current free-list length, for diagnostics/tests.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.freeList)
}
