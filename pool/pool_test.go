package pool_test

import (
	"testing"

	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/pool"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := pool.New(2, logger.Nop())
	if p.Free() != 2 {
		t.Fatalf("expected 2 free, got %d", p.Free())
	}

	a := p.Acquire()
	if !a.InUse {
		t.Fatal("acquired record should be marked in use")
	}
	if p.Free() != 1 {
		t.Fatalf("expected 1 free after acquire, got %d", p.Free())
	}

	p.Release(a)
	if p.Free() != 2 {
		t.Fatalf("expected 2 free after release, got %d", p.Free())
	}
	if a.InUse {
		t.Fatal("released record should not be in use")
	}
}

func TestAcquireExhaustionFallsBackToDynamic(t *testing.T) {
	p := pool.New(1, logger.Nop())
	a := p.Acquire()
	b := p.Acquire() // pool exhausted, should fall back
	if b == nil {
		t.Fatal("exhausted pool should still return a usable record")
	}
	if p.Free() != 0 {
		t.Fatalf("free list should not grow from a dynamic fallback: %d", p.Free())
	}

	p.Release(a)
	if p.Free() != 1 {
		t.Fatalf("expected 1 free after releasing the pool slot, got %d", p.Free())
	}

	p.Release(b) // dynamic release should not touch the free list
	if p.Free() != 1 {
		t.Fatalf("releasing a dynamic record must not grow the free list: %d", p.Free())
	}
}

func TestReleaseNilIsNoOp(t *testing.T) {
	p := pool.New(1, logger.Nop())
	p.Release(nil) // must not panic
	if p.Free() != 1 {
		t.Fatalf("expected free list untouched, got %d", p.Free())
	}
}

func TestResetClearsFramingState(t *testing.T) {
	c := &pool.ConnState{}
	c.State = pool.ReadingBody
	c.HeaderRead = 18
	c.Payload = []byte{1, 2, 3}
	c.PayloadRead = 3
	c.PayloadLength = 3

	c.Reset()

	if c.State != pool.ReadingHeader || c.HeaderRead != 0 || c.Payload != nil || c.PayloadRead != 0 || c.PayloadLength != 0 {
		t.Fatalf("Reset left stale state: %+v", c)
	}
}
