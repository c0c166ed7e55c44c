package queue_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/queue"
	"github.com/mgreenly/space-captain/wire"
)

func item(seq uint32) queue.WorkItem {
	return queue.WorkItem{Message: wire.Message{Header: wire.Header{SequenceNumber: seq}}}
}

func TestNewRejectsInvalidCapacity(t *testing.T) {
	if _, err := queue.New(0); errs.CodeOf(err) != errs.CodeQueueInvalidCapacity {
		t.Fatalf("expected CodeQueueInvalidCapacity, got %v", err)
	}
	if _, err := queue.New(-1); errs.CodeOf(err) != errs.CodeQueueInvalidCapacity {
		t.Fatalf("expected CodeQueueInvalidCapacity, got %v", err)
	}
	if _, err := queue.New(queue.MaxCapacity + 1); errs.CodeOf(err) != errs.CodeQueueCapacityOverflow {
		t.Fatalf("expected CodeQueueCapacityOverflow, got %v", err)
	}
}

func TestEmptyQueueState(t *testing.T) {
	q, err := queue.New(4)
	if err != nil {
		t.Fatal(err)
	}
	if q.Size() != 0 || !q.IsEmpty() || q.IsFull() {
		t.Fatalf("new queue should be empty: size=%d empty=%v full=%v", q.Size(), q.IsEmpty(), q.IsFull())
	}
}

func TestTryAddFullDoesNotModifySize(t *testing.T) {
	q, _ := queue.New(2)
	if err := q.TryAdd(item(1)); err != nil {
		t.Fatal(err)
	}
	if err := q.TryAdd(item(2)); err != nil {
		t.Fatal(err)
	}
	sizeBefore := q.Size()
	if err := q.TryAdd(item(3)); errs.CodeOf(err) != errs.CodeQueueFull {
		t.Fatalf("expected CodeQueueFull, got %v", err)
	}
	if q.Size() != sizeBefore {
		t.Fatalf("size changed on failed TryAdd: before=%d after=%d", sizeBefore, q.Size())
	}
}

func TestTryPopEmptyDoesNotModifySize(t *testing.T) {
	q, _ := queue.New(2)
	if _, err := q.TryPop(); errs.CodeOf(err) != errs.CodeQueueEmpty {
		t.Fatalf("expected CodeQueueEmpty, got %v", err)
	}
	if q.Size() != 0 {
		t.Fatalf("size changed on failed TryPop: %d", q.Size())
	}
}

func TestFIFOOrder(t *testing.T) {
	q, _ := queue.New(8)
	for i := uint32(1); i <= 5; i++ {
		if err := q.TryAdd(item(i)); err != nil {
			t.Fatal(err)
		}
	}
	for i := uint32(1); i <= 5; i++ {
		got, err := q.TryPop()
		if err != nil {
			t.Fatal(err)
		}
		if got.Message.Header.SequenceNumber != i {
			t.Fatalf("FIFO violated: got seq %d, want %d", got.Message.Header.SequenceNumber, i)
		}
	}
}

func TestBlockingPopTimesOut(t *testing.T) {
	q, _ := queue.New(2)
	start := time.Now()
	_, err := q.Pop(300 * time.Millisecond)
	elapsed := time.Since(start)
	if errs.CodeOf(err) != errs.CodeQueueTimeout {
		t.Fatalf("expected CodeQueueTimeout, got %v", err)
	}
	if elapsed < 300*time.Millisecond {
		t.Fatalf("returned before deadline: %v", elapsed)
	}
	if elapsed > 300*time.Millisecond+500*time.Millisecond {
		t.Fatalf("returned too long after deadline: %v", elapsed)
	}
}

func TestBackpressureUnblocksOnPop(t *testing.T) {
	q, _ := queue.New(2)
	if err := q.TryAdd(item(1)); err != nil {
		t.Fatal(err)
	}
	if err := q.TryAdd(item(2)); err != nil {
		t.Fatal(err)
	}

	addDone := make(chan error, 1)
	go func() {
		addDone <- q.Add(item(3), 2*time.Second)
	}()

	// Give the blocked Add time to actually park on the condition
	// variable before we drain a slot.
	time.Sleep(50 * time.Millisecond)

	if _, err := q.Pop(time.Second); err != nil {
		t.Fatalf("Pop: %v", err)
	}

	select {
	case err := <-addDone:
		if err != nil {
			t.Fatalf("blocked Add failed: %v", err)
		}
	case <-time.After(2*time.Second + 500*time.Millisecond):
		t.Fatal("blocked Add never unblocked after Pop freed a slot")
	}
}

func TestConcurrentProducersConsumersPreserveMultiset(t *testing.T) {
	q, _ := queue.New(16)
	const perProducer = 200
	const producers = 4

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				seq := uint32(p*perProducer + i)
				for q.Add(item(seq), time.Second) != nil {
				}
			}
		}(p)
	}

	total := producers * perProducer
	seen := make(map[uint32]bool)
	var mu sync.Mutex
	var wg2 sync.WaitGroup
	for c := 0; c < producers; c++ {
		wg2.Add(1)
		go func() {
			defer wg2.Done()
			for {
				mu.Lock()
				if len(seen) >= total {
					mu.Unlock()
					return
				}
				mu.Unlock()
				got, err := q.Pop(200 * time.Millisecond)
				if err != nil {
					continue
				}
				mu.Lock()
				seen[got.Message.Header.SequenceNumber] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	wg2.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct items popped, got %d", total, len(seen))
	}
}

func TestNukeWithCleanupInvokesOncePerItem(t *testing.T) {
	q, _ := queue.New(4)
	for i := uint32(1); i <= 3; i++ {
		_ = q.TryAdd(item(i))
	}
	var called []uint32
	q.NukeWithCleanup(func(wi queue.WorkItem) {
		called = append(called, wi.Message.Header.SequenceNumber)
	})
	if len(called) != 3 {
		t.Fatalf("expected cleanup called 3 times, got %d", len(called))
	}
}

func TestNukeWithCleanupOnEmptyQueueNeverCalled(t *testing.T) {
	q, _ := queue.New(4)
	called := false
	q.NukeWithCleanup(func(wi queue.WorkItem) { called = true })
	if called {
		t.Fatal("cleanup should never be invoked on an empty queue")
	}
}

func TestAddAfterNukeReturnsClosed(t *testing.T) {
	q, _ := queue.New(2)
	q.Nuke()
	err := q.Add(item(1), time.Second)
	if !errors.Is(err, errs.New(errs.CodeQueueClosed, "")) {
		t.Fatalf("expected CodeQueueClosed, got %v", err)
	}
}
