package worker

import (
	"net"
	"sync"
	"time"

	"github.com/mgreenly/space-captain/logger"
	"github.com/mgreenly/space-captain/queue"
	"github.com/mgreenly/space-captain/state"
)

// identifiable is satisfied by origins that can name their peer (the
// secure session transport); the legacy stream transport has no stable
// peer identity, so its WorkItems use the zero-value originID.
type identifiable interface {
	PeerAddr() net.Addr
}

// Recorder receives dispatch observations; metrics.Collector implements
// it. Defined here rather than imported from metrics so the worker
// package never needs to depend on the Prometheus client directly.
type Recorder interface {
	ObserveQueueDepth(n int)
	IncDispatch(messageType string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveQueueDepth(int) {}
func (nopRecorder) IncDispatch(string)    {}

// Pool is a fixed set of goroutines draining a queue.Queue and
// dispatching each WorkItem through a Table. Workers never talk to the
// network front end directly, only through the item's Origin.
type Pool struct {
	q     *queue.Queue
	table Table
	store *state.Store
	log   logger.Logger
	rec   Recorder

	wg   sync.WaitGroup
	done chan struct{}
}

// New builds a Pool reading from q, dispatching via table, against store.
func New(q *queue.Queue, table Table, store *state.Store, log logger.Logger) *Pool {
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{q: q, table: table, store: store, log: log, rec: nopRecorder{}, done: make(chan struct{})}
}

// SetRecorder attaches a metrics Recorder; pass nil to detach (restoring
// the no-op default). Call before Start to avoid racing with running
// workers.
func (p *Pool) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	p.rec = r
}

// Start launches n worker goroutines. Each blocks on q.Pop with the
// default timeout, re-checking for shutdown between pops so Stop returns
// promptly even under an idle queue.
func (p *Pool) Start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	log := p.log.WithField("worker_id", id)
	for {
		select {
		case <-p.done:
			return
		default:
		}

		item, err := p.q.Pop(queue.DefaultPopTimeout)
		if err != nil {
			continue
		}
		p.rec.ObserveQueueDepth(p.q.Size())
		p.process(log, item)
	}
}

func (p *Pool) process(log logger.Logger, item queue.WorkItem) {
	t := item.Message.Header.MessageType
	handler, ok := p.table[t]
	if !ok {
		log.Warn("dispatch failed", logger.Fields{"error": unknownTypeErr(t).Error()})
		return
	}

	originID := ""
	if a, ok := item.Origin.(identifiable); ok {
		originID = a.PeerAddr().String()
	}

	p.rec.IncDispatch(t.String())
	resp, err := handler(originID, p.store, item.Message)
	if err != nil {
		log.Debug("handler produced no response", logger.Fields{"message_type": t.String(), "error": err.Error()})
		return
	}

	if err := item.Origin.WriteMessage(resp); err != nil {
		log.Error("response send failed", err, logger.Fields{"message_type": t.String()})
		return
	}
	log.Info("handled request", logger.Fields{
		"request_type":  t.String(),
		"response_type": resp.Header.MessageType.String(),
	})
}

// Stop signals every worker to exit after its current (or next) Pop
// returns, and waits for all of them to drain. Items still queued are
// abandoned; call q.NukeWithCleanup separately if they need draining.
func (p *Pool) Stop(timeout time.Duration) {
	close(p.done)
	waited := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(timeout):
		p.log.Warn("worker pool stop timed out")
	}
}
