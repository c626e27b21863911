package logging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/R3E-Network/pipeline-engine/internal/objectpool"
)

// DistributorConfig tunes the distributor's batch size and inter-pass
// pacing.
type DistributorConfig struct {
	DistributionBatchSize int
	DistributionDelayMs   int
}

func (c DistributorConfig) withDefaults() DistributorConfig {
	if c.DistributionBatchSize <= 0 {
		c.DistributionBatchSize = 128
	}
	if c.DistributionDelayMs < 0 {
		c.DistributionDelayMs = 0
	}
	return c
}

// distributor is the single long-lived task that drains the intake queue,
// converts each record to a Snapshot, and fans it out to every registered
// consumer before releasing the record back to the pool.
type distributor struct {
	cfg   DistributorConfig
	q     *queue
	pool  *objectpool.Pool[*MutableRecord]
	limiter *rate.Limiter

	consumers atomic.Pointer[[]Consumer]
	mu        sync.Mutex // guards consumer list mutation (add/remove), not delivery

	running atomic.Bool
	done    chan struct{}
}

func newDistributor(cfg DistributorConfig, pool *objectpool.Pool[*MutableRecord]) *distributor {
	cfg = cfg.withDefaults()
	d := &distributor{
		cfg:  cfg,
		q:    newQueue(),
		pool: pool,
		done: make(chan struct{}),
	}
	if cfg.DistributionDelayMs > 0 {
		d.limiter = rate.NewLimiter(rate.Every(time.Duration(cfg.DistributionDelayMs)*time.Millisecond), 1)
	}
	empty := []Consumer{}
	d.consumers.Store(&empty)
	return d
}

// Start launches the distributor's drain loop in its own goroutine.
func (d *distributor) Start() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	go d.run()
}

func (d *distributor) run() {
	for {
		batch := d.q.drain(d.cfg.DistributionBatchSize)
		if batch == nil {
			// queue closed and empty: shut down.
			close(d.done)
			return
		}
		d.deliverBatch(batch)
		if d.limiter != nil {
			_ = d.limiter.Wait(context.Background())
		}
	}
}

func (d *distributor) deliverBatch(batch []*MutableRecord) {
	consumers := *d.consumers.Load()
	for _, rec := range batch {
		snap := rec.ToImmutable()
		for _, c := range consumers {
			d.deliverOne(c, snap)
		}
		d.pool.Release(rec)
	}
}

func (d *distributor) deliverOne(c Consumer, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.OnError(snap, panicToError(r))
		}
	}()
	if err := c.OnEvent(snap); err != nil {
		c.OnError(snap, err)
	}
}

// emit enqueues rec for distribution. rec is owned by the distributor from
// this point forward; producers must not touch it again.
func (d *distributor) emit(rec *MutableRecord) {
	d.q.push(rec)
}

// addConsumer registers c under the copy-on-write consumer list and invokes
// OnAdded exactly once before returning.
func (d *distributor) addConsumer(m *Manager, c Consumer) {
	d.mu.Lock()
	cur := *d.consumers.Load()
	next := make([]Consumer, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, c)
	d.consumers.Store(&next)
	d.mu.Unlock()
	c.OnAdded(m)
}

// removeConsumer drops c from the consumer list, returning whether it was
// present, and invokes OnRemoved exactly once when it was.
func (d *distributor) removeConsumer(m *Manager, c Consumer) bool {
	d.mu.Lock()
	cur := *d.consumers.Load()
	idx := -1
	for i, existing := range cur {
		if existing == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return false
	}
	next := make([]Consumer, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	d.consumers.Store(&next)
	d.mu.Unlock()
	c.OnRemoved(m)
	return true
}

func (d *distributor) consumerCount() int {
	return len(*d.consumers.Load())
}

// shutdown waits up to graceMs for the intake backlog to empty, then closes
// the queue so further emits are discarded, waits for the drain loop to
// deliver every record still queued (this wait is not bounded by graceMs,
// and no record is dropped), notifies every remaining consumer via
// OnRemoved, and marks the distributor stopped.
func (d *distributor) shutdown(m *Manager, graceMs int) {
	if !d.running.Load() {
		return
	}
	deadline := time.Now().Add(time.Duration(graceMs) * time.Millisecond)
	for d.q.len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.q.close()
	<-d.done

	d.mu.Lock()
	cur := *d.consumers.Load()
	empty := []Consumer{}
	d.consumers.Store(&empty)
	d.mu.Unlock()

	for _, c := range cur {
		c.OnRemoved(m)
	}
	d.running.Store(false)
}

func (d *distributor) isRunning() bool {
	return d.running.Load()
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicValue{v: r}
}

type panicValue struct{ v interface{} }

func (p *panicValue) Error() string { return "consumer panic" }
