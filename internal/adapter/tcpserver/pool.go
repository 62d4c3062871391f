package tcpserver

import (
	"net"
	"sync"
	"time"

	"github.com/gridguard/leop-server/internal/adapter/observability"
	"github.com/gridguard/leop-server/internal/domain"
)

// PoolOptions sizes the worker pool. Zero values get the listed
// defaults.
type PoolOptions struct {
	Workers             int           // default 20
	MaxClientsPerWorker int           // default 50
	BufferSize          int           // default 1024
	IdleTimeout         time.Duration // default 5m
	PollInterval        time.Duration // default 1s
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.Workers <= 0 {
		o.Workers = 20
	}
	if o.MaxClientsPerWorker <= 0 {
		o.MaxClientsPerWorker = 50
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	return o
}

// WorkerPool distributes accepted connections across a fixed set of
// workers, always picking the least-loaded one.
type WorkerPool struct {
	workers    []*Worker
	maxClients int

	// mu serializes least-loaded selection only; workers decrement their
	// own counts concurrently, which can only make a selection stale-low.
	mu sync.Mutex
}

// NewWorkerPool builds a stopped pool.
func NewWorkerPool(opts PoolOptions, submitter Submitter) *WorkerPool {
	opts = opts.withDefaults()
	p := &WorkerPool{maxClients: opts.MaxClientsPerWorker}
	for i := 0; i < opts.Workers; i++ {
		p.workers = append(p.workers, newWorker(i, opts, submitter))
	}
	return p
}

// Start launches every worker loop.
func (p *WorkerPool) Start() {
	for _, w := range p.workers {
		w.start()
	}
}

// Add assigns conn to the worker with the smallest connection count,
// ties broken by worker index. Returns domain.ErrPoolFull when every
// worker is at capacity.
func (p *WorkerPool) Add(conn net.Conn) error {
	p.mu.Lock()
	var best *Worker
	for _, w := range p.workers {
		n := w.count.Load()
		if int(n) >= p.maxClients {
			continue
		}
		if best == nil || n < best.count.Load() {
			best = w
		}
	}
	if best == nil {
		p.mu.Unlock()
		return domain.ErrPoolFull
	}
	best.count.Add(1) // reserve before handing off
	p.mu.Unlock()

	observability.ConnectionsTotal.Inc()
	best.attach(conn)
	return nil
}

// Shutdown stops every worker and waits for each to close its
// connections and exit.
func (p *WorkerPool) Shutdown() {
	for _, w := range p.workers {
		close(w.stop)
	}
	for _, w := range p.workers {
		<-w.done
	}
}

// TotalConnections reports the number of attached connections across
// all workers.
func (p *WorkerPool) TotalConnections() int {
	total := 0
	for _, w := range p.workers {
		total += int(w.count.Load())
	}
	return total
}

// WorkerLoads reports per-worker connection counts, indexed by worker.
func (p *WorkerPool) WorkerLoads() []int {
	loads := make([]int, len(p.workers))
	for i, w := range p.workers {
		loads[i] = int(w.count.Load())
	}
	return loads
}
