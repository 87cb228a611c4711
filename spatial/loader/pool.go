// Package loader is the async worker pool that services octree load requests
// (§4.4). Grounded on OctreePointCloudManager's LoadingTask/queue/worker-thread
// design (original_source/StereoVista's std::mutex + std::condition_variable
// task queue), kept as a mutex+sync.Cond FIFO rather than the teacher's own
// channel-based pool in particles_ecs.go: §5 names "task queue: mutex +
// condition variable" as the concurrency primitive explicitly, so this is the
// one place the spec's own resource-model wording outweighs the teacher's
// usual channel idiom.
package loader

import (
	"runtime"
	"sync"

	"github.com/gekko3d/spatialcore/spatial/core"
)

// Loadable is the sliver of octree.Node the pool needs to run a load task
// without importing octree (which enqueues into the pool and would cycle
// back here otherwise).
type Loadable interface {
	ID() uint64
	IsLoaded() bool
	IsOnDisk() bool
	// Load populates the node's resident payload from the point store the
	// node itself was constructed with, and stamps memory/last-accessed.
	Load() error
}

// Pool is a fixed-size FIFO worker pool, one per process (§9 "Global mutable
// state"): callers construct one and hand a *Pool to every octree that needs
// loading, rather than relying on package-level state.
type Pool struct {
	mu           sync.Mutex
	cond         *sync.Cond
	queue        []Loadable
	inFlight     map[uint64]struct{}
	shuttingDown bool

	completedMu sync.Mutex
	completed   []Loadable

	wg         sync.WaitGroup
	workers    int
	logger     core.Logger
	started    bool
}

// New builds a pool sized max(2, GOMAXPROCS/2), per §4.4. Workers are not
// started until Init is called — lifecycle must be observable, not implicit.
func New(logger core.Logger) *Pool {
	if logger == nil {
		logger = core.NopLogger{}
	}
	workers := runtime.GOMAXPROCS(0) / 2
	if workers < 2 {
		workers = 2
	}
	p := &Pool{
		inFlight: make(map[uint64]struct{}),
		workers:  workers,
		logger:   logger,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Init starts the worker goroutines. Calling Init twice is a no-op.
func (p *Pool) Init() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.workerLoop()
	}
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.shuttingDown {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.shuttingDown {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if err := task.Load(); err != nil {
			// Never propagates: the node simply stays unloaded and may be
			// re-enqueued on a later frame (§4.4).
			p.logger.Warnf("loader: failed to load node %d: %v", task.ID(), err)
		}

		p.mu.Lock()
		delete(p.inFlight, task.ID())
		p.mu.Unlock()

		p.completedMu.Lock()
		p.completed = append(p.completed, task)
		p.completedMu.Unlock()
	}
}

// Enqueue is idempotent in effect: if the node is already loaded, already
// in-flight, or not on disk, the call is silently dropped (§4.4).
func (p *Pool) Enqueue(node Loadable) {
	if node.IsLoaded() || !node.IsOnDisk() {
		return
	}

	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return
	}
	if _, inFlight := p.inFlight[node.ID()]; inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight[node.ID()] = struct{}{}
	p.queue = append(p.queue, node)
	p.mu.Unlock()

	p.cond.Signal()
}

// InFlightCount reports how many tasks are currently queued or being worked.
// Exposed for tests asserting idempotent-enqueue behavior.
func (p *Pool) InFlightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}

// QueueDepth reports how many tasks are waiting for a free worker.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// DrainCompleted returns and clears the set of tasks that finished (in any
// order) since the last call. Called once per frame by the traversal driver.
func (p *Pool) DrainCompleted() []Loadable {
	p.completedMu.Lock()
	defer p.completedMu.Unlock()
	out := p.completed
	p.completed = nil
	return out
}

// Shutdown drains the queue and joins every worker. No new enqueues are
// accepted once shutdown has begun.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shuttingDown = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
