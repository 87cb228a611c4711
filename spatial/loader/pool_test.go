package loader

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoadable struct {
	id       uint64
	loaded   atomic.Bool
	onDisk   bool
	loadErr  error
	loadHits atomic.Int32
	block    chan struct{}
}

func (f *fakeLoadable) ID() uint64     { return f.id }
func (f *fakeLoadable) IsLoaded() bool { return f.loaded.Load() }
func (f *fakeLoadable) IsOnDisk() bool { return f.onDisk }
func (f *fakeLoadable) Load() error {
	f.loadHits.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded.Store(true)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestEnqueueLoadsNode(t *testing.T) {
	p := New(nil)
	p.Init()
	defer p.Shutdown()

	n := &fakeLoadable{id: 1, onDisk: true}
	p.Enqueue(n)

	waitFor(t, func() bool { return n.IsLoaded() })
	waitFor(t, func() bool { return p.InFlightCount() == 0 })

	completed := p.DrainCompleted()
	require.Len(t, completed, 1)
	assert.Equal(t, uint64(1), completed[0].ID())
}

func TestEnqueueDropsWhenNotOnDisk(t *testing.T) {
	p := New(nil)
	p.Init()
	defer p.Shutdown()

	n := &fakeLoadable{id: 2, onDisk: false}
	p.Enqueue(n)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), n.loadHits.Load())
	assert.Equal(t, 0, p.InFlightCount())
}

func TestEnqueueDropsWhenAlreadyLoaded(t *testing.T) {
	p := New(nil)
	p.Init()
	defer p.Shutdown()

	n := &fakeLoadable{id: 3, onDisk: true}
	n.loaded.Store(true)
	p.Enqueue(n)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), n.loadHits.Load())
}

func TestIdempotentEnqueueWhileInFlight(t *testing.T) {
	p := New(nil)
	p.Init()
	defer p.Shutdown()

	n := &fakeLoadable{id: 4, onDisk: true, block: make(chan struct{})}
	p.Enqueue(n)
	waitFor(t, func() bool { return n.loadHits.Load() == 1 })

	depthBefore := p.QueueDepth()
	inFlightBefore := p.InFlightCount()

	p.Enqueue(n) // node is in-flight; must be a no-op
	p.Enqueue(n)

	assert.Equal(t, depthBefore, p.QueueDepth())
	assert.Equal(t, inFlightBefore, p.InFlightCount())
	assert.Equal(t, int32(1), n.loadHits.Load())

	close(n.block)
	waitFor(t, func() bool { return n.IsLoaded() })
}

func TestLoadFailureLeavesNodeUnloadedAndRetriable(t *testing.T) {
	p := New(nil)
	p.Init()
	defer p.Shutdown()

	n := &fakeLoadable{id: 5, onDisk: true, loadErr: assert.AnError}
	p.Enqueue(n)
	waitFor(t, func() bool { return n.loadHits.Load() == 1 })
	waitFor(t, func() bool { return p.InFlightCount() == 0 })

	require.False(t, n.IsLoaded())

	n.loadErr = nil
	p.Enqueue(n)
	waitFor(t, func() bool { return n.IsLoaded() })
}

func TestShutdownDrainsQueueAndJoinsWorkers(t *testing.T) {
	p := New(nil)
	p.Init()

	nodes := make([]*fakeLoadable, 10)
	for i := range nodes {
		nodes[i] = &fakeLoadable{id: uint64(i + 100), onDisk: true}
		p.Enqueue(nodes[i])
	}

	p.Shutdown()

	for _, n := range nodes {
		assert.True(t, n.IsLoaded())
	}
}
