package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	id         int
	loaded     bool
	onDisk     bool
	bytes      int64
	accessedAt int64
	saveErr    error
	saveCalls  int
	unloaded   bool
}

func (f *fakeNode) IsLoaded() bool            { return f.loaded }
func (f *fakeNode) IsOnDisk() bool            { return f.onDisk }
func (f *fakeNode) LastAccessedNanos() int64  { return f.accessedAt }
func (f *fakeNode) MemoryBytes() int64        { return f.bytes }
func (f *fakeNode) Touch(nowNanos int64)      { f.accessedAt = nowNanos }
func (f *fakeNode) Save() error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.onDisk = true
	return nil
}
func (f *fakeNode) Unload() {
	f.unloaded = true
	f.loaded = false
	f.bytes = 0
}

func TestEvictToPicksOldestFirst(t *testing.T) {
	b := NewBudget(1000, nil)
	b.Add(300)

	old := &fakeNode{id: 1, loaded: true, onDisk: true, bytes: 100, accessedAt: 1}
	mid := &fakeNode{id: 2, loaded: true, onDisk: true, bytes: 100, accessedAt: 2}
	young := &fakeNode{id: 3, loaded: true, onDisk: true, bytes: 100, accessedAt: 3}

	freed := b.EvictTo([]Node{mid, young, old}, 200)

	assert.True(t, old.unloaded, "oldest node should be evicted first")
	assert.False(t, young.unloaded, "youngest node should survive")
	assert.Equal(t, int64(100), freed)
	assert.Equal(t, int64(200), b.Current())
}

func TestEnsureWithinBudgetNoOpWhenUnderCap(t *testing.T) {
	b := NewBudget(1000, nil)
	b.Add(500)
	n := &fakeNode{loaded: true, onDisk: true, bytes: 500}
	freed := b.EnsureWithinBudget([]Node{n})
	assert.Equal(t, int64(0), freed)
	assert.False(t, n.unloaded)
}

func TestEnsureWithinBudgetEvictsToEightyPercent(t *testing.T) {
	b := NewBudget(1000, nil)
	b.Add(1200)

	a := &fakeNode{loaded: true, onDisk: true, bytes: 600, accessedAt: 1}
	c := &fakeNode{loaded: true, onDisk: true, bytes: 600, accessedAt: 2}

	b.EnsureWithinBudget([]Node{a, c})

	assert.LessOrEqual(t, b.Current(), int64(800))
	assert.True(t, a.unloaded)
}

func TestEvictToSavesUnsavedLeafFirst(t *testing.T) {
	b := NewBudget(1000, nil)
	b.Add(100)
	n := &fakeNode{loaded: true, onDisk: false, bytes: 100, accessedAt: 1}

	b.EvictTo([]Node{n}, 0)

	require.Equal(t, 1, n.saveCalls)
	assert.True(t, n.onDisk)
	assert.True(t, n.unloaded)
}

func TestEvictToSkipsNodeWhoseSaveFailsAndContinues(t *testing.T) {
	b := NewBudget(1000, nil)
	b.Add(200)

	broken := &fakeNode{loaded: true, onDisk: false, bytes: 100, accessedAt: 1, saveErr: errors.New("disk full")}
	ok := &fakeNode{loaded: true, onDisk: true, bytes: 100, accessedAt: 2}

	freed := b.EvictTo([]Node{broken, ok}, 0)

	assert.False(t, broken.unloaded, "save failure must leave the node resident")
	assert.True(t, ok.unloaded, "eviction loop must continue past the failed candidate")
	assert.Equal(t, int64(100), freed)
}

func TestEvictToIgnoresNonLoadedCandidates(t *testing.T) {
	b := NewBudget(1000, nil)
	b.Add(100)
	notLoaded := &fakeNode{loaded: false, onDisk: true, bytes: 9999, accessedAt: 1}

	freed := b.EvictTo([]Node{notLoaded}, 0)

	assert.Equal(t, int64(0), freed)
	assert.False(t, notLoaded.unloaded)
}
