// Package cache tracks the resident byte budget for an octree's loaded leaves
// and evicts the coldest ones under memory pressure (§4.2). Grounded on
// OctreePointCloudManager's collectLoadedNodes/unloadOldestNodes/
// collectMemoryUsage (original_source/StereoVista).
package cache

import (
	"sort"
	"sync/atomic"

	"github.com/gekko3d/spatialcore/spatial/core"
)

// Node is the sliver of octree.Node behavior the budget needs to evict a
// leaf without cache importing octree (which would cycle back here).
type Node interface {
	IsLoaded() bool
	IsOnDisk() bool
	LastAccessedNanos() int64
	MemoryBytes() int64
	// Touch sets LastAccessedNanos to nowNanos.
	Touch(nowNanos int64)
	// Save persists the node if it isn't already on disk; a no-op otherwise.
	Save() error
	// Unload frees GPU buffers, clears the resident payload and marks the
	// node not-loaded. Called only after Save has succeeded (or the node was
	// already on disk).
	Unload()
}

// MarkAccessed stamps a node's last-accessed timestamp with the current time.
// last_accessed_ts is a best-effort hint (§5): concurrent writers from the
// loader and readers from eviction sort are tolerated without extra locking.
func MarkAccessed(n Node) { n.Touch(Now()) }

// Budget is the soft cap on total resident point storage (§4.2).
type Budget struct {
	maxBytes int64
	current  atomic.Int64
	logger   core.Logger
}

func NewBudget(maxBytes int64, logger core.Logger) *Budget {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Budget{maxBytes: maxBytes, logger: logger}
}

func (b *Budget) MaxBytes() int64 { return b.maxBytes }

// Current is the running byte counter. It is kept consistent by Add/Sub being
// called exactly once per load/unload, which the spec permits in place of a
// full tree traversal on every query.
func (b *Budget) Current() int64 { return b.current.Load() }

// Add records that a node's payload became resident.
func (b *Budget) Add(bytes int64) { b.current.Add(bytes) }

// Sub records that a node's payload was freed.
func (b *Budget) Sub(bytes int64) { b.current.Add(-bytes) }

// EnsureWithinBudget evicts down to 80% of MaxBytes if current usage exceeds
// MaxBytes. leaves is every currently-loaded leaf in the tree (the caller is
// responsible for the traversal that collects them, since only the octree
// knows its own shape).
func (b *Budget) EnsureWithinBudget(leaves []Node) int64 {
	if b.Current() <= b.maxBytes {
		return 0
	}
	return b.EvictTo(leaves, int64(0.8*float64(b.maxBytes)))
}

// EvictTo sorts loaded leaves by ascending LastAccessedNanos (oldest first)
// and evicts until Current() <= target or every candidate has been tried.
// A save failure leaves that leaf resident and the loop moves to the next
// oldest candidate instead of retrying the same one (the forward-progress
// guard called for in the spec's open questions) — so one permanently
// unsavable leaf can't spin the loop forever.
func (b *Budget) EvictTo(leaves []Node, target int64) int64 {
	loaded := make([]Node, 0, len(leaves))
	for _, n := range leaves {
		if n.IsLoaded() {
			loaded = append(loaded, n)
		}
	}
	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].LastAccessedNanos() < loaded[j].LastAccessedNanos()
	})

	var freed int64
	for _, n := range loaded {
		if b.Current() <= target {
			break
		}
		bytes := n.MemoryBytes()
		if !n.IsOnDisk() {
			if err := n.Save(); err != nil {
				b.logger.Warnf("cache: failed to save node before eviction, leaving resident: %v", err)
				continue
			}
		}
		n.Unload()
		b.Sub(bytes)
		freed += bytes
	}
	return freed
}
