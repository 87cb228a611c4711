package octree

import (
	"errors"

	"github.com/gekko3d/spatialcore/spatial/cache"
	"github.com/gekko3d/spatialcore/spatial/core"
)

// Save persists the node's resident payload if it isn't already on disk; a
// no-op otherwise (cache.Node contract, §4.2).
func (n *Node) Save() error {
	if n.IsOnDisk() {
		return nil
	}
	path, err := n.store.Save(n.id, n.Points())
	if err != nil {
		return err
	}
	n.diskPath = path
	n.isOnDisk.Store(true)
	return nil
}

// Unload frees GPU buffers, clears the resident payload and marks the node
// not-loaded (cache.Node contract, §3 "GPU buffers may be freed independently
// of is_loaded going false, but is_loaded == false requires GPU buffers to
// also be freed").
func (n *Node) Unload() {
	n.mu.Lock()
	n.points = nil
	n.mu.Unlock()

	for i := range n.lodBuffers {
		n.lodBuffers[i].Release()
		n.lodBuffers[i] = nil
	}
	n.vbosGenerated = false
	n.memoryBytes.Store(0)
	n.loaded.Store(false)
}

// Load reads the node's file back into memory (loader.Loadable contract,
// §4.4). A FormatError marks the node unloadable for the rest of the session
// (§7): it is reported here but IsOnDisk flips false so the loader's own
// on-disk gate keeps it from being silently re-enqueued forever.
func (n *Node) Load() error {
	points, err := n.store.Load(n.id)
	if err != nil {
		var se *core.Error
		if errors.As(err, &se) && se.Kind == core.KindFormat {
			n.isOnDisk.Store(false)
		}
		return err
	}

	bytes := int64(len(points) * core.PointByteSize)

	// points and memoryBytes are published before loaded flips true, so any
	// reader that observes IsLoaded() == true also observes a consistent
	// payload and byte count (§5 "published together under release
	// semantics").
	n.mu.Lock()
	n.points = points
	n.mu.Unlock()
	n.memoryBytes.Store(bytes)
	n.loaded.Store(true)
	n.lastAccessed.Store(cache.Now())

	if n.budget != nil {
		n.budget.Add(bytes)
	}
	return nil
}
