// Package octree is an adaptive spatial partition over a point cloud:
// subdivides until a per-node point cap, stores per-node LOD subsamples, and
// answers view-dependent traversal queries (§4.3). Grounded on
// original_source/StereoVista's OctreePointCloudManager/PointCloudOctreeNode,
// re-expressed with the teacher's resource-owns-its-dependencies idiom (a
// Node holds the *pointstore.Store, *cache.Budget and *loader.Pool it was
// built with, rather than reaching for package-level state).
package octree

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/spatialcore/spatial/cache"
	"github.com/gekko3d/spatialcore/spatial/core"
	"github.com/gekko3d/spatialcore/spatial/gpubuf"
	"github.com/gekko3d/spatialcore/spatial/loader"
	"github.com/gekko3d/spatialcore/spatial/pointstore"
)

// LODLevels is the fixed number of level-of-detail bands per leaf (§3, §4.3);
// resolved to 5 from original_source's lodPointCounts/lodVBOs/lodDistances
// arrays (see DESIGN.md).
const LODLevels = 5

// octant indexes a cube's 8 children: bit0=+x, bit1=+y, bit2=+z (§3, GLOSSARY).
type octant int

// Node is one octree node. Leaves additionally own a resident point payload
// and lazily-created GPU buffers; internal nodes never carry either.
type Node struct {
	id       uint64
	depth    int
	center   mgl32.Vec3
	halfExt  mgl32.Vec3
	isLeaf   bool
	children [8]*Node

	totalPointCount int

	mu     sync.RWMutex
	points []core.Point

	lodCounts     [LODLevels]int
	lodBuffers    [LODLevels]*gpubuf.Buffer
	vbosGenerated bool

	isOnDisk atomic.Bool
	diskPath string

	loaded       atomic.Bool
	memoryBytes  atomic.Int64
	lastAccessed atomic.Int64

	store  *pointstore.Store
	budget *cache.Budget
	pool   *loader.Pool
	logger core.Logger
}

// ID is the node's stable, monotonically-assigned build-time identifier; also
// the on-disk filename key (§3).
func (n *Node) ID() uint64 { return n.id }

// Depth is the node's distance from the root (root = 0).
func (n *Node) Depth() int { return n.depth }

// Center and HalfExtent describe the node's axis-aligned cube.
func (n *Node) Center() mgl32.Vec3     { return n.center }
func (n *Node) HalfExtent() mgl32.Vec3 { return n.halfExt }

func (n *Node) Bounds() core.AABB {
	return core.AABB{Min: n.center.Sub(n.halfExt), Max: n.center.Add(n.halfExt)}
}

// IsLeaf reports whether this node terminates the partition.
func (n *Node) IsLeaf() bool { return n.isLeaf }

// Children returns the node's 8 octants; nil entries are routeless (no point
// was ever assigned to that octant).
func (n *Node) Children() [8]*Node { return n.children }

// TotalPointCount is the invariant count: for internal nodes, the sum over
// children; for leaves, the number of points originally routed here (§3).
func (n *Node) TotalPointCount() int { return n.totalPointCount }

// IsOnDisk reports whether a disk copy of this leaf's payload exists. It also
// reads false once a load has failed with a FormatError (§7): the node is
// then unloadable for the rest of the session and the loader's on-disk gate
// is what keeps it from being re-enqueued.
func (n *Node) IsOnDisk() bool { return n.isOnDisk.Load() }

// DiskPath is the file this leaf was (or will be) saved to; empty for
// internal nodes.
func (n *Node) DiskPath() string { return n.diskPath }

// IsLoaded satisfies both cache.Node and loader.Loadable.
func (n *Node) IsLoaded() bool { return n.loaded.Load() }

// MemoryBytes is the resident payload size; 0 when not loaded.
func (n *Node) MemoryBytes() int64 { return n.memoryBytes.Load() }

// LastAccessedNanos is the best-effort LRU timestamp (§5, §9 Open Questions).
func (n *Node) LastAccessedNanos() int64 { return n.lastAccessed.Load() }

// Touch stamps the last-accessed timestamp; called by cache.MarkAccessed.
func (n *Node) Touch(nowNanos int64) { n.lastAccessed.Store(nowNanos) }

// VBOsGenerated reports whether GPU buffers have been created for this leaf.
func (n *Node) VBOsGenerated() bool { return n.vbosGenerated }

// Points returns the resident payload. Only meaningful while IsLoaded().
func (n *Node) Points() []core.Point {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.points
}

// LODCount returns the subsample size for LOD level i.
func (n *Node) LODCount(i int) int { return n.lodCounts[i] }

func childCenterOffset(o octant, halfExt mgl32.Vec3) mgl32.Vec3 {
	sign := func(bit int) float32 {
		if int(o)&bit != 0 {
			return 1
		}
		return -1
	}
	return mgl32.Vec3{
		sign(1) * halfExt.X() * 0.5,
		sign(2) * halfExt.Y() * 0.5,
		sign(4) * halfExt.Z() * 0.5,
	}
}

// octantOf classifies p against center using >= tie-break on each axis (§4.3
// step 2).
func octantOf(p, center mgl32.Vec3) octant {
	var o octant
	if p.X() >= center.X() {
		o |= 1
	}
	if p.Y() >= center.Y() {
		o |= 2
	}
	if p.Z() >= center.Z() {
		o |= 4
	}
	return o
}
