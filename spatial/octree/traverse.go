package octree

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/spatialcore/spatial/cache"
	"github.com/gekko3d/spatialcore/spatial/gpubuf"
	"github.com/gekko3d/spatialcore/spatial/loader"
)

// LODDistances holds the 5 per-level view distances, the multiplier the
// camera distance is divided by before it is compared with them, and a base
// point size (§4.3, §6 "Traversal inputs").
type LODDistances struct {
	Distances    [LODLevels]float32
	Multiplier   float32
	BasePointSize float32
}

// scaled returns the view distance for level i that the multiplier-scaled
// camera distance is compared with. The multiplier is applied once, to the
// camera distance (lodMultiplierOrOne), and not to the distances as well.
func (d LODDistances) scaled(i int) float32 {
	return d.Distances[i]
}

func densityMul(n *Node) float32 {
	volume := float64(8 * n.halfExt.X() * n.halfExt.Y() * n.halfExt.Z())
	density := 0.0
	if volume > 0 {
		density = float64(n.totalPointCount) / volume
	}
	switch {
	case density > 500:
		return 1.8
	case density > 100:
		return 1.4
	case density < 20:
		return 0.6
	default:
		return 1.0
	}
}

// UpdateLOD is the per-frame depth-first traversal that decides what to keep
// resident and what to (idempotently) request a load for (§4.3
// "Per-frame traversal (update_lod)").
func (t *Tree) UpdateLOD(cameraPos mgl32.Vec3, lod LODDistances) {
	if t.Root == nil {
		return
	}
	updateLODRecursive(t.Root, cameraPos, lod, t.pool)
}

func updateLODRecursive(n *Node, cameraPos mgl32.Vec3, lod LODDistances, pool *loader.Pool) {
	d := n.Bounds().DistanceTo(cameraPos) / lodMultiplierOrOne(lod)

	if d > lod.scaled(4)*2.0 {
		return // culled: no update, no load (§4.3 step 2)
	}

	if !n.isLeaf {
		sizeMul := clamp32(n.halfExt.Len()/5.0, 0.2, 3.0)
		threshold := lod.scaled(2) * sizeMul * densityMul(n) * (1.0 + 0.15*float32(n.depth))

		if d < threshold {
			for _, c := range n.children {
				if c != nil {
					updateLODRecursive(c, cameraPos, lod, pool)
				}
			}
			return
		}
	}

	// Render-here: either a leaf, or an internal node that chose to stop
	// subdividing (§4.3 step 4).
	cache.MarkAccessed(n)
	if !n.IsLoaded() && n.IsOnDisk() && pool != nil {
		pool.Enqueue(n)
	}
}

func lodMultiplierOrOne(lod LODDistances) float32 {
	if lod.Multiplier == 0 {
		return 1
	}
	return lod.Multiplier
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DrawCommand is one renderable unit produced by RenderVisible: a node, the
// LOD level selected for it, and the point size to draw with. The out-of-scope
// renderer turns this into actual draw calls.
type DrawCommand struct {
	Node      *Node
	LODLevel  int
	PointSize float32
}

// RenderVisible mirrors UpdateLOD's traversal but produces draw commands
// instead of mutating residency (§4.3 "Per-frame render (render_visible)").
// When an internal node is selected to render but not every leaf descendant
// is loaded, whatever loaded leaf descendants exist are rendered;
// still-missing leaves simply produce nothing that frame (best-effort
// progressive refinement).
func (t *Tree) RenderVisible(cameraPos mgl32.Vec3, lod LODDistances, basePointSize float32) []DrawCommand {
	if t.Root == nil {
		return nil
	}
	var out []DrawCommand
	renderRecursive(t.Root, cameraPos, lod, basePointSize, &out)
	return out
}

func renderRecursive(n *Node, cameraPos mgl32.Vec3, lod LODDistances, basePointSize float32, out *[]DrawCommand) {
	d := n.Bounds().DistanceTo(cameraPos) / lodMultiplierOrOne(lod)

	if d > lod.scaled(4)*2.0 {
		return
	}

	if !n.isLeaf {
		sizeMul := clamp32(n.halfExt.Len()/5.0, 0.2, 3.0)
		threshold := lod.scaled(2) * sizeMul * densityMul(n) * (1.0 + 0.15*float32(n.depth))

		if d < threshold {
			for _, c := range n.children {
				if c != nil {
					renderRecursive(c, cameraPos, lod, basePointSize, out)
				}
			}
			return
		}
	}

	emitDraw(n, cameraPos, lod, basePointSize, out)
}

// emitDraw appends a draw command for n if it has anything resident to draw;
// for an internal node chosen to render-here it recurses into loaded leaf
// descendants only (progressive refinement), never requesting new loads. Each
// leaf's own distance to the camera (not the ancestor's) picks its LOD level.
func emitDraw(n *Node, cameraPos mgl32.Vec3, lod LODDistances, basePointSize float32, out *[]DrawCommand) {
	if n.isLeaf {
		if !n.IsLoaded() {
			return
		}
		d := n.Bounds().DistanceTo(cameraPos) / lodMultiplierOrOne(lod)
		level := selectLODLevel(d, lod)
		size := clamp32(basePointSize*(1+1.2*float32(level))*densityMul(n), 1, 25)
		*out = append(*out, DrawCommand{Node: n, LODLevel: level, PointSize: size})
		return
	}
	for _, c := range n.children {
		if c == nil {
			continue
		}
		emitDraw(c, cameraPos, lod, basePointSize, out)
	}
}

// selectLODLevel picks the smallest index i with d < lod.Distances[i] (§4.3
// "Per-frame render"), falling back to the coarsest level if d exceeds them all.
func selectLODLevel(d float32, lod LODDistances) int {
	for i := 0; i < LODLevels; i++ {
		if d < lod.scaled(i) {
			return i
		}
	}
	return LODLevels - 1
}

// EnsureGPUBuffersFor is a convenience wrapper a render-thread caller uses
// after a node is selected to render (§4.3 step 4 "if loaded without GPU
// buffers, create them"; §9 "Deferred GPU work").
func EnsureGPUBuffersFor(cmd DrawCommand, device gpubuf.Device) error {
	return cmd.Node.EnsureGPUBuffers(device)
}
