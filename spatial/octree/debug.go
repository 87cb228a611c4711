package octree

import "github.com/go-gl/mathgl/mgl32"

// LineSegment is one edge of a visited node's AABB, as a pair of world-space
// endpoints.
type LineSegment struct {
	A, B mgl32.Vec3
}

// cubeEdges are the 12 edges of an axis-aligned cube described by its 8
// corners, in the same bit-ordering as octantOf (bit0=+x, bit1=+y, bit2=+z).
var cubeEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0}, // bottom face (z-)
	{4, 5}, {5, 7}, {7, 6}, {6, 4}, // top face (z+)
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // verticals
}

func cubeCorners(center, halfExt mgl32.Vec3) [8]mgl32.Vec3 {
	var c [8]mgl32.Vec3
	for i := 0; i < 8; i++ {
		sign := func(bit int) float32 {
			if i&bit != 0 {
				return 1
			}
			return -1
		}
		c[i] = mgl32.Vec3{
			center.X() + sign(1)*halfExt.X(),
			center.Y() + sign(2)*halfExt.Y(),
			center.Z() + sign(4)*halfExt.Z(),
		}
	}
	return c
}

// DebugVisualization walks the tree down to targetDepth and returns the AABB
// edges of every visited node, grouped by depth (supplemented feature,
// grounded on OctreePointCloudManager::generateOctreeVisualizationRecursive /
// BVHDebugRenderer.updateFromBVH). This produces line-segment data only — no
// GPU line rendering, which stays out of scope (§1); the external renderer
// turns the result into draw calls.
func (t *Tree) DebugVisualization(targetDepth int) map[int][]LineSegment {
	out := make(map[int][]LineSegment)
	if t.Root == nil {
		return out
	}
	debugRecursive(t.Root, targetDepth, out)
	return out
}

func debugRecursive(n *Node, targetDepth int, out map[int][]LineSegment) {
	corners := cubeCorners(n.center, n.halfExt)
	for _, e := range cubeEdges {
		out[n.depth] = append(out[n.depth], LineSegment{A: corners[e[0]], B: corners[e[1]]})
	}
	if n.depth >= targetDepth {
		return
	}
	for _, c := range n.children {
		if c != nil {
			debugRecursive(c, targetDepth, out)
		}
	}
}
