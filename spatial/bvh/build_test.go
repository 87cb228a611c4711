package bvh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/spatialcore/spatial/core"
)

func unitCubeTriangles(origin mgl32.Vec3, materialID uint32) []core.Triangle {
	min := origin
	max := origin.Add(mgl32.Vec3{1, 1, 1})
	corners := [8]mgl32.Vec3{
		{min.X(), min.Y(), min.Z()}, {max.X(), min.Y(), min.Z()},
		{max.X(), max.Y(), min.Z()}, {min.X(), max.Y(), min.Z()},
		{min.X(), min.Y(), max.Z()}, {max.X(), min.Y(), max.Z()},
		{max.X(), max.Y(), max.Z()}, {min.X(), max.Y(), max.Z()},
	}
	faces := [6][4]int{
		{0, 1, 2, 3}, {4, 5, 6, 7},
		{0, 1, 5, 4}, {2, 3, 7, 6},
		{1, 2, 6, 5}, {0, 3, 7, 4},
	}
	normal := mgl32.Vec3{0, 0, 1}
	color := mgl32.Vec3{1, 1, 1}
	tris := make([]core.Triangle, 0, 12)
	for _, f := range faces {
		tris = append(tris,
			core.NewTriangle(corners[f[0]], corners[f[1]], corners[f[2]], normal, color, 0, 32, materialID),
			core.NewTriangle(corners[f[0]], corners[f[2]], corners[f[3]], normal, color, 0, 32, materialID),
		)
	}
	return tris
}

// gridOfCubes lays out a 4x3 grid of axis-aligned unit cubes (12 cubes, 144
// triangles), the scenario from §8 used to exercise depth/leaf-size bounds on
// a larger, evenly spread input.
func gridOfCubes() []core.Triangle {
	var tris []core.Triangle
	id := uint32(0)
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			origin := mgl32.Vec3{float32(x) * 4, float32(y) * 4, 0}
			tris = append(tris, unitCubeTriangles(origin, id)...)
			id++
		}
	}
	return tris
}

func collectLeafRanges(t *testing.T, res Result) [][2]uint32 {
	t.Helper()
	var ranges [][2]uint32
	var walk func(idx uint32)
	walk = func(idx uint32) {
		n := res.Nodes[idx]
		if n.IsLeaf() {
			ranges = append(ranges, [2]uint32{n.LeftFirst, n.LeftFirst + n.TriCount})
			return
		}
		walk(n.LeftFirst)
		walk(n.RightChild())
	}
	walk(0)
	return ranges
}

func TestBuildEmptyInputIsNotAnError(t *testing.T) {
	res := Build(nil)
	assert.False(t, res.Built)
	assert.Empty(t, res.Nodes)
}

func TestBuildSingleTriangleIsALeafRoot(t *testing.T) {
	tris := unitCubeTriangles(mgl32.Vec3{0, 0, 0}, 0)[:1]
	res := Build(tris)
	require.True(t, res.Built)
	require.Len(t, res.Nodes, 1)
	assert.True(t, res.Nodes[0].IsLeaf())
	assert.Equal(t, uint32(1), res.Nodes[0].TriCount)
}

// TestCoveringProperty checks every input triangle appears in exactly one
// leaf's contiguous index range (§8 "covering property").
func TestCoveringProperty(t *testing.T) {
	tris := gridOfCubes()
	res := Build(tris)
	require.True(t, res.Built)
	require.Len(t, res.Triangles, len(tris))

	seen := make([]bool, len(tris))
	for _, r := range collectLeafRanges(t, res) {
		for i := r[0]; i < r[1]; i++ {
			require.False(t, seen[i], "triangle at reordered index %d covered by more than one leaf", i)
			seen[i] = true
		}
	}
	for i, s := range seen {
		assert.True(t, s, "reordered triangle %d not covered by any leaf", i)
	}

	// Every original index appears exactly once across the reordered output.
	origSeen := make([]bool, len(tris))
	for _, idx := range res.Indices {
		require.False(t, origSeen[idx])
		origSeen[idx] = true
	}
}

// TestBoundsProperty checks every node's AABB contains the bounds of every
// triangle reachable beneath it (§8 "bounds property").
func TestBoundsProperty(t *testing.T) {
	tris := gridOfCubes()
	res := Build(tris)
	require.True(t, res.Built)

	var check func(idx uint32) core.AABB
	check = func(idx uint32) core.AABB {
		n := res.Nodes[idx]
		nodeBounds := core.AABB{Min: n.Min, Max: n.Max}
		var reachable core.AABB
		if n.IsLeaf() {
			reachable = core.EmptyAABB()
			for i := n.LeftFirst; i < n.LeftFirst+n.TriCount; i++ {
				reachable = reachable.Expand(res.Triangles[i].Bounds)
			}
		} else {
			left := check(n.LeftFirst)
			right := check(n.RightChild())
			reachable = left.Expand(right)
		}
		assertContains(t, nodeBounds, reachable)
		return nodeBounds
	}
	check(0)
}

func assertContains(t *testing.T, outer, inner core.AABB) {
	t.Helper()
	const eps = 1e-4
	assert.LessOrEqual(t, outer.Min.X(), inner.Min.X()+eps)
	assert.LessOrEqual(t, outer.Min.Y(), inner.Min.Y()+eps)
	assert.LessOrEqual(t, outer.Min.Z(), inner.Min.Z()+eps)
	assert.GreaterOrEqual(t, outer.Max.X(), inner.Max.X()-eps)
	assert.GreaterOrEqual(t, outer.Max.Y(), inner.Max.Y()-eps)
	assert.GreaterOrEqual(t, outer.Max.Z(), inner.Max.Z()-eps)
}

// TestSiblingInvariant checks every interior node's right child sits at
// LeftFirst+1 (§4.5 step 5, §9).
func TestSiblingInvariant(t *testing.T) {
	tris := gridOfCubes()
	res := Build(tris)
	require.True(t, res.Built)

	for i, n := range res.Nodes {
		if n.IsLeaf() {
			continue
		}
		assert.Equal(t, n.LeftFirst+1, n.RightChild(), "node %d violates sibling invariant", i)
		require.Less(t, int(n.RightChild()), len(res.Nodes))
	}
}

// TestGridOfCubesDepthAndLeafBounds is scenario 5 from §8: a 4x3 grid of unit
// cubes should subdivide without any leaf exceeding MaxTrianglesPerLeaf, into
// more than one node and with a maximum depth below the triangle count.
func TestGridOfCubesDepthAndLeafBounds(t *testing.T) {
	tris := gridOfCubes()
	res := Build(tris)
	require.True(t, res.Built)
	require.Equal(t, 144, len(tris))

	for i, n := range res.Nodes {
		if n.IsLeaf() {
			assert.LessOrEqual(t, n.TriCount, uint32(MaxTrianglesPerLeaf), "leaf %d exceeds max tris per leaf", i)
		}
	}
	assert.Greater(t, res.Stats.NodeCount, 1)
	assert.Less(t, res.Stats.MaxDepth, len(tris))
}

func TestEncodeNodesByteLayout(t *testing.T) {
	res := Build(gridOfCubes())
	require.True(t, res.Built)
	encoded := EncodeNodes(res.Nodes)
	assert.Len(t, encoded, len(res.Nodes)*NodeByteSize)
}

func TestEncodeTrianglesByteLayout(t *testing.T) {
	tris := gridOfCubes()
	res := Build(tris)
	require.True(t, res.Built)

	geometry := EncodeTriangles(res.Triangles)
	materials := EncodeTriangleMaterials(res.Triangles)
	assert.Len(t, geometry, len(tris)*TriangleGeometryByteSize)
	assert.Len(t, materials, len(tris)*TriangleMaterialByteSize)
}
