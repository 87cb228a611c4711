package bvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/spatialcore/spatial/core"
)

// Stats summarizes a built tree the way the original logs a one-line build
// summary (original_source/StereoVista BVH.cpp: "BVH built with N nodes for M
// triangles") — a supplemented feature kept as structured data since the
// actual console/log write belongs to the caller.
type Stats struct {
	NodeCount       int
	MaxDepth        int
	MaxLeafTris     int
	AverageLeafTris float64
}

// Result is everything Build produces: the flat node array, the reordered
// triangle-index array, and build statistics.
type Result struct {
	Nodes     []Node
	Triangles []core.Triangle // reordered into leaf-contiguous order
	Indices   []uint32        // original indices, in the same reordered order
	Stats     Stats
	Built     bool // false on InvalidBVHInput (§7): callers must tolerate
}

type buildItem struct {
	triangle core.Triangle
	index    uint32
}

// Build constructs a BVH over triangles using binned-SAH top-down
// subdivision (§4.5). An empty input is not an error: Built is false and
// renderers must tolerate it (§7 InvalidBVHInput).
func Build(triangles []core.Triangle) Result {
	if len(triangles) == 0 {
		return Result{Built: false}
	}

	items := make([]buildItem, len(triangles))
	for i, tri := range triangles {
		items[i] = buildItem{triangle: tri, index: uint32(i)}
	}

	b := &builder{items: items}
	b.nodes = make([]Node, 0, len(items)*2)
	b.nodes = append(b.nodes, Node{})
	bounds := boundsOf(items)
	b.nodes[0] = Node{Min: bounds.Min, Max: bounds.Max, LeftFirst: 0, TriCount: uint32(len(items))}
	b.subdivide(0, 0)

	outTriangles := make([]core.Triangle, len(items))
	outIndices := make([]uint32, len(items))
	for i, it := range b.items {
		outTriangles[i] = it.triangle
		outIndices[i] = it.index
	}

	return Result{
		Nodes:     b.nodes,
		Triangles: outTriangles,
		Indices:   outIndices,
		Stats:     b.stats(),
		Built:     true,
	}
}

type builder struct {
	items    []buildItem
	nodes    []Node
	maxDepth int
}

func (b *builder) stats() Stats {
	maxLeaf := 0
	totalLeafTris := 0
	leafCount := 0
	for _, n := range b.nodes {
		if n.IsLeaf() {
			leafCount++
			c := int(n.TriCount)
			if c > maxLeaf {
				maxLeaf = c
			}
			totalLeafTris += c
		}
	}
	avg := 0.0
	if leafCount > 0 {
		avg = float64(totalLeafTris) / float64(leafCount)
	}
	return Stats{
		NodeCount:       len(b.nodes),
		MaxDepth:        b.maxDepth,
		MaxLeafTris:     maxLeaf,
		AverageLeafTris: avg,
	}
}

func boundsOf(items []buildItem) core.AABB {
	bounds := core.EmptyAABB()
	for _, it := range items {
		bounds = bounds.Expand(it.triangle.Bounds)
	}
	return bounds
}

// subdivide mutates b.nodes[nodeIdx] in place and recurses into the two
// children it creates, following the exact stop conditions in §4.5.
func (b *builder) subdivide(nodeIdx uint32, depth int) {
	if depth > b.maxDepth {
		b.maxDepth = depth
	}
	node := b.nodes[nodeIdx]
	if node.TriCount <= MaxTrianglesPerLeaf {
		return
	}

	first, count := node.LeftFirst, node.TriCount
	nodeBounds := core.AABB{Min: node.Min, Max: node.Max}

	split, ok := b.findBestSplit(first, count, nodeBounds)
	leafCost := float32(count) * intersectCost
	if !ok || split.cost >= leafCost*leafCostEpsilon {
		return
	}

	leftCount := b.partition(first, count, split.axis, split.position)
	if leftCount == 0 || leftCount == count {
		return
	}

	leftIdx := uint32(len(b.nodes))
	rightIdx := leftIdx + 1 // sibling invariant (§4.5 step 5, §9)
	b.nodes = append(b.nodes, Node{}, Node{})

	leftBounds := boundsOf(b.items[first : first+leftCount])
	rightBounds := boundsOf(b.items[first+leftCount : first+count])

	b.nodes[leftIdx] = Node{Min: leftBounds.Min, Max: leftBounds.Max, LeftFirst: first, TriCount: leftCount}
	b.nodes[rightIdx] = Node{Min: rightBounds.Min, Max: rightBounds.Max, LeftFirst: first + leftCount, TriCount: count - leftCount}

	b.nodes[nodeIdx] = Node{Min: node.Min, Max: node.Max, LeftFirst: leftIdx, TriCount: 0}

	b.subdivide(leftIdx, depth+1)
	b.subdivide(rightIdx, depth+1)
}

type splitCandidate struct {
	axis     int
	position float32
	cost     float32
}

type bin struct {
	bounds core.AABB
	count  uint32
}

// findBestSplit evaluates binned SAH on all three axes (§4.5 step 3),
// following BVH.cpp's findBestSplit/evaluateSAH almost line for line.
func (b *builder) findBestSplit(first, count uint32, nodeBounds core.AABB) (splitCandidate, bool) {
	best := splitCandidate{cost: float32(math.Inf(1)), axis: -1}

	for axis := 0; axis < 3; axis++ {
		boundsMin := axisOf(nodeBounds.Min, axis)
		boundsMax := axisOf(nodeBounds.Max, axis)
		if boundsMax <= boundsMin {
			continue
		}

		var bins [SAHBins]bin
		for i := range bins {
			bins[i].bounds = core.EmptyAABB()
		}
		scale := float32(SAHBins) / (boundsMax - boundsMin)

		for i := uint32(0); i < count; i++ {
			tri := b.items[first+i].triangle
			centroid := axisOf(tri.Centroid, axis)
			idx := int((centroid - boundsMin) * scale)
			if idx < 0 {
				idx = 0
			}
			if idx >= SAHBins {
				idx = SAHBins - 1
			}
			bins[idx].count++
			bins[idx].bounds = bins[idx].bounds.Expand(tri.Bounds)
		}

		for splitBin := 1; splitBin < SAHBins; splitBin++ {
			left := core.EmptyAABB()
			right := core.EmptyAABB()
			var leftCount, rightCount uint32
			for i := 0; i < splitBin; i++ {
				left = left.Expand(bins[i].bounds)
				leftCount += bins[i].count
			}
			for i := splitBin; i < SAHBins; i++ {
				right = right.Expand(bins[i].bounds)
				rightCount += bins[i].count
			}
			if leftCount == 0 || rightCount == 0 {
				continue
			}

			cost := evaluateSAH(leftCount, rightCount, left, right, nodeBounds)
			if cost < best.cost {
				best.cost = cost
				best.axis = axis
				best.position = boundsMin + (float32(splitBin)/float32(SAHBins))*(boundsMax-boundsMin)
			}
		}
	}

	if best.axis < 0 {
		return best, false
	}
	return best, true
}

func evaluateSAH(leftCount, rightCount uint32, left, right, parent core.AABB) float32 {
	parentArea := parent.SurfaceArea()
	if parentArea <= 0 {
		return float32(math.Inf(1))
	}
	leftProb := left.SurfaceArea() / parentArea
	rightProb := right.SurfaceArea() / parentArea
	return traversalCost + (leftProb*float32(leftCount)+rightProb*float32(rightCount))*intersectCost
}

// partition reorders b.items[first:first+count] in place with a two-pointer
// scan on axis/splitPos (§4.5 step 5, BVH.cpp's partition), returning the
// count of items that ended up on the left. This is what keeps the right
// child's index equal to the left child's index + 1: both children occupy a
// single contiguous, freshly-partitioned range.
func (b *builder) partition(first, count uint32, axis int, splitPos float32) uint32 {
	if count == 0 {
		return 0
	}
	// Worked in plain ints to avoid uint32 underflow at the scan boundaries;
	// converted back to indices into b.items at the edges only.
	lo, hi := int(first), int(first+count)-1

	for lo <= hi {
		for lo <= hi && axisOf(b.items[lo].triangle.Centroid, axis) < splitPos {
			lo++
		}
		for lo <= hi && axisOf(b.items[hi].triangle.Centroid, axis) >= splitPos {
			hi--
		}
		if lo < hi {
			b.items[lo], b.items[hi] = b.items[hi], b.items[lo]
			lo++
			hi--
		}
	}
	return uint32(lo) - first
}

func axisOf(v mgl32.Vec3, axis int) float32 {
	switch axis {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}
