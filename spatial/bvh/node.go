// Package bvh builds a surface-area-heuristic BVH over a triangle soup using
// binned splits, and emits a flat GPU-friendly layout (§4.5). Grounded on the
// teacher's voxelrt/rt/bvh/builder.go (flat-array layout, ToBytes encoding)
// upgraded from median-split to binned SAH per original_source/StereoVista's
// BVH.cpp/BVH.h, which this spec distills almost verbatim.
package bvh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxTrianglesPerLeaf stops subdivision once a node holds this many or fewer
// triangles (§4.5 step 2).
const MaxTrianglesPerLeaf = 4

// SAHBins is the number of binned-split candidates evaluated per axis
// (§4.5 step 3, "16 bins per axis").
const SAHBins = 16

const (
	traversalCost   float32 = 1.25
	intersectCost   float32 = 1.0
	leafCostEpsilon float32 = 0.95
)

// NodeByteSize is the size of one flat BVH node in the GPU layout (§3).
const NodeByteSize = 32

// Node is one flat BVH node: an AABB plus the left_first/tri_count payload
// disambiguating leaf vs interior (§3, §9).
type Node struct {
	Min, Max  mgl32.Vec3
	LeftFirst uint32
	TriCount  uint32
}

// IsLeaf reports whether this node is a leaf (TriCount > 0) or interior.
func (n Node) IsLeaf() bool { return n.TriCount > 0 }

// RightChild is only meaningful for interior nodes: the sibling invariant
// (§4.5 step 5, §9) means the right child always sits at LeftFirst+1.
func (n Node) RightChild() uint32 { return n.LeftFirst + 1 }

// ToBytes encodes the node in the std430-compatible layout from §6:
// {min: vec3, left_first: u32, max: vec3, tri_count: u32}, 32 bytes.
func (n Node) ToBytes() []byte {
	buf := make([]byte, NodeByteSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(n.Min.X()))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(n.Min.Y()))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(n.Min.Z()))
	binary.LittleEndian.PutUint32(buf[12:16], n.LeftFirst)
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(n.Max.X()))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(n.Max.Y()))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(n.Max.Z()))
	binary.LittleEndian.PutUint32(buf[28:32], n.TriCount)
	return buf
}

// EncodeNodes concatenates ToBytes for every node, the GPU node array (§4.5
// "Output").
func EncodeNodes(nodes []Node) []byte {
	buf := make([]byte, 0, len(nodes)*NodeByteSize)
	for _, n := range nodes {
		buf = append(buf, n.ToBytes()...)
	}
	return buf
}
