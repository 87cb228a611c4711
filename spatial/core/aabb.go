package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box shared by the octree and the BVH.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns a degenerate box suitable as the identity element for Expand.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Expand grows the box to also contain other.
func (b AABB) Expand(other AABB) AABB {
	return AABB{
		Min: minVec3(b.Min, other.Min),
		Max: maxVec3(b.Max, other.Max),
	}
}

// ExpandPoint grows the box to also contain p.
func (b AABB) ExpandPoint(p mgl32.Vec3) AABB {
	return AABB{Min: minVec3(b.Min, p), Max: maxVec3(b.Max, p)}
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) HalfExtent() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// SurfaceArea is the full surface area 2*(xy+yz+zx); SAH only ever uses it in
// ratios of one SurfaceArea to another. A box with a negative extent reports 0.
func (b AABB) SurfaceArea() float32 {
	d := b.Max.Sub(b.Min)
	if d.X() < 0 || d.Y() < 0 || d.Z() < 0 {
		return 0
	}
	return 2 * (d.X()*d.Y() + d.Y()*d.Z() + d.Z()*d.X())
}

// ClosestPoint returns the point on (or in) the box nearest to p.
func (b AABB) ClosestPoint(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		clamp(p.X(), b.Min.X(), b.Max.X()),
		clamp(p.Y(), b.Min.Y(), b.Max.Y()),
		clamp(p.Z(), b.Min.Z(), b.Max.Z()),
	}
}

// DistanceTo returns the Euclidean distance from p to the nearest point on b.
func (b AABB) DistanceTo(p mgl32.Vec3) float32 {
	return b.ClosestPoint(p).Sub(p).Len()
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min32(a.X(), b.X()), min32(a.Y(), b.Y()), min32(a.Z(), b.Z())}
}

func maxVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max32(a.X(), b.X()), max32(a.Y(), b.Y()), max32(a.Z(), b.Z())}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Clamp32 is the exported form of clamp: it limits v to [lo, hi].
func Clamp32(v, lo, hi float32) float32 {
	return clamp(v, lo, hi)
}
