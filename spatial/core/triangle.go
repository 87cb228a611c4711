package core

import "github.com/go-gl/mathgl/mgl32"

// Triangle is one BVH primitive: three vertex positions plus the material
// attributes carried through to the GPU triangle buffer (§3, §6).
type Triangle struct {
	V0, V1, V2  mgl32.Vec3
	Normal      mgl32.Vec3
	Color       mgl32.Vec3
	Emissive    float32
	Shininess   float32
	MaterialID  uint32
	Centroid    mgl32.Vec3
	Bounds      AABB
}

// NewTriangle computes Centroid and Bounds from the three vertices, the way
// every other field of a BVHTriangle is precomputed once at ingest time.
func NewTriangle(v0, v1, v2, normal, color mgl32.Vec3, emissive, shininess float32, materialID uint32) Triangle {
	bounds := AABB{Min: v0, Max: v0}.ExpandPoint(v1).ExpandPoint(v2)
	centroid := v0.Add(v1).Add(v2).Mul(1.0 / 3.0)
	return Triangle{
		V0: v0, V1: v1, V2: v2,
		Normal:     normal,
		Color:      color,
		Emissive:   emissive,
		Shininess:  shininess,
		MaterialID: materialID,
		Centroid:   centroid,
		Bounds:     bounds,
	}
}
