package bvh

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/spatialcore/spatial/core"
)

// Triangle GPU layout (§6): {v0, v1, v2, normal} as four vec4 (last
// component padding) followed by {color, emissiveness} as one vec4 and
// {shininess, material_id, _pad[2]}. The geometry half (64 bytes) and the
// material half (32 bytes) are encoded and uploaded separately, the way the
// teacher's GPU manager keeps geometry and material data in separate buffers
// (voxelrt/rt/gpu/manager.go InstancesBuf vs MaterialBuf) — see DESIGN.md for
// why this is 96 bytes total rather than the spec text's "64 bytes", which
// doesn't reconcile with its own field list (the same inconsistency exists in
// original_source/BVH.h's GPUTriangle comment).
const (
	TriangleGeometryByteSize = 64
	TriangleMaterialByteSize = 32
)

// EncodeTriangles lays out the geometry half of each triangle (v0, v1, v2,
// normal) into the GPU buffer described in §6.
func EncodeTriangles(triangles []core.Triangle) []byte {
	buf := make([]byte, len(triangles)*TriangleGeometryByteSize)
	for i, t := range triangles {
		o := i * TriangleGeometryByteSize
		putVec4(buf[o+0:o+16], t.V0, 0)
		putVec4(buf[o+16:o+32], t.V1, 0)
		putVec4(buf[o+32:o+48], t.V2, 0)
		putVec4(buf[o+48:o+64], t.Normal, 0)
	}
	return buf
}

// EncodeTriangleMaterials produces the {color, emissiveness}/{shininess,
// material_id, pad[2]} tail described in §6, one 32-byte record per triangle.
func EncodeTriangleMaterials(triangles []core.Triangle) []byte {
	buf := make([]byte, len(triangles)*TriangleMaterialByteSize)
	for i, t := range triangles {
		o := i * TriangleMaterialByteSize
		putVec4(buf[o+0:o+16], t.Color, t.Emissive)
		binary.LittleEndian.PutUint32(buf[o+16:o+20], math.Float32bits(t.Shininess))
		binary.LittleEndian.PutUint32(buf[o+20:o+24], t.MaterialID)
		// buf[o+24:o+32] left zeroed: _pad[2]
	}
	return buf
}

type vec3Like interface {
	X() float32
	Y() float32
	Z() float32
}

func putVec4(dst []byte, v vec3Like, w float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v.X()))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v.Y()))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v.Z()))
	binary.LittleEndian.PutUint32(dst[12:16], math.Float32bits(w))
}
