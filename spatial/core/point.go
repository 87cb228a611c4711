// Package core holds the geometry primitives shared by the octree, the point
// store and the BVH: points, axis-aligned boxes and triangles. Nothing in this
// package touches disk, the GPU or goroutines.
package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PointByteSize is the on-disk and GPU-buffer size of a single Point record:
// seven little-endian f32 fields (§6 of the spec).
const PointByteSize = 7 * 4

// Point is a single point-cloud sample. Layout is wire-stable: field order here
// is the field order on disk and in GPU vertex buffers.
type Point struct {
	Position  mgl32.Vec3
	Intensity float32
	Color     mgl32.Vec3
}

// EncodePoints serializes points into the stable record layout used by the
// point store and by GPU vertex buffers.
func EncodePoints(points []Point) []byte {
	buf := make([]byte, len(points)*PointByteSize)
	for i, p := range points {
		o := i * PointByteSize
		binary.LittleEndian.PutUint32(buf[o+0:o+4], math.Float32bits(p.Position.X()))
		binary.LittleEndian.PutUint32(buf[o+4:o+8], math.Float32bits(p.Position.Y()))
		binary.LittleEndian.PutUint32(buf[o+8:o+12], math.Float32bits(p.Position.Z()))
		binary.LittleEndian.PutUint32(buf[o+12:o+16], math.Float32bits(p.Intensity))
		binary.LittleEndian.PutUint32(buf[o+16:o+20], math.Float32bits(p.Color.X()))
		binary.LittleEndian.PutUint32(buf[o+20:o+24], math.Float32bits(p.Color.Y()))
		binary.LittleEndian.PutUint32(buf[o+24:o+28], math.Float32bits(p.Color.Z()))
	}
	return buf
}

// DecodePoints is the inverse of EncodePoints. It returns a FormatError-shaped
// error (via the caller) when buf's length isn't a whole number of records;
// here it just reports the mismatch and lets pointstore classify it.
func DecodePoints(buf []byte) ([]Point, error) {
	if len(buf)%PointByteSize != 0 {
		return nil, &RecordCountError{ByteLen: len(buf), RecordSize: PointByteSize}
	}
	n := len(buf) / PointByteSize
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		o := i * PointByteSize
		points[i] = Point{
			Position: mgl32.Vec3{
				math.Float32frombits(binary.LittleEndian.Uint32(buf[o+0 : o+4])),
				math.Float32frombits(binary.LittleEndian.Uint32(buf[o+4 : o+8])),
				math.Float32frombits(binary.LittleEndian.Uint32(buf[o+8 : o+12])),
			},
			Intensity: math.Float32frombits(binary.LittleEndian.Uint32(buf[o+12 : o+16])),
			Color: mgl32.Vec3{
				math.Float32frombits(binary.LittleEndian.Uint32(buf[o+16 : o+20])),
				math.Float32frombits(binary.LittleEndian.Uint32(buf[o+20 : o+24])),
				math.Float32frombits(binary.LittleEndian.Uint32(buf[o+24 : o+28])),
			},
		}
	}
	return points, nil
}
