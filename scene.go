package spatialcore

import (
	"hash/fnv"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/spatialcore/spatial/bvh"
	"github.com/gekko3d/spatialcore/spatial/core"
)

// ModelInstance is one placed mesh instance: identity plus the transform
// that feeds the scene-change fingerprint (§3 "Scene-change fingerprint").
// Grounded on mod_assets.go's uuid-keyed resource identity, extended with the
// position/rotation/scale tuple the fingerprint is defined over.
type ModelInstance struct {
	ID       uuid.UUID
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Fingerprint is a compact summary of scene state (§3, GLOSSARY): comparing
// two Fingerprints frame-to-frame is how the driver decides whether an
// acceleration structure is stale.
type Fingerprint uint64

// ComputeFingerprint hashes the model count and every instance's identity and
// transform (§3 "A tuple (model count, per-model position/rotation/scale)").
// Two calls over equal (in value) slices, in the same order, always produce
// the same Fingerprint.
func ComputeFingerprint(models []ModelInstance) Fingerprint {
	h := fnv.New64a()
	var buf [8]byte
	writeUint64 := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	writeFloat := func(v float32) { writeUint64(uint64(math.Float32bits(v))) }

	writeUint64(uint64(len(models)))
	for _, m := range models {
		idBytes, _ := m.ID.MarshalBinary()
		h.Write(idBytes)
		writeFloat(m.Position.X())
		writeFloat(m.Position.Y())
		writeFloat(m.Position.Z())
		writeFloat(m.Rotation.W)
		writeFloat(m.Rotation.V.X())
		writeFloat(m.Rotation.V.Y())
		writeFloat(m.Rotation.V.Z())
		writeFloat(m.Scale.X())
		writeFloat(m.Scale.Y())
		writeFloat(m.Scale.Z())
	}
	return Fingerprint(h.Sum64())
}

// BVHSession holds the last built BVH plus the fingerprint it was built from,
// and rebuilds from scratch exactly when the fingerprint changes (§4.5
// "Invalidation", §8 scenario 6). Partial/incremental updates are out of
// scope; every rebuild is a full bvh.Build call.
type BVHSession struct {
	Result      bvh.Result
	fingerprint Fingerprint
	built       bool
	logger      Logger
}

// NewBVHSession returns a session with no BVH built yet; the first call to
// Rebuild always rebuilds regardless of fingerprint.
func NewBVHSession(logger Logger) *BVHSession {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &BVHSession{logger: logger}
}

// Rebuild compares fp against the last fingerprint this session built from.
// If unchanged, it's a no-op and returns false. If changed (or this is the
// first call), it rebuilds from triangles and returns true.
func (s *BVHSession) Rebuild(fp Fingerprint, triangles []core.Triangle) bool {
	if s.built && fp == s.fingerprint {
		return false
	}
	s.Result = bvh.Build(triangles)
	s.fingerprint = fp
	s.built = true
	s.logger.Infof("bvh rebuilt: %d nodes, %d triangles, max depth %d",
		s.Result.Stats.NodeCount, len(s.Result.Triangles), s.Result.Stats.MaxDepth)
	return true
}
