package spatialcore

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/spatialcore/spatial/core"
)

func TestComputeFingerprintStableForEqualScenes(t *testing.T) {
	id := uuid.New()
	models := []ModelInstance{
		{ID: id, Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
	}
	a := ComputeFingerprint(models)
	b := ComputeFingerprint(models)
	assert.Equal(t, a, b)
}

// TestComputeFingerprintChangesOnMove is §8 scenario 6: moving one model
// changes the fingerprint.
func TestComputeFingerprintChangesOnMove(t *testing.T) {
	id := uuid.New()
	before := []ModelInstance{
		{ID: id, Position: mgl32.Vec3{0, 0, 0}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
	}
	after := []ModelInstance{
		{ID: id, Position: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
	}
	assert.NotEqual(t, ComputeFingerprint(before), ComputeFingerprint(after))
}

func TestComputeFingerprintChangesOnModelCount(t *testing.T) {
	one := []ModelInstance{{ID: uuid.New(), Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}}
	two := append(append([]ModelInstance{}, one...), ModelInstance{ID: uuid.New(), Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}})
	assert.NotEqual(t, ComputeFingerprint(one), ComputeFingerprint(two))
}

func triForBVHSessionTest() []core.Triangle {
	return []core.Triangle{
		core.NewTriangle(
			mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0},
			mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 1, 1}, 0, 32, 0,
		),
	}
}

// TestBVHSessionRebuildsOnlyOnFingerprintChange is §8 scenario 6: the next
// frame after a change triggers exactly one rebuild, and a frame with no
// further change triggers none.
func TestBVHSessionRebuildsOnlyOnFingerprintChange(t *testing.T) {
	session := NewBVHSession(nil)
	tris := triForBVHSessionTest()

	fpA := Fingerprint(1)
	rebuilt := session.Rebuild(fpA, tris)
	assert.True(t, rebuilt, "first call always rebuilds")
	require.True(t, session.Result.Built)

	rebuiltAgain := session.Rebuild(fpA, tris)
	assert.False(t, rebuiltAgain, "unchanged fingerprint must not trigger a rebuild")

	fpB := Fingerprint(2)
	rebuiltOnChange := session.Rebuild(fpB, tris)
	assert.True(t, rebuiltOnChange, "changed fingerprint must trigger exactly one rebuild")

	rebuiltStill := session.Rebuild(fpB, tris)
	assert.False(t, rebuiltStill)
}
