package octree

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gekko3d/spatialcore/spatial/core"
	"github.com/gekko3d/spatialcore/spatial/gpubuf"
)

// lodFactors is the density-banded retention table from §4.3. No third-party
// statistics/sampling library appears anywhere in the retrieved pack, so the
// table lookup and the Fisher-Yates shuffle below are plain Go (see
// DESIGN.md).
var lodFactors = []struct {
	maxDensity float64 // upper bound, exclusive; last entry is the catch-all
	retention  [LODLevels]float64
}{
	{10, [LODLevels]float64{1.00, 1.00, 0.90, 0.80, 0.70}},
	{50, [LODLevels]float64{1.00, 0.90, 0.70, 0.50, 0.30}},
	{200, [LODLevels]float64{1.00, 0.70, 0.40, 0.20, 0.08}},
	{1000, [LODLevels]float64{1.00, 0.50, 0.20, 0.05, 0.01}},
	{math.Inf(1), [LODLevels]float64{1.00, 0.30, 0.08, 0.015, 0.003}},
}

// generateLOD computes a leaf's per-level subsample sizes (§4.3 "LOD
// generation (per leaf)"), run once when the leaf is first populated.
func generateLOD(n *Node) {
	total := n.totalPointCount
	volume := float64(8 * n.halfExt.X() * n.halfExt.Y() * n.halfExt.Z())
	density := 0.0
	if volume > 0 {
		density = float64(total) / volume
	}
	adjusted := density * (1 + 0.1*float64(n.depth))

	retention := lodFactors[len(lodFactors)-1].retention
	for _, band := range lodFactors {
		if adjusted < band.maxDensity {
			retention = band.retention
			break
		}
	}

	smallLeaf := total <= 20
	for i := 0; i < LODLevels; i++ {
		factor := retention[i]
		if smallLeaf && factor < 0.30 {
			factor = 0.30
		}
		count := int(math.Floor(float64(total) * factor))
		if count < 1 {
			count = 1
		}
		n.lodCounts[i] = count
	}
	n.lodCounts[0] = total
}

// EnsureGPUBuffers lazily creates the per-level vertex buffers on first
// render after load (§4.3 "GPU buffer creation"). Level 0 uses every resident
// point; levels 1..4 use a deterministic (node-id-seeded) Fisher-Yates prefix
// subsample, matching §9 "Random subsampling for LOD".
func (n *Node) EnsureGPUBuffers(device gpubuf.Device) error {
	if n.vbosGenerated || !n.IsLoaded() {
		return nil
	}
	points := n.Points()

	for i := 0; i < LODLevels; i++ {
		var level []core.Point
		if i == 0 {
			level = points
		} else {
			level = fisherYatesPrefix(points, n.lodCounts[i], int64(n.id))
		}
		buf, err := device.CreateBuffer(fmt.Sprintf("octree_node_%d_lod_%d", n.id, i), core.EncodePoints(level), 0)
		if err != nil {
			return err
		}
		n.lodBuffers[i] = buf
	}
	n.vbosGenerated = true
	return nil
}

// fisherYatesPrefix returns a size-n subsample of points via a Fisher-Yates
// shuffle of indices, taking the prefix (§4.3, §9). seed makes the sample
// reproducible across calls for the same node.
func fisherYatesPrefix(points []core.Point, n int, seed int64) []core.Point {
	if n >= len(points) {
		out := make([]core.Point, len(points))
		copy(out, points)
		return out
	}
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	r := rand.New(rand.NewSource(seed))
	for i := len(idx) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := make([]core.Point, n)
	for i := 0; i < n; i++ {
		out[i] = points[idx[i]]
	}
	return out
}
