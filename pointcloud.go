package spatialcore

import (
	"github.com/google/uuid"

	"github.com/gekko3d/spatialcore/spatial/cache"
	"github.com/gekko3d/spatialcore/spatial/core"
	"github.com/gekko3d/spatialcore/spatial/loader"
	"github.com/gekko3d/spatialcore/spatial/octree"
	"github.com/gekko3d/spatialcore/spatial/pointstore"
)

// SessionID identifies one point cloud's cache-directory lifecycle, the way
// AssetId identifies a loaded asset in the teacher's asset server
// (mod_assets.go's uuid.NewString()). It ties together the log lines a build
// and its subsequent loader/eviction activity produce.
type SessionID string

func newSessionID() SessionID { return SessionID(uuid.NewString()) }

// CacheSession owns one point cloud's octree, cache directory, and the
// resources (Store, Budget) scoped to it. Multiple sessions may share one
// *loader.Pool (§9 "Global mutable state": the loader is a process-wide
// service; every subsystem that uses it acquires a handle at construction).
type CacheSession struct {
	ID     SessionID
	Tree   *octree.Tree
	Store  *pointstore.Store
	Budget *cache.Budget

	logger Logger
}

// BuildPointCloud opens (or reuses) cacheDir, builds an octree over points
// under policy, and returns a session the caller uses for traversal. On
// success octree.Build clears this function's own copy of the points slice
// (§4.3); the caller's slice and its backing array are not cleared.
func BuildPointCloud(points []core.Point, cacheDir string, policy octree.BuildPolicy, pool *loader.Pool, logger Logger) (*CacheSession, error) {
	if logger == nil {
		logger = NewNopLogger()
	}

	store, err := pointstore.Open(cacheDir)
	if err != nil {
		return nil, err
	}
	budget := cache.NewBudget(policy.MaxBytes, logger)

	id := newSessionID()
	logger.Infof("session %s: building octree into %s (%d points)", id, cacheDir, len(points))

	tree, err := octree.Build(&points, cacheDir, policy, store, budget, pool, logger)
	if err != nil {
		logger.Errorf("session %s: build failed: %v", id, err)
		return nil, err
	}

	leafCount := len(tree.Leaves)
	logger.Infof("session %s: built %d leaves", id, leafCount)

	return &CacheSession{ID: id, Tree: tree, Store: store, Budget: budget, logger: logger}, nil
}

// EnsureWithinBudget runs the soft-cap eviction pass (§4.2, §5 "checked ...
// once after the whole frame's loads are drained") and logs what it freed.
func (s *CacheSession) EnsureWithinBudget() int64 {
	freed := s.Tree.EnsureWithinBudget()
	if freed > 0 {
		s.logger.Debugf("session %s: evicted %d bytes", s.ID, freed)
	}
	return freed
}
