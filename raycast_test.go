package umbra

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boxAt(center, half mgl32.Vec3) AABBComponent {
	return AABBComponent{Min: center.Sub(half), Max: center.Add(half)}
}

func TestRaycast_NearestHit(t *testing.T) {
	world := NewCollisionWorld(2)
	world.Insert(1, boxAt(mgl32.Vec3{0, 0, 20}, mgl32.Vec3{1, 1, 1}), LayerDefault)
	world.Insert(2, boxAt(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{1, 1, 1}), LayerDefault)

	hit := world.Raycast(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}, 200, LayerMaskAll)
	require.True(t, hit.Hit)
	assert.Equal(t, EntityId(2), hit.Entity)
	assert.InDelta(t, 9, hit.T, 1e-4)
	assert.InDelta(t, 9, hit.Point.Z(), 1e-4)
}

func TestRaycast_RespectsMaxDistAndMask(t *testing.T) {
	world := NewCollisionWorld(2)
	world.Insert(1, boxAt(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{1, 1, 1}), LayerIgnoreLight)

	assert.False(t, world.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 5, LayerMaskAll).Hit)
	assert.True(t, world.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 50, LayerMaskAll).Hit)

	mask := LayerMaskAll &^ LayerMask(LayerIgnoreLight)
	assert.False(t, world.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 50, mask).Hit)
}

func TestRaycast_IgnoresColliderContainingOrigin(t *testing.T) {
	world := NewCollisionWorld(2)
	world.Insert(1, boxAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}), LayerPlayer)
	world.Insert(2, boxAt(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{1, 1, 1}), LayerDefault)

	hit := world.Raycast(mgl32.Vec3{0, 0.1, 0}, mgl32.Vec3{0, 1, 0}, 100, LayerMaskAll)
	require.True(t, hit.Hit)
	assert.Equal(t, EntityId(2), hit.Entity)
}

func TestRaycast_DegenerateInput(t *testing.T) {
	var nilWorld *CollisionWorld
	assert.False(t, nilWorld.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 10, LayerMaskAll).Hit)

	world := NewCollisionWorld(2)
	world.Insert(1, boxAt(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{1, 1, 1}), LayerDefault)
	assert.False(t, world.Raycast(mgl32.Vec3{}, mgl32.Vec3{}, 10, LayerMaskAll).Hit)
	assert.False(t, world.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, LayerMaskAll).Hit)

	// Near-zero components must not produce NaN slabs.
	hit := world.Raycast(mgl32.Vec3{}, mgl32.Vec3{-0.5e-8, 1.0, 0}, 100, LayerMaskAll)
	assert.True(t, hit.Hit)
}

func TestCollisionWorld_Overlaps(t *testing.T) {
	world := NewCollisionWorld(2)
	world.Insert(1, boxAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}), LayerDefault)

	assert.True(t, world.Overlaps(mgl32.Vec3{1.5, 0, 0}, mgl32.Vec3{1, 1, 1}, LayerMaskAll, 0))
	assert.False(t, world.Overlaps(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 1, 1}, LayerMaskAll, 0), "touching is not overlapping")
	assert.False(t, world.Overlaps(mgl32.Vec3{1.5, 0, 0}, mgl32.Vec3{1, 1, 1}, LayerMaskAll, 1), "self is ignored")
	assert.False(t, world.Overlaps(mgl32.Vec3{1.5, 0, 0}, mgl32.Vec3{1, 1, 1}, LayerMask(LayerPlayer), 0))
}
