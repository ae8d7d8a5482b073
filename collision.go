package umbra

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Layer is a single collider category bit.
type Layer uint32

const (
	LayerDefault     Layer = 1 << 0
	LayerIgnoreLight Layer = 1 << 1
	LayerPlayer      Layer = 1 << 2
	LayerProp        Layer = 1 << 3
)

var layerNames = map[string]Layer{
	"default":      LayerDefault,
	"ignore_light": LayerIgnoreLight,
	"player":       LayerPlayer,
	"prop":         LayerProp,
}

func LayerByName(name string) (Layer, bool) {
	l, ok := layerNames[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// LayerMask selects the layers a query considers.
type LayerMask uint32

const LayerMaskAll LayerMask = math.MaxUint32

func (m LayerMask) Has(l Layer) bool { return uint32(m)&uint32(l) != 0 }

// ColliderComponent is an axis-aligned box centered on the transform
// position. A zero Layer is treated as LayerDefault.
type ColliderComponent struct {
	HalfExtents mgl32.Vec3
	Layer       Layer
	Disabled    bool
}

func (c *ColliderComponent) layer() Layer {
	if c.Layer == 0 {
		return LayerDefault
	}
	return c.Layer
}

// halfExtents is HalfExtents scaled by the transform.
func (c *ColliderComponent) halfExtents(tr *TransformComponent) mgl32.Vec3 {
	scale := tr.Scale
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	return mgl32.Vec3{
		c.HalfExtents.X() * float32(math.Abs(float64(scale.X()))),
		c.HalfExtents.Y() * float32(math.Abs(float64(scale.Y()))),
		c.HalfExtents.Z() * float32(math.Abs(float64(scale.Z()))),
	}
}

func (c *ColliderComponent) worldAABB(tr *TransformComponent) AABBComponent {
	half := c.halfExtents(tr)
	return AABBComponent{Min: tr.Position.Sub(half), Max: tr.Position.Add(half)}
}

type RaycastHit struct {
	Hit    bool
	T      float32
	Point  mgl32.Vec3
	Entity EntityId
}

type colliderEntry struct {
	aabb  AABBComponent
	layer Layer
}

// CollisionWorld is the scene collision query service. It is rebuilt from
// colliders once per frame in PreUpdate; queries between rebuilds see that
// snapshot.
type CollisionWorld struct {
	grid      *SpatialHashGrid
	colliders map[EntityId]colliderEntry
}

func NewCollisionWorld(cellSize float32) *CollisionWorld {
	if cellSize <= 0 {
		cellSize = 2.0
	}
	return &CollisionWorld{
		grid:      NewSpatialHashGrid(cellSize),
		colliders: make(map[EntityId]colliderEntry),
	}
}

func (w *CollisionWorld) Clear() {
	w.grid.Clear()
	clear(w.colliders)
}

func (w *CollisionWorld) Insert(id EntityId, aabb AABBComponent, layer Layer) {
	w.colliders[id] = colliderEntry{aabb: aabb, layer: layer}
	w.grid.Insert(id, aabb)
}

func (w *CollisionWorld) Len() int { return len(w.colliders) }

// Raycast returns the nearest collider on mask hit by the ray within
// maxDist. Colliders containing the ray origin are ignored, so a ray nudged
// out of (or still inside) its caster's own box never hits that box.
func (w *CollisionWorld) Raycast(origin, dir mgl32.Vec3, maxDist float32, mask LayerMask) RaycastHit {
	if w == nil || dir.Len() == 0 || maxDist <= 0 {
		return RaycastHit{}
	}
	dir = dir.Normalize()

	best := RaycastHit{T: maxDist}
	tested := make(set[EntityId])
	w.grid.WalkRay(origin, dir, maxDist, func(tCell float32, ids []EntityId) bool {
		if best.Hit && best.T < tCell {
			return false
		}
		for _, id := range ids {
			if _, seen := tested[id]; seen {
				continue
			}
			tested[id] = struct{}{}

			entry, ok := w.colliders[id]
			if !ok || !mask.Has(entry.layer) || entry.aabb.Contains(origin) {
				continue
			}
			if t, hit := entry.aabb.IntersectRay(origin, dir, maxDist); hit && t <= best.T {
				best = RaycastHit{Hit: true, T: t, Point: origin.Add(dir.Mul(t)), Entity: id}
			}
		}
		return true
	})
	return best
}

// Overlaps reports whether a box at center intersects any collider on mask
// other than self.
func (w *CollisionWorld) Overlaps(center, halfExtents mgl32.Vec3, mask LayerMask, self EntityId) bool {
	if w == nil {
		return false
	}
	box := AABBComponent{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
	for _, id := range w.grid.QueryAABB(box) {
		if id == self {
			continue
		}
		entry, ok := w.colliders[id]
		if ok && mask.Has(entry.layer) && entry.aabb.Overlaps(box) {
			return true
		}
	}
	return false
}

type CollisionModule struct {
	CellSize float32
}

func (m CollisionModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewCollisionWorld(m.CellSize))

	app.UseSystem(
		System(UpdateCollisionWorldSystem).
			InStage(PreUpdate),
	)
}

func UpdateCollisionWorldSystem(cmd *Commands, world *CollisionWorld) {
	world.Clear()

	MakeQuery2[TransformComponent, ColliderComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, col *ColliderComponent) bool {
		if col.Disabled {
			return true
		}
		world.Insert(eid, col.worldAABB(tr), col.layer())
		return true
	})
}
