package umbra

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type AABBComponent struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b AABBComponent) Contains(p mgl32.Vec3) bool {
	return p.X() > b.Min.X() && p.X() < b.Max.X() &&
		p.Y() > b.Min.Y() && p.Y() < b.Max.Y() &&
		p.Z() > b.Min.Z() && p.Z() < b.Max.Z()
}

func (b AABBComponent) Overlaps(o AABBComponent) bool {
	return b.Min.X() < o.Max.X() && b.Max.X() > o.Min.X() &&
		b.Min.Y() < o.Max.Y() && b.Max.Y() > o.Min.Y() &&
		b.Min.Z() < o.Max.Z() && b.Max.Z() > o.Min.Z()
}

// IntersectRay is the slab test. It returns the entry distance along a
// normalized dir, or false when the ray misses within maxDist.
func (b AABBComponent) IntersectRay(origin, dir mgl32.Vec3, maxDist float32) (float32, bool) {
	tMin := float32(0)
	tMax := maxDist
	for axis := 0; axis < 3; axis++ {
		if float32(math.Abs(float64(dir[axis]))) < 1e-8 {
			if origin[axis] < b.Min[axis] || origin[axis] > b.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[axis]
		t1 := (b.Min[axis] - origin[axis]) * inv
		t2 := (b.Max[axis] - origin[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

type SpatialHashGrid struct {
	cellSize float32
	// Map from cell hash to list of entities
	cells map[uint64][]EntityId
}

func NewSpatialHashGrid(cellSize float32) *SpatialHashGrid {
	return &SpatialHashGrid{
		cellSize: cellSize,
		cells:    make(map[uint64][]EntityId),
	}
}

func (grid *SpatialHashGrid) Clear() {
	clear(grid.cells)
}

func (grid *SpatialHashGrid) Insert(id EntityId, aabb AABBComponent) {
	minX, maxX := grid.getCellIndex(aabb.Min.X()), grid.getCellIndex(aabb.Max.X())
	minY, maxY := grid.getCellIndex(aabb.Min.Y()), grid.getCellIndex(aabb.Max.Y())
	minZ, maxZ := grid.getCellIndex(aabb.Min.Z()), grid.getCellIndex(aabb.Max.Z())

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := grid.hashKey(x, y, z)
				grid.cells[key] = append(grid.cells[key], id)
			}
		}
	}
}

func (grid *SpatialHashGrid) QueryAABB(aabb AABBComponent) []EntityId {
	minX, maxX := grid.getCellIndex(aabb.Min.X()), grid.getCellIndex(aabb.Max.X())
	minY, maxY := grid.getCellIndex(aabb.Min.Y()), grid.getCellIndex(aabb.Max.Y())
	minZ, maxZ := grid.getCellIndex(aabb.Min.Z()), grid.getCellIndex(aabb.Max.Z())

	unique := make(set[EntityId])
	var results []EntityId

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				for _, id := range grid.cells[grid.hashKey(x, y, z)] {
					if _, ok := unique[id]; !ok {
						unique[id] = struct{}{}
						results = append(results, id)
					}
				}
			}
		}
	}
	return results
}

// maxRayCells bounds a single traversal; a 1000 unit ray over 2 unit cells
// crosses at most ~1500 cells.
const maxRayCells = 4096

// WalkRay visits the cells a ray crosses in order (3D DDA) and calls visit
// with each cell's candidates, stopping when visit returns false or the ray
// passes maxDist. Candidates may repeat across cells.
func (grid *SpatialHashGrid) WalkRay(origin, dir mgl32.Vec3, maxDist float32, visit func(tCell float32, ids []EntityId) bool) {
	cell := [3]int{grid.getCellIndex(origin.X()), grid.getCellIndex(origin.Y()), grid.getCellIndex(origin.Z())}

	var step [3]int
	var tNext, tDelta [3]float32
	for axis := 0; axis < 3; axis++ {
		d := dir[axis]
		switch {
		case d > 1e-8:
			step[axis] = 1
			boundary := float32(cell[axis]+1) * grid.cellSize
			tNext[axis] = (boundary - origin[axis]) / d
			tDelta[axis] = grid.cellSize / d
		case d < -1e-8:
			step[axis] = -1
			boundary := float32(cell[axis]) * grid.cellSize
			tNext[axis] = (boundary - origin[axis]) / d
			tDelta[axis] = -grid.cellSize / d
		default:
			tNext[axis] = float32(math.Inf(1))
			tDelta[axis] = float32(math.Inf(1))
		}
	}

	t := float32(0)
	for i := 0; i < maxRayCells && t <= maxDist; i++ {
		if ids := grid.cells[grid.hashKey(cell[0], cell[1], cell[2])]; len(ids) > 0 {
			if !visit(t, ids) {
				return
			}
		}

		axis := 0
		if tNext[1] < tNext[axis] {
			axis = 1
		}
		if tNext[2] < tNext[axis] {
			axis = 2
		}
		t = tNext[axis]
		tNext[axis] += tDelta[axis]
		cell[axis] += step[axis]
	}
}

func (grid *SpatialHashGrid) getCellIndex(pos float32) int {
	return int(math.Floor(float64(pos / grid.cellSize)))
}

// Simple hash function for 3D coordinates
func (grid *SpatialHashGrid) hashKey(x, y, z int) uint64 {
	// large primes for mixing
	const p1 = 73856093
	const p2 = 19349663
	const p3 = 83492791
	return uint64(x*p1 ^ y*p2 ^ z*p3)
}
