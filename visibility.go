package umbra

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Boundary slack so that targets placed exactly on the range or cone edge
// are not rejected by float rounding.
const (
	rangeEpsilon = 1e-4
	angleEpsilon = 1e-3 // degrees
)

// VisibilityQuery answers line-of-sight questions between a point and a light.
type VisibilityQuery struct {
	World *CollisionWorld
	// Mask selects the colliders that occlude light.
	Mask LayerMask
	// DirectionalOffset nudges directional rays toward the light, out of the target.
	DirectionalOffset float32
	// SpotOffset nudges spot rays toward the light, out of the target.
	SpotOffset float32
	// DirectionalDistance is how far a directional ray travels looking for occluders.
	DirectionalDistance float32
	Debug               *DebugLines
}

func NewVisibilityQuery(world *CollisionWorld, cfg VisibilityConfig, debug *DebugLines) *VisibilityQuery {
	return &VisibilityQuery{
		World:               world,
		Mask:                cfg.OcclusionMask(),
		DirectionalOffset:   cfg.DirectionalOffset,
		SpotOffset:          cfg.SpotOffset,
		DirectionalDistance: cfg.DirectionalDistance,
		Debug:               debug,
	}
}

// IsVisible reports whether the light reaches point unobstructed. Only
// directional and spot lights are supported; other types are never visible.
func (q *VisibilityQuery) IsVisible(point mgl32.Vec3, light Light) bool {
	switch light.Type {
	case LightTypeDirectional:
		return q.directionalVisible(point, light)
	case LightTypeSpot:
		if !InSpotCone(point, light) {
			return false
		}
		return q.spotVisible(point, light)
	}
	return false
}

func (q *VisibilityQuery) directionalVisible(point mgl32.Vec3, light Light) bool {
	if light.Forward.Len() == 0 {
		return false
	}
	toLight := light.Forward.Normalize().Mul(-1)
	origin := point.Add(toLight.Mul(q.DirectionalOffset))

	hit := q.World.Raycast(origin, toLight, q.DirectionalDistance, q.Mask)
	if hit.Hit {
		q.Debug.DrawLine(origin, hit.Point, ColorOccluded)
		return false
	}
	q.Debug.DrawRay(origin, toLight, 10, ColorLit)
	return true
}

func (q *VisibilityQuery) spotVisible(point mgl32.Vec3, light Light) bool {
	toLight := light.Position.Sub(point)
	dist := toLight.Len()
	if dist <= q.SpotOffset {
		return true
	}
	dir := toLight.Mul(1 / dist)
	origin := point.Add(dir.Mul(q.SpotOffset))

	hit := q.World.Raycast(origin, dir, dist-q.SpotOffset, q.Mask)
	if hit.Hit {
		q.Debug.DrawLine(origin, hit.Point, ColorOccluded)
		return false
	}
	q.Debug.DrawLine(origin, light.Position, ColorLit)
	return true
}

// InSpotCone is the geometric gate of a spot light: within Range and within
// half of ConeAngle of the light's forward axis. Both limits are inclusive.
func InSpotCone(point mgl32.Vec3, light Light) bool {
	toTarget := point.Sub(light.Position)
	dist := float64(toTarget.Len())
	if dist > float64(light.Range)+rangeEpsilon {
		return false
	}
	if dist == 0 {
		return true
	}
	fwd := light.Forward
	if fwd.Len() == 0 {
		return false
	}
	return angleBetween(fwd, toTarget) <= float64(light.ConeAngle)*0.5+angleEpsilon
}

// angleBetween returns the unsigned angle between a and b in degrees,
// computed in float64.
func angleBetween(a, b mgl32.Vec3) float64 {
	ax, ay, az := float64(a.X()), float64(a.Y()), float64(a.Z())
	bx, by, bz := float64(b.X()), float64(b.Y()), float64(b.Z())
	la := math.Sqrt(ax*ax + ay*ay + az*az)
	lb := math.Sqrt(bx*bx + by*by + bz*bz)
	if la == 0 || lb == 0 {
		return 0
	}
	cos := (ax*bx + ay*by + az*bz) / (la * lb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}
