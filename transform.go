package umbra

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformComponent is an entity's world pose. Y is up and the local
// forward axis is -Z.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform(pos mgl32.Vec3, rot mgl32.Quat) *TransformComponent {
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	return &TransformComponent{Position: pos, Rotation: rot, Scale: mgl32.Vec3{1, 1, 1}}
}

var (
	worldUp      = mgl32.Vec3{0, 1, 0}
	localForward = mgl32.Vec3{0, 0, -1}
)

func (tr *TransformComponent) Forward() mgl32.Vec3 {
	return tr.Rotation.Rotate(localForward).Normalize()
}

// Pose is a position and orientation pair, copied without interpolation.
type Pose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

func (tr *TransformComponent) Pose() Pose {
	return Pose{Position: tr.Position, Rotation: tr.Rotation}
}

func (tr *TransformComponent) SetPose(p Pose) {
	tr.Position = p.Position
	tr.Rotation = p.Rotation
}

// YawRotation returns a rotation of yawDeg degrees about +Y. Positive yaw
// turns the -Z forward axis toward +X.
func YawRotation(yawDeg float32) mgl32.Quat {
	return mgl32.QuatRotate(-mgl32.DegToRad(yawDeg), worldUp)
}

// LookRotation faces the -Z axis toward yawDeg heading, tilted down by
// pitchDeg.
func LookRotation(yawDeg, pitchDeg float32) mgl32.Quat {
	pitch := mgl32.QuatRotate(-mgl32.DegToRad(pitchDeg), mgl32.Vec3{1, 0, 0})
	return YawRotation(yawDeg).Mul(pitch)
}

// DeltaAngle is the shortest signed difference target-current in degrees,
// in (-180, 180].
func DeltaAngle(current, target float32) float32 {
	delta := float32(math.Mod(float64(target-current), 360))
	if delta < 0 {
		delta += 360
	}
	if delta > 180 {
		delta -= 360
	}
	return delta
}

func horizontal(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v.X(), 0, v.Z()}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
