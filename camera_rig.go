package umbra

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type RigMode int

const (
	// RigOrbital circles its target at Distance.
	RigOrbital RigMode = iota
	// RigPanTilt sits at the target plus Offset and only turns.
	RigPanTilt
)

const (
	CameraPriorityIdle = 0
	CameraPriorityLive = 1
)

// CameraRigComponent is a yaw/pitch camera bound to one form body. Heading
// is BaseYaw + YawAxis; only YawAxis is driven by look input and yaw sync.
// Positive Pitch looks down. Angles are in degrees.
type CameraRigComponent struct {
	Mode     RigMode
	Target   EntityId
	BaseYaw  float32
	YawAxis  float32
	Pitch    float32
	MinPitch float32
	MaxPitch float32
	Priority int
	Offset   mgl32.Vec3
	Distance float32
}

func (r *CameraRigComponent) Yaw() float32 { return r.BaseYaw + r.YawAxis }

func (r *CameraRigComponent) Forward() mgl32.Vec3 {
	y := float64(mgl32.DegToRad(r.Yaw()))
	p := float64(mgl32.DegToRad(r.Pitch))
	return mgl32.Vec3{
		float32(math.Sin(y) * math.Cos(p)),
		float32(-math.Sin(p)),
		float32(-math.Cos(y) * math.Cos(p)),
	}
}

// Rotation is the orientation whose forward axis is Forward.
func (r *CameraRigComponent) Rotation() mgl32.Quat {
	return LookRotation(r.Yaw(), r.Pitch)
}

// WorldYaw is the rig's heading read off the horizontal projection of its
// forward vector, in (-180, 180].
func WorldYaw(r *CameraRigComponent) float32 {
	h := horizontal(r.Forward())
	if h.Len() < 1e-5 {
		return DeltaAngle(0, r.Yaw())
	}
	return mgl32.RadToDeg(float32(math.Atan2(float64(h.X()), float64(-h.Z()))))
}

// SyncYaw turns dst's yaw axis by the shortest delta so it faces where src
// faces. Pitch is left alone.
func SyncYaw(src, dst *CameraRigComponent) {
	if src == nil || dst == nil {
		return
	}
	dst.YawAxis += DeltaAngle(WorldYaw(dst), WorldYaw(src))
}

func (r *CameraRigComponent) clampPitch(minPitch, maxPitch float32) {
	if r.MinPitch < r.MaxPitch {
		minPitch, maxPitch = r.MinPitch, r.MaxPitch
	}
	r.Pitch = clampf(r.Pitch, minPitch, maxPitch)
}

// ActiveCameraRig returns the highest-priority rig, lowest id on ties.
func ActiveCameraRig(cmd *Commands) (EntityId, *CameraRigComponent) {
	var (
		bestId  EntityId
		bestRig *CameraRigComponent
	)
	MakeQuery1[CameraRigComponent](cmd).Map(func(eid EntityId, rig *CameraRigComponent) bool {
		if bestRig == nil || rig.Priority > bestRig.Priority {
			bestId, bestRig = eid, rig
		}
		return true
	})
	return bestId, bestRig
}

// BodyCameraRig returns the live rig of the player owning body. Bodies no
// form machine owns fall back to ActiveCameraRig.
func BodyCameraRig(cmd *Commands, body EntityId) *CameraRigComponent {
	var rig *CameraRigComponent
	found := false
	MakeQuery1[FormMachineComponent](cmd).Map(func(eid EntityId, m *FormMachineComponent) bool {
		if m.Primary != body && m.Secondary != body {
			return true
		}
		found = true
		rig = GetComponent[CameraRigComponent](cmd, m.Camera(m.State))
		return false
	})
	if !found {
		_, rig = ActiveCameraRig(cmd)
	}
	return rig
}

// CameraLookSystem turns every player's live rig from the Look intent. With
// no players the highest-priority rig is turned.
func CameraLookSystem(cmd *Commands, intent *Intent, clock *Time, cfg *Config) {
	if intent.Look == (mgl32.Vec2{}) {
		return
	}
	var rigs []*CameraRigComponent
	MakeQuery1[FormMachineComponent](cmd).Map(func(eid EntityId, m *FormMachineComponent) bool {
		if rig := GetComponent[CameraRigComponent](cmd, m.Camera(m.State)); rig != nil {
			rigs = append(rigs, rig)
		}
		return true
	})
	if len(rigs) == 0 {
		if _, rig := ActiveCameraRig(cmd); rig != nil {
			rigs = append(rigs, rig)
		}
	}

	dt := clock.Seconds()
	for _, rig := range rigs {
		rig.YawAxis += intent.Look.X() * cfg.Camera.YawSpeed * dt
		rig.Pitch -= intent.Look.Y() * cfg.Camera.PitchSpeed * dt
		rig.clampPitch(cfg.Camera.MinPitch, cfg.Camera.MaxPitch)
	}
}

// CameraFollowSystem places every rig relative to its target. It runs after
// the form mirror so rigs see this frame's pose.
func CameraFollowSystem(cmd *Commands) {
	MakeQuery2[CameraRigComponent, TransformComponent](cmd).Map(func(eid EntityId, rig *CameraRigComponent, tr *TransformComponent) bool {
		target := GetComponent[TransformComponent](cmd, rig.Target)
		if target == nil {
			return true
		}
		anchor := target.Position.Add(rig.Offset)
		switch rig.Mode {
		case RigOrbital:
			tr.Position = anchor.Sub(rig.Forward().Mul(rig.Distance))
		case RigPanTilt:
			tr.Position = anchor
		}
		tr.Rotation = rig.Rotation()
		return true
	})
}
