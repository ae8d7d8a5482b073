package umbra

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Intent is the player's input for the current frame, already resolved from
// devices. Move is (strafe, forward) and Look is (yaw, pitch) in [-1, 1].
type Intent struct {
	Move       mgl32.Vec2
	Look       mgl32.Vec2
	Jump       bool
	Sprint     bool
	Levitate   bool
	ToggleForm bool
}

// CharacterControllerComponent drives a body by direct displacement.
type CharacterControllerComponent struct {
	Enabled          bool
	VerticalVelocity float32
	Grounded         bool
}

// LevitatorComponent carries the per-body state of dynamics-form movement.
type LevitatorComponent struct {
	GravityScale float32
	levitating   bool
}

type MovementModule struct{}

func (MovementModule) Install(app *App, cmd *Commands) {
	if Resource[Intent](app) == nil {
		cmd.AddResources(&Intent{})
	}

	app.UseSystem(
		System(FormToggleSystem).
			InStage(PreUpdate),
	)
	app.UseSystem(
		System(CameraLookSystem).
			InStage(Update),
	)
	app.UseSystem(
		System(ControllerMovementSystem).
			InStage(Physics),
	)
	app.UseSystem(
		System(DynamicsMovementSystem).
			InStage(Physics),
	)
	app.UseSystem(
		System(CameraFollowSystem).
			InStage(PostUpdate),
	)
	app.UseSystem(
		System(resetIntentSystem).
			InStage(Finale),
	)
}

// FormToggleSystem turns a toggle intent into a manual form request.
func FormToggleSystem(cmd *Commands, intent *Intent) {
	if !intent.ToggleForm {
		return
	}
	MakeQuery1[FormMachineComponent](cmd).Map(func(eid EntityId, m *FormMachineComponent) bool {
		m.ToggleForm()
		return true
	})
	intent.ToggleForm = false
}

func resetIntentSystem(intent *Intent) {
	intent.Look = mgl32.Vec2{}
	intent.Jump = false
	intent.ToggleForm = false
}

// wishDirection maps Move onto the horizontal plane relative to the live
// camera of the player owning body. The result has length at most 1.
func wishDirection(cmd *Commands, body EntityId, move mgl32.Vec2) mgl32.Vec3 {
	yaw := float32(0)
	if rig := BodyCameraRig(cmd, body); rig != nil {
		yaw = WorldYaw(rig)
	}
	rad := float64(mgl32.DegToRad(yaw))
	forward := mgl32.Vec3{float32(math.Sin(rad)), 0, float32(-math.Cos(rad))}
	right := mgl32.Vec3{float32(math.Cos(rad)), 0, float32(math.Sin(rad))}

	wish := right.Mul(move.X()).Add(forward.Mul(move.Y()))
	if l := wish.Len(); l > 1 {
		wish = wish.Mul(1 / l)
	}
	return wish
}

// ControllerMovementSystem walks enabled character controllers for one
// fixed step.
func ControllerMovementSystem(cmd *Commands, intent *Intent, clock *Time, cfg *Config, physics *PhysicsWorld, world *CollisionWorld) {
	dt := clock.FixedSeconds()
	c := cfg.Controller
	MakeQuery3[TransformComponent, CharacterControllerComponent, ColliderComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, cc *CharacterControllerComponent, col *ColliderComponent) bool {
		if !cc.Enabled {
			return true
		}

		wish := wishDirection(cmd, eid, intent.Move)
		speed := c.MoveSpeed
		if intent.Sprint {
			speed *= c.SprintMultiplier
		}

		if cc.Grounded && cc.VerticalVelocity <= 0 {
			cc.VerticalVelocity = c.GroundSnap
		}
		if intent.Jump && cc.Grounded {
			cc.VerticalVelocity = float32(math.Sqrt(float64(c.JumpHeight * -2 * c.Gravity)))
			cc.Grounded = false
		}
		cc.VerticalVelocity += c.Gravity * dt

		var half mgl32.Vec3
		if col != nil && !col.Disabled {
			half = col.halfExtents(tr)
		}

		displacement := wish.Mul(speed * dt)
		displacement[1] = cc.VerticalVelocity * dt

		var blocked bool
		tr.Position, blocked = resolveAxis(world, eid, half, physics.MoveMask, tr.Position, displacement, 1)
		if blocked {
			cc.Grounded = cc.VerticalVelocity < 0
			cc.VerticalVelocity = 0
		} else {
			cc.Grounded = false
		}
		tr.Position, _ = resolveAxis(world, eid, half, physics.MoveMask, tr.Position, displacement, 0)
		tr.Position, _ = resolveAxis(world, eid, half, physics.MoveMask, tr.Position, displacement, 2)

		if wish.Len() > 1e-4 {
			tr.Rotation = YawRotation(mgl32.RadToDeg(float32(math.Atan2(float64(wish.X()), float64(-wish.Z())))))
		}
		return true
	}, ColliderComponent{})
}

// DynamicsMovementSystem pushes the active dynamics body toward the wish
// direction and handles levitation. DynamicsSystem integrates afterwards.
func DynamicsMovementSystem(cmd *Commands, intent *Intent, clock *Time, cfg *Config) {
	dt := clock.FixedSeconds()
	d := cfg.Dynamics
	MakeQuery3[RigidBodyComponent, FormBodyComponent, LevitatorComponent](cmd).Map(func(eid EntityId, rb *RigidBodyComponent, body *FormBodyComponent, lev *LevitatorComponent) bool {
		if !body.Active || body.Kind != ModeDynamics || rb.Kinematic {
			lev.levitating = false
			return true
		}

		wish := wishDirection(cmd, eid, intent.Move)
		horizontalVel := horizontal(rb.Velocity)
		if wish.Len() > 1e-4 {
			desired := wish.Normalize().Mul(d.MaxHorizontalSpeed)
			accelDir := wish.Normalize().Mul(d.TurnResponsiveness)
			if delta := desired.Sub(horizontalVel); delta.Len() > 1e-6 {
				accelDir = accelDir.Add(delta.Normalize().Mul(1 - clampf(d.TurnResponsiveness, 0, 1)))
			}
			if accelDir.Len() > 1e-6 {
				rb.ApplyAcceleration(accelDir.Normalize().Mul(d.Acceleration), dt)
			}
		} else if horizontalVel.Dot(horizontalVel) >= 0.01 {
			rb.ApplyAcceleration(horizontalVel.Normalize().Mul(-d.IdleBrake), dt)
		}

		horizontalVel = horizontal(rb.Velocity)
		if hs := horizontalVel.Len(); hs > d.MaxHorizontalSpeed {
			capped := horizontalVel.Mul(d.MaxHorizontalSpeed / hs)
			rb.Velocity = mgl32.Vec3{capped.X(), rb.Velocity.Y(), capped.Z()}
		}

		switch {
		case intent.Levitate:
			lev.levitating = true
			rb.GravityScale = 0
			rb.ApplyAcceleration(mgl32.Vec3{0, d.LevitateAccel, 0}, dt)
			if rb.Velocity.Y() > d.LevitateMaxSpeed {
				rb.Velocity[1] = d.LevitateMaxSpeed
			}
		case lev.levitating:
			lev.levitating = false
			rb.GravityScale = lev.GravityScale
			rb.Velocity[1] = -float32(math.Abs(float64(d.DropSpeed)))
		default:
			rb.GravityScale = lev.GravityScale
		}
		return true
	})
}
