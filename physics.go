package umbra

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type RigidBodyComponent struct {
	Velocity        mgl32.Vec3
	AngularVelocity mgl32.Vec3
	Mass            float32
	GravityScale    float32
	// Kinematic bodies are excluded from integration and move only by
	// direct pose writes.
	Kinematic bool
	Sleeping  bool
	IdleTime  float32
}

func (rb *RigidBodyComponent) Wake() {
	rb.Sleeping = false
	rb.IdleTime = 0
}

func (rb *RigidBodyComponent) ApplyImpulse(impulse mgl32.Vec3) {
	rb.Wake()
	if rb.Mass > 0 {
		rb.Velocity = rb.Velocity.Add(impulse.Mul(1.0 / rb.Mass))
	} else {
		rb.Velocity = rb.Velocity.Add(impulse)
	}
}

// ApplyAcceleration changes velocity independent of mass.
func (rb *RigidBodyComponent) ApplyAcceleration(accel mgl32.Vec3, dt float32) {
	rb.Wake()
	rb.Velocity = rb.Velocity.Add(accel.Mul(dt))
}

type PhysicsWorld struct {
	Gravity mgl32.Vec3
	// Damping is the fraction of velocity kept per fixed step.
	LinearDamping  float32
	AngularDamping float32
	SleepThreshold float32
	SleepTime      float32
	// MoveMask selects the colliders bodies cannot pass through.
	MoveMask LayerMask
}

func NewPhysicsWorld(cfg PhysicsConfig) *PhysicsWorld {
	return &PhysicsWorld{
		Gravity:        mgl32.Vec3{0, -cfg.Gravity, 0},
		LinearDamping:  cfg.LinearDamping,
		AngularDamping: cfg.AngularDamping,
		SleepThreshold: cfg.SleepThreshold,
		SleepTime:      cfg.SleepTime,
		MoveMask:       LayerMaskAll &^ LayerMask(LayerPlayer),
	}
}

type PhysicsModule struct {
	Physics PhysicsConfig
}

func (m PhysicsModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewPhysicsWorld(m.Physics))

	app.UseSystem(
		System(DynamicsSystem).
			InStage(Physics),
	)
}

// DynamicsSystem integrates every simulated rigid body for one fixed step.
// Kinematic, sleeping and inactive form bodies are skipped.
func DynamicsSystem(cmd *Commands, clock *Time, physics *PhysicsWorld, world *CollisionWorld) {
	dt := clock.FixedSeconds()
	if dt <= 0 {
		return
	}

	MakeQuery4[TransformComponent, RigidBodyComponent, ColliderComponent, FormBodyComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, rb *RigidBodyComponent, col *ColliderComponent, body *FormBodyComponent) bool {
		if rb.Kinematic || rb.Sleeping || (body != nil && !body.Active) {
			return true
		}

		if rb.GravityScale != 0 {
			rb.Velocity = rb.Velocity.Add(physics.Gravity.Mul(rb.GravityScale * dt))
		}
		if physics.LinearDamping > 0 {
			rb.Velocity = rb.Velocity.Mul(physics.LinearDamping)
		}
		if physics.AngularDamping > 0 {
			rb.AngularVelocity = rb.AngularVelocity.Mul(physics.AngularDamping)
		}

		displacement := rb.Velocity.Mul(dt)
		if !finite(displacement) {
			rb.Velocity = mgl32.Vec3{}
			return true
		}

		var half mgl32.Vec3
		if col != nil && !col.Disabled {
			half = col.halfExtents(tr)
		}

		// Resolve collisions axis by axis for stability, Y first.
		for _, axis := range [3]int{1, 0, 2} {
			displacement = rb.Velocity.Mul(dt)
			var blocked bool
			tr.Position, blocked = resolveAxis(world, eid, half, physics.MoveMask, tr.Position, displacement, axis)
			if blocked {
				rb.Velocity[axis] = 0
			}
		}

		if rb.AngularVelocity.Len() > 0 {
			tr.Rotation = integrateRotation(tr.Rotation, rb.AngularVelocity, dt)
		}

		if rb.Velocity.Len() < physics.SleepThreshold {
			rb.IdleTime += dt
			if rb.IdleTime > physics.SleepTime {
				rb.Sleeping = true
				rb.Velocity = mgl32.Vec3{}
			}
		} else {
			rb.IdleTime = 0
		}
		return true
	}, ColliderComponent{}, FormBodyComponent{})
}

// resolveAxis moves pos along one axis in small steps and stops in front of
// the first blocking collider. A zero half extent never collides.
func resolveAxis(world *CollisionWorld, self EntityId, half mgl32.Vec3, mask LayerMask, pos, displacement mgl32.Vec3, axis int) (mgl32.Vec3, bool) {
	dist := displacement[axis]
	if math.Abs(float64(dist)) < 0.0001 {
		return pos, false
	}
	if half == (mgl32.Vec3{}) || world == nil {
		pos[axis] += dist
		return pos, false
	}

	stepSize := float32(0.1)
	if dist < 0 {
		stepSize = -0.1
	}

	remaining := float32(math.Abs(float64(dist)))
	if remaining > 10.0 { // at most 10 units per step
		remaining = 10.0
	}

	newPos := pos
	for iterations := 0; remaining > 0 && iterations < 200; iterations++ {
		move := stepSize
		if remaining < float32(math.Abs(float64(stepSize))) {
			move = float32(math.Copysign(float64(remaining), float64(dist)))
		}

		testPos := newPos
		testPos[axis] += move
		if world.Overlaps(testPos, half, mask, self) {
			return newPos, true
		}
		newPos = testPos
		remaining -= float32(math.Abs(float64(move)))
	}
	return newPos, false
}

func integrateRotation(q mgl32.Quat, omega mgl32.Vec3, dt float32) mgl32.Quat {
	spin := mgl32.Quat{W: 0, V: omega}.Mul(q).Scale(0.5 * dt)
	return q.Add(spin).Normalize()
}

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return false
		}
	}
	return true
}
