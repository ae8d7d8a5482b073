package umbra

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movementFixture() (*Commands, *Config, *PhysicsWorld, *Time) {
	cfg := DefaultConfig()
	return newTestCommands(), &cfg, NewPhysicsWorld(cfg.Physics), &Time{FixedDt: 100 * time.Millisecond}
}

func TestControllerMovement_CameraRelative(t *testing.T) {
	cmd, cfg, physics, clock := movementFixture()
	cmd.AddEntity(&CameraRigComponent{Priority: CameraPriorityLive, YawAxis: 90})
	tr := NewTransform(mgl32.Vec3{}, mgl32.QuatIdent())
	cc := &CharacterControllerComponent{Enabled: true}
	cmd.AddEntity(tr, cc)
	cmd.app.FlushCommands()

	intent := &Intent{Move: mgl32.Vec2{0, 1}}
	ControllerMovementSystem(cmd, intent, clock, cfg, physics, NewCollisionWorld(2))

	// Camera faces +X, so forward input walks along +X.
	assert.InDelta(t, 0.45, tr.Position.X(), 1e-4)
	assert.InDelta(t, 0, tr.Position.Z(), 1e-4)
	assert.Less(t, tr.Position.Y(), float32(0), "gravity pulls an airborne controller")
	assert.InDelta(t, 0, tr.Forward().Sub(mgl32.Vec3{1, 0, 0}).Len(), 1e-4, "the body turns to face its motion")
}

func TestControllerMovement_EachPlayerUsesOwnCamera(t *testing.T) {
	cmd, cfg, physics, clock := movementFixture()
	cfg.Forms.LitForm = PrimaryForm
	north := SpawnPlayer(cmd, PlayerDef{Position: mgl32.Vec3{-20, 0, 0}}, *cfg)
	east := SpawnPlayer(cmd, PlayerDef{Position: mgl32.Vec3{20, 0, 0}, Yaw: 90}, *cfg)
	cmd.app.FlushCommands()
	require.Equal(t, SecondaryForm, north.Machine.State)
	require.Equal(t, SecondaryForm, east.Machine.State)

	intent := &Intent{Move: mgl32.Vec2{0, 1}}
	ControllerMovementSystem(cmd, intent, clock, cfg, physics, NewCollisionWorld(2))

	a := GetComponent[TransformComponent](cmd, north.Secondary).Position
	b := GetComponent[TransformComponent](cmd, east.Secondary).Position
	assert.InDelta(t, -20, a.X(), 1e-4)
	assert.InDelta(t, -0.45, a.Z(), 1e-4)
	assert.InDelta(t, 20.45, b.X(), 1e-4)
	assert.InDelta(t, 0, b.Z(), 1e-4)
}

func TestControllerMovement_DisabledDoesNothing(t *testing.T) {
	cmd, cfg, physics, clock := movementFixture()
	tr := NewTransform(mgl32.Vec3{1, 1, 1}, mgl32.QuatIdent())
	cmd.AddEntity(tr, &CharacterControllerComponent{})
	cmd.app.FlushCommands()

	ControllerMovementSystem(cmd, &Intent{Move: mgl32.Vec2{1, 1}}, clock, cfg, physics, NewCollisionWorld(2))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, tr.Position)
}

func TestControllerMovement_GroundAndJump(t *testing.T) {
	cmd, cfg, physics, clock := movementFixture()
	world := NewCollisionWorld(2)

	// Floor with its top face at y=0.
	cmd.AddEntity(
		NewTransform(mgl32.Vec3{0, -0.5, 0}, mgl32.QuatIdent()),
		&ColliderComponent{HalfExtents: mgl32.Vec3{5, 0.5, 5}},
	)
	tr := NewTransform(mgl32.Vec3{0, 0.9, 0}, mgl32.QuatIdent())
	cc := &CharacterControllerComponent{Enabled: true}
	cmd.AddEntity(tr, cc, &ColliderComponent{HalfExtents: mgl32.Vec3{0.4, 0.9, 0.4}, Layer: LayerPlayer})
	cmd.app.FlushCommands()
	UpdateCollisionWorldSystem(cmd, world)

	intent := &Intent{}
	ControllerMovementSystem(cmd, intent, clock, cfg, physics, world)
	require.True(t, cc.Grounded)
	assert.InDelta(t, 0.9, tr.Position.Y(), 1e-4)
	assert.Equal(t, float32(0), cc.VerticalVelocity)

	intent.Jump = true
	ControllerMovementSystem(cmd, intent, clock, cfg, physics, world)
	assert.False(t, cc.Grounded)
	assert.Greater(t, tr.Position.Y(), float32(0.9))
	assert.Greater(t, cc.VerticalVelocity, float32(0))
}

func dynamicsBody(cmd *Commands) (*RigidBodyComponent, *FormBodyComponent) {
	rb := &RigidBodyComponent{Mass: 1, GravityScale: 1}
	body := &FormBodyComponent{Form: PrimaryForm, Kind: ModeDynamics, Mode: ModeDynamics, Active: true}
	cmd.AddEntity(rb, body, &LevitatorComponent{GravityScale: 1})
	cmd.app.FlushCommands()
	return rb, body
}

func TestDynamicsMovement_SpeedCap(t *testing.T) {
	cmd, cfg, _, clock := movementFixture()
	rb, _ := dynamicsBody(cmd)

	intent := &Intent{Move: mgl32.Vec2{0, 1}}
	for i := 0; i < 50; i++ {
		DynamicsMovementSystem(cmd, intent, clock, cfg)
	}

	h := horizontal(rb.Velocity)
	assert.InDelta(t, cfg.Dynamics.MaxHorizontalSpeed, h.Len(), 1e-3)
	assert.Less(t, h.Z(), float32(0), "no camera means forward is -Z")
}

func TestDynamicsMovement_IdleBrake(t *testing.T) {
	cmd, cfg, _, clock := movementFixture()
	rb, _ := dynamicsBody(cmd)
	rb.Velocity = mgl32.Vec3{3, 0, 0}

	DynamicsMovementSystem(cmd, &Intent{}, clock, cfg)
	assert.InDelta(t, 2, rb.Velocity.X(), 1e-4)
}

func TestDynamicsMovement_LevitateThenDrop(t *testing.T) {
	cmd, cfg, _, clock := movementFixture()
	rb, _ := dynamicsBody(cmd)

	intent := &Intent{Levitate: true}
	for i := 0; i < 10; i++ {
		DynamicsMovementSystem(cmd, intent, clock, cfg)
	}
	assert.Equal(t, float32(0), rb.GravityScale)
	assert.InDelta(t, cfg.Dynamics.LevitateMaxSpeed, rb.Velocity.Y(), 1e-4)

	intent.Levitate = false
	DynamicsMovementSystem(cmd, intent, clock, cfg)
	assert.Equal(t, float32(1), rb.GravityScale)
	assert.Equal(t, -cfg.Dynamics.DropSpeed, rb.Velocity.Y())

	// Only the release tick drops.
	rb.Velocity[1] = 0
	DynamicsMovementSystem(cmd, intent, clock, cfg)
	assert.Equal(t, float32(0), rb.Velocity.Y())
}

func TestDynamicsMovement_InactiveBodyIgnored(t *testing.T) {
	cmd, cfg, _, clock := movementFixture()
	rb, body := dynamicsBody(cmd)
	body.Active = false
	rb.Velocity = mgl32.Vec3{1, 0, 0}

	DynamicsMovementSystem(cmd, &Intent{Move: mgl32.Vec2{0, 1}, Levitate: true}, clock, cfg)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, rb.Velocity)
	assert.Equal(t, float32(1), rb.GravityScale)
}

func TestFormToggleSystem(t *testing.T) {
	cmd, h := spawnTestPlayer(t)
	intent := &Intent{ToggleForm: true}

	FormToggleSystem(cmd, intent)
	assert.False(t, intent.ToggleForm)
	f, ok := h.Machine.Pending()
	require.True(t, ok)
	assert.Equal(t, SecondaryForm, f)

	FormTransitionSystem(cmd)
	assert.Equal(t, SecondaryForm, h.Machine.State)

	// No intent, no request.
	FormToggleSystem(cmd, intent)
	_, ok = h.Machine.Pending()
	assert.False(t, ok)
}

func TestResetIntentSystem(t *testing.T) {
	intent := &Intent{
		Move:       mgl32.Vec2{1, 0},
		Look:       mgl32.Vec2{1, 1},
		Jump:       true,
		Sprint:     true,
		Levitate:   true,
		ToggleForm: true,
	}
	resetIntentSystem(intent)

	assert.Equal(t, mgl32.Vec2{}, intent.Look)
	assert.False(t, intent.Jump)
	assert.False(t, intent.ToggleForm)
	assert.Equal(t, mgl32.Vec2{1, 0}, intent.Move, "held inputs persist")
	assert.True(t, intent.Sprint)
	assert.True(t, intent.Levitate)
}
