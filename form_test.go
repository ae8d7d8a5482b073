package umbra

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnTestPlayer(t *testing.T) (*Commands, PlayerHandles) {
	t.Helper()
	cmd := newTestCommands()
	h := SpawnPlayer(cmd, PlayerDef{Position: mgl32.Vec3{1, 2, 3}}, DefaultConfig())
	cmd.app.FlushCommands()
	require.NotNil(t, GetComponent[FormMachineComponent](cmd, h.Root))
	return cmd, h
}

func activeModes(cmd *Commands, h PlayerHandles) int {
	n := 0
	for _, eid := range []EntityId{h.Primary, h.Secondary} {
		if GetComponent[FormBodyComponent](cmd, eid).Mode != ModeKinematic {
			n++
		}
	}
	return n
}

func TestSwitchTo_SameFormIsNoop(t *testing.T) {
	cmd, h := spawnTestPlayer(t)
	rb := GetComponent[RigidBodyComponent](cmd, h.Primary)
	rb.Velocity = mgl32.Vec3{1, 0, 0}
	tr := GetComponent[TransformComponent](cmd, h.Primary)
	tr.Position = mgl32.Vec3{4, 4, 4}
	rig := GetComponent[CameraRigComponent](cmd, h.PrimaryCamera)
	rig.YawAxis = 42

	for i := 0; i < 3; i++ {
		assert.False(t, h.Machine.SwitchTo(cmd, PrimaryForm))
	}

	assert.Equal(t, mgl32.Vec3{1, 0, 0}, rb.Velocity)
	assert.Equal(t, mgl32.Vec3{4, 4, 4}, tr.Position)
	assert.Equal(t, float32(42), rig.YawAxis)
	assert.Equal(t, PrimaryForm, h.Machine.State)
}

func TestSwitchTo_PoseContinuityAndExclusion(t *testing.T) {
	cmd, h := spawnTestPlayer(t)
	require.Equal(t, 1, activeModes(cmd, h))

	outTr := GetComponent[TransformComponent](cmd, h.Primary)
	outTr.Position = mgl32.Vec3{5, 1, -2}
	outTr.Rotation = YawRotation(37)
	rb := GetComponent[RigidBodyComponent](cmd, h.Primary)
	rb.Velocity = mgl32.Vec3{3, -1, 2}
	rb.AngularVelocity = mgl32.Vec3{0, 1, 0}

	require.True(t, h.Machine.SwitchTo(cmd, SecondaryForm))

	inTr := GetComponent[TransformComponent](cmd, h.Secondary)
	assert.Equal(t, outTr.Position, inTr.Position)
	assert.Equal(t, outTr.Rotation, inTr.Rotation)

	assert.True(t, rb.Kinematic)
	assert.Equal(t, mgl32.Vec3{}, rb.Velocity)
	assert.Equal(t, mgl32.Vec3{}, rb.AngularVelocity)
	assert.True(t, GetComponent[ColliderComponent](cmd, h.Primary).Disabled)

	assert.True(t, GetComponent[CharacterControllerComponent](cmd, h.Secondary).Enabled)
	assert.False(t, GetComponent[ColliderComponent](cmd, h.Secondary).Disabled)
	body := GetComponent[FormBodyComponent](cmd, h.Secondary)
	assert.True(t, body.Active)
	assert.Equal(t, ModeController, body.Mode)
	assert.Equal(t, 1, activeModes(cmd, h))

	assert.Equal(t, CameraPriorityIdle, GetComponent[CameraRigComponent](cmd, h.PrimaryCamera).Priority)
	assert.Equal(t, CameraPriorityLive, GetComponent[CameraRigComponent](cmd, h.SecondaryCamera).Priority)
	assert.Equal(t, SecondaryForm, h.Machine.State)

	// And back again.
	inTr.Position = mgl32.Vec3{-3, 0, 9}
	require.True(t, h.Machine.SwitchTo(cmd, PrimaryForm))
	assert.Equal(t, mgl32.Vec3{-3, 0, 9}, outTr.Position)
	assert.False(t, rb.Kinematic)
	assert.False(t, GetComponent[CharacterControllerComponent](cmd, h.Secondary).Enabled)
	assert.Equal(t, 1, activeModes(cmd, h))
}

func TestSwitchTo_SyncsYawOnly(t *testing.T) {
	cmd, h := spawnTestPlayer(t)
	out := GetComponent[CameraRigComponent](cmd, h.PrimaryCamera)
	in := GetComponent[CameraRigComponent](cmd, h.SecondaryCamera)
	out.YawAxis, out.Pitch = 170, 30
	in.BaseYaw, in.YawAxis, in.Pitch = 10, -180, -10

	h.Machine.SwitchTo(cmd, SecondaryForm)

	assert.InDelta(t, 170, WorldYaw(in), 1e-3)
	assert.InDelta(t, 0, DeltaAngle(WorldYaw(out), WorldYaw(in)), 1e-3)
	assert.Equal(t, float32(-10), in.Pitch, "pitch is never touched")
	assert.Equal(t, float32(10), in.BaseYaw, "only the yaw axis moves")
	assert.Equal(t, float32(170), out.YawAxis, "the outgoing rig is left alone")
	assert.InDelta(t, -200, in.YawAxis, 1e-3, "shortest way round")
}

func TestSwitchTo_MissingReferencesDegrade(t *testing.T) {
	cmd := newTestCommands()
	m := &FormMachineComponent{State: PrimaryForm, LitForm: SecondaryForm}
	assert.NotPanics(t, func() {
		assert.True(t, m.SwitchTo(cmd, SecondaryForm))
	})
	assert.Equal(t, SecondaryForm, m.State)

	// Bodies without cameras still swap.
	cmd, h := spawnTestPlayer(t)
	h.Machine.PrimaryCamera, h.Machine.SecondaryCamera = 0, 0
	require.True(t, h.Machine.SwitchTo(cmd, SecondaryForm))
	assert.True(t, GetComponent[RigidBodyComponent](cmd, h.Primary).Kinematic)
	assert.True(t, GetComponent[FormBodyComponent](cmd, h.Secondary).Active)

	// An invalid target is ignored.
	assert.False(t, h.Machine.SwitchTo(cmd, FormState(7)))
}

func TestFormMachine_Requests(t *testing.T) {
	cmd, h := spawnTestPlayer(t)
	m := h.Machine

	assert.Equal(t, SecondaryForm, m.FormFor(true))
	assert.Equal(t, PrimaryForm, m.FormFor(false))

	m.ToggleForm()
	m.ToggleForm()
	f, ok := m.Pending()
	require.True(t, ok)
	assert.Equal(t, PrimaryForm, f)
	FormTransitionSystem(cmd)
	assert.Equal(t, PrimaryForm, m.State)

	m.OnIlluminationChanged(true)
	FormTransitionSystem(cmd)
	assert.Equal(t, SecondaryForm, m.State)
	_, ok = m.Pending()
	assert.False(t, ok, "requests are consumed")

	FormTransitionSystem(cmd)
	assert.Equal(t, SecondaryForm, m.State)
}

func TestFormMirrorSystem_OneWayCopy(t *testing.T) {
	cmd, h := spawnTestPlayer(t)
	h.Machine.SwitchTo(cmd, SecondaryForm)

	active := GetComponent[TransformComponent](cmd, h.Secondary)
	active.Position = mgl32.Vec3{7, 0, 7}
	active.Rotation = YawRotation(90)

	inactive := GetComponent[TransformComponent](cmd, h.Primary)
	inactive.Position = mgl32.Vec3{-50, -50, -50}
	rb := GetComponent[RigidBodyComponent](cmd, h.Primary)
	rb.Kinematic = false
	rb.Velocity = mgl32.Vec3{0, -9, 0}

	FormMirrorSystem(cmd)

	root := GetComponent[TransformComponent](cmd, h.Root)
	assert.Equal(t, active.Pose(), root.Pose())
	assert.Equal(t, active.Pose(), inactive.Pose())
	assert.Equal(t, mgl32.Vec3{7, 0, 7}, active.Position, "the active form is never written")
	assert.True(t, rb.Kinematic)
	assert.Equal(t, mgl32.Vec3{}, rb.Velocity)
	assert.Equal(t, 1, activeModes(cmd, h))
}
