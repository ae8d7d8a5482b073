package umbra

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// FormState names one of the two physical representations of an entity.
type FormState int

const (
	PrimaryForm FormState = iota
	SecondaryForm
)

func (f FormState) String() string {
	switch f {
	case PrimaryForm:
		return "primary"
	case SecondaryForm:
		return "secondary"
	}
	return fmt.Sprintf("FormState(%d)", int(f))
}

func (f FormState) Valid() bool { return f == PrimaryForm || f == SecondaryForm }

func (f FormState) Other() FormState {
	if f == PrimaryForm {
		return SecondaryForm
	}
	return PrimaryForm
}

// ParseFormState accepts "primary" or "secondary" in any case.
func ParseFormState(name string) (FormState, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "primary":
		return PrimaryForm, true
	case "secondary":
		return SecondaryForm, true
	}
	return 0, false
}

func (f *FormState) UnmarshalYAML(value *yaml.Node) error {
	parsed, ok := ParseFormState(value.Value)
	if !ok {
		return fmt.Errorf("line %d: unknown form %q", value.Line, value.Value)
	}
	*f = parsed
	return nil
}

func (f FormState) MarshalYAML() (any, error) { return f.String(), nil }

func (f FormState) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *FormState) UnmarshalText(data []byte) error {
	parsed, ok := ParseFormState(string(data))
	if !ok {
		return fmt.Errorf("unknown form %q", data)
	}
	*f = parsed
	return nil
}

type PhysicsMode int

const (
	ModeKinematic PhysicsMode = iota
	ModeController
	ModeDynamics
)

func (m PhysicsMode) String() string {
	switch m {
	case ModeController:
		return "controller"
	case ModeDynamics:
		return "dynamics"
	}
	return "kinematic"
}

// FormBodyComponent marks an entity as one form's physical representation.
// Kind is the mode the body simulates in while active; Mode is what it is
// doing right now.
type FormBodyComponent struct {
	Form   FormState
	Kind   PhysicsMode
	Mode   PhysicsMode
	Active bool
}

// FormMachineComponent lives on the root entity and binds the two bodies and
// their camera rigs. A zero EntityId means the link is unset.
type FormMachineComponent struct {
	Primary         EntityId
	Secondary       EntityId
	PrimaryCamera   EntityId
	SecondaryCamera EntityId

	State   FormState
	LitForm FormState

	pending    FormState
	hasPending bool
}

func (m *FormMachineComponent) Body(f FormState) EntityId {
	if f == SecondaryForm {
		return m.Secondary
	}
	return m.Primary
}

func (m *FormMachineComponent) Camera(f FormState) EntityId {
	if f == SecondaryForm {
		return m.SecondaryCamera
	}
	return m.PrimaryCamera
}

// FormFor maps an illumination value to the form the entity should take.
func (m *FormMachineComponent) FormFor(lit bool) FormState {
	if lit {
		return m.LitForm
	}
	return m.LitForm.Other()
}

// OnIlluminationChanged is meant to be wired to Exposure.OnChange.
func (m *FormMachineComponent) OnIlluminationChanged(lit bool) {
	m.RequestForm(m.FormFor(lit))
}

// RequestForm queues a transition for the next FormTransitionSystem run.
// The latest request wins.
func (m *FormMachineComponent) RequestForm(f FormState) {
	if !f.Valid() {
		return
	}
	m.pending = f
	m.hasPending = true
}

// ToggleForm requests the form opposite to the one the entity is heading for.
func (m *FormMachineComponent) ToggleForm() {
	target := m.State
	if m.hasPending {
		target = m.pending
	}
	m.RequestForm(target.Other())
}

func (m *FormMachineComponent) Pending() (FormState, bool) {
	return m.pending, m.hasPending
}

func (m *FormMachineComponent) takeRequest() (FormState, bool) {
	f, ok := m.pending, m.hasPending
	m.hasPending = false
	return f, ok
}

// SwitchTo moves the entity into target. It returns false when target is
// already current. Missing bodies, transforms or cameras skip their part of
// the swap and the rest still runs.
func (m *FormMachineComponent) SwitchTo(cmd *Commands, target FormState) bool {
	if !target.Valid() || target == m.State {
		return false
	}
	logger := cmd.Logger()
	from := m.State
	outgoing, incoming := m.Body(from), m.Body(target)

	var pose Pose
	outTr := GetComponent[TransformComponent](cmd, outgoing)
	if outTr != nil {
		pose = outTr.Pose()
	} else {
		logger.Debugf("form %s: body %d has no transform, pose not carried", from, outgoing)
	}

	// Momentum is not transferred between movement models.
	if !deactivateBody(cmd, outgoing) {
		logger.Debugf("form %s: body %d missing, nothing to deactivate", from, outgoing)
	}

	if inTr := GetComponent[TransformComponent](cmd, incoming); inTr != nil && outTr != nil {
		inTr.SetPose(pose)
	}

	if !activateBody(cmd, incoming) {
		logger.Debugf("form %s: body %d missing, nothing to activate", target, incoming)
	}

	outCam := GetComponent[CameraRigComponent](cmd, m.Camera(from))
	inCam := GetComponent[CameraRigComponent](cmd, m.Camera(target))
	if outCam != nil && inCam != nil {
		SyncYaw(outCam, inCam)
	} else {
		logger.Debugf("form %s: camera rig missing, yaw not synced", target)
	}
	if outCam != nil {
		outCam.Priority = CameraPriorityIdle
	}
	if inCam != nil {
		inCam.Priority = CameraPriorityLive
	}

	m.State = target
	logger.Infof("form %s -> %s", from, target)
	return true
}

// deactivateBody forces a body out of simulation: kinematic, zero velocity,
// controller off, collider off.
func deactivateBody(cmd *Commands, eid EntityId) bool {
	body := GetComponent[FormBodyComponent](cmd, eid)
	if body == nil {
		return false
	}
	if rb := GetComponent[RigidBodyComponent](cmd, eid); rb != nil {
		rb.Kinematic = true
		rb.Velocity = mgl32.Vec3{}
		rb.AngularVelocity = mgl32.Vec3{}
	}
	if cc := GetComponent[CharacterControllerComponent](cmd, eid); cc != nil {
		cc.Enabled = false
		cc.VerticalVelocity = 0
		cc.Grounded = false
	}
	if col := GetComponent[ColliderComponent](cmd, eid); col != nil {
		col.Disabled = true
	}
	body.Active = false
	body.Mode = ModeKinematic
	return true
}

func activateBody(cmd *Commands, eid EntityId) bool {
	body := GetComponent[FormBodyComponent](cmd, eid)
	if body == nil {
		return false
	}
	if col := GetComponent[ColliderComponent](cmd, eid); col != nil {
		col.Disabled = false
	}
	switch body.Kind {
	case ModeDynamics:
		if rb := GetComponent[RigidBodyComponent](cmd, eid); rb != nil {
			rb.Kinematic = false
			rb.Wake()
		}
	case ModeController:
		if cc := GetComponent[CharacterControllerComponent](cmd, eid); cc != nil {
			cc.Enabled = true
		}
	}
	body.Active = true
	body.Mode = body.Kind
	return true
}

type FormsModule struct{}

func (FormsModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(FormTransitionSystem).
			InStage(Update),
	)
	app.UseSystem(
		System(FormMirrorSystem).
			InStage(PostUpdate),
	)
}

// FormTransitionSystem applies queued requests. It must run after
// ExposureSystem so a published edge is acted on in the same tick.
func FormTransitionSystem(cmd *Commands) {
	MakeQuery1[FormMachineComponent](cmd).Map(func(eid EntityId, m *FormMachineComponent) bool {
		if target, ok := m.takeRequest(); ok {
			m.SwitchTo(cmd, target)
		}
		return true
	})
}

// FormMirrorSystem copies the active body's pose to the root and from the
// root to the inactive body, and holds the inactive body out of simulation.
func FormMirrorSystem(cmd *Commands) {
	MakeQuery2[FormMachineComponent, TransformComponent](cmd).Map(func(eid EntityId, m *FormMachineComponent, root *TransformComponent) bool {
		if activeTr := GetComponent[TransformComponent](cmd, m.Body(m.State)); activeTr != nil {
			root.SetPose(activeTr.Pose())
		}
		inactive := m.Body(m.State.Other())
		if tr := GetComponent[TransformComponent](cmd, inactive); tr != nil {
			tr.SetPose(root.Pose())
		}
		deactivateBody(cmd, inactive)
		return true
	})
}
