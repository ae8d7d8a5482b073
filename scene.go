package umbra

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// SceneDef defines the initial state of a scene.
type SceneDef struct {
	Lights    []LightDef    `yaml:"lights"`
	Occluders []OccluderDef `yaml:"occluders"`
	Player    PlayerDef     `yaml:"player"`
}

// LightDef defines a light instantiation. Directional and spot lights get a
// sensor of the matching kind; other types are decorative.
type LightDef struct {
	Type      LightType  `yaml:"type"`
	Position  mgl32.Vec3 `yaml:"position"`
	Yaw       float32    `yaml:"yaw"`
	Pitch     float32    `yaml:"pitch"`
	Color     [3]float32 `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
	Range     float32    `yaml:"range"`
	ConeAngle float32    `yaml:"cone_angle"`
	Orbit     *Orbiting  `yaml:"orbit"`
	Spin      float32    `yaml:"spin"`
	// Lifetime > 0 makes a flare that removes itself after that many seconds.
	Lifetime float32 `yaml:"lifetime"`
}

// OccluderDef is a static box collider.
type OccluderDef struct {
	Position    mgl32.Vec3 `yaml:"position"`
	HalfExtents mgl32.Vec3 `yaml:"half_extents"`
	Layer       string     `yaml:"layer"`
}

type PlayerDef struct {
	Position    mgl32.Vec3 `yaml:"position"`
	Yaw         float32    `yaml:"yaw"`
	HalfExtents mgl32.Vec3 `yaml:"half_extents"`
	// Center is the offset from the root to the point tested against lights.
	Center mgl32.Vec3 `yaml:"center"`
}

// Rotating spins a light about +Y at Speed degrees per second.
type Rotating struct {
	Speed float32
}

// Orbiting moves a light around Center in the horizontal plane.
type Orbiting struct {
	Center mgl32.Vec3 `yaml:"center"`
	Radius float32    `yaml:"radius"`
	Speed  float32    `yaml:"speed"` // degrees per second
	Angle  float32    `yaml:"angle"`
}

// PlayerHandles are the entities SpawnScene created for the player.
type PlayerHandles struct {
	Root            EntityId
	Primary         EntityId
	Secondary       EntityId
	PrimaryCamera   EntityId
	SecondaryCamera EntityId
	Exposure        *Exposure
	Machine         *FormMachineComponent
}

type SceneHandles struct {
	Player    PlayerHandles
	Lights    []EntityId
	Occluders []EntityId
}

func ParseSceneDef(data []byte) (*SceneDef, error) {
	var def SceneDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	for i, o := range def.Occluders {
		if o.Layer == "" {
			continue
		}
		if _, ok := LayerByName(o.Layer); !ok {
			return nil, fmt.Errorf("parse scene: occluder %d: unknown layer %q", i, o.Layer)
		}
	}
	return &def, nil
}

func LoadSceneDef(path string) (*SceneDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	return ParseSceneDef(data)
}

// SpawnScene queues every entity of the scene. They become visible to
// queries at the next flush.
func SpawnScene(cmd *Commands, scene *SceneDef, cfg Config) SceneHandles {
	var handles SceneHandles
	for _, light := range scene.Lights {
		handles.Lights = append(handles.Lights, spawnLight(cmd, light))
	}
	for _, occ := range scene.Occluders {
		handles.Occluders = append(handles.Occluders, spawnOccluder(cmd, occ))
	}
	handles.Player = SpawnPlayer(cmd, scene.Player, cfg)
	return handles
}

func spawnLight(cmd *Commands, def LightDef) EntityId {
	comps := []any{
		&TransformComponent{
			Position: def.Position,
			Rotation: LookRotation(def.Yaw, def.Pitch),
			Scale:    mgl32.Vec3{1, 1, 1},
		},
		&LightComponent{
			Type:      def.Type,
			Color:     def.Color,
			Intensity: def.Intensity,
			Range:     def.Range,
			ConeAngle: def.ConeAngle,
		},
	}

	switch def.Type {
	case LightTypeDirectional:
		comps = append(comps, NewLightSensor(SensorDirectional))
	case LightTypeSpot:
		comps = append(comps, NewLightSensor(SensorSpot))
	}
	if def.Orbit != nil {
		orbit := *def.Orbit
		comps = append(comps, &orbit)
	}
	if def.Spin != 0 {
		comps = append(comps, &Rotating{Speed: def.Spin})
	}
	if def.Lifetime > 0 {
		comps = append(comps, &LifetimeComponent{TimeLeft: def.Lifetime})
	}

	return cmd.AddEntity(comps...)
}

func spawnOccluder(cmd *Commands, def OccluderDef) EntityId {
	layer := LayerDefault
	if l, ok := LayerByName(def.Layer); ok {
		layer = l
	}
	return cmd.AddEntity(
		NewTransform(def.Position, mgl32.QuatIdent()),
		&ColliderComponent{HalfExtents: def.HalfExtents, Layer: layer},
	)
}

// SpawnPlayer builds the root, both form bodies and their camera rigs. A
// player spawns unlit, so the shadow form's body starts active and the lit
// form's body starts kinematic. The first lit sensing pass switches it.
func SpawnPlayer(cmd *Commands, def PlayerDef, cfg Config) PlayerHandles {
	half := def.HalfExtents
	if half == (mgl32.Vec3{}) {
		half = mgl32.Vec3{0.4, 0.9, 0.4}
	}
	rot := YawRotation(def.Yaw)
	initial := cfg.Forms.LitForm.Other()

	primaryBody := &FormBodyComponent{Form: PrimaryForm, Kind: ModeDynamics}
	rb := &RigidBodyComponent{Mass: cfg.Dynamics.Mass, GravityScale: 1}
	primaryCol := &ColliderComponent{HalfExtents: half, Layer: LayerPlayer}

	secondaryBody := &FormBodyComponent{Form: SecondaryForm, Kind: ModeController}
	cc := &CharacterControllerComponent{}
	secondaryCol := &ColliderComponent{HalfExtents: half, Layer: LayerPlayer}

	if initial == PrimaryForm {
		primaryBody.Active, primaryBody.Mode = true, ModeDynamics
		secondaryCol.Disabled = true
	} else {
		secondaryBody.Active, secondaryBody.Mode = true, ModeController
		cc.Enabled = true
		rb.Kinematic = true
		primaryCol.Disabled = true
	}

	primary := cmd.AddEntity(
		NewTransform(def.Position, rot),
		primaryBody, rb, primaryCol,
		&LevitatorComponent{GravityScale: 1},
	)
	secondary := cmd.AddEntity(
		NewTransform(def.Position, rot),
		secondaryBody, cc, secondaryCol,
	)

	anchor := mgl32.Vec3{0, cfg.Camera.TargetHeight, 0}
	primaryRig := &CameraRigComponent{
		Mode:     RigOrbital,
		Target:   primary,
		BaseYaw:  def.Yaw,
		Pitch:    15,
		MinPitch: cfg.Camera.MinPitch,
		MaxPitch: cfg.Camera.MaxPitch,
		Offset:   anchor,
		Distance: cfg.Camera.OrbitDistance,
	}
	secondaryRig := &CameraRigComponent{
		Mode:     RigPanTilt,
		Target:   secondary,
		BaseYaw:  def.Yaw,
		MinPitch: -80,
		MaxPitch: 80,
		Offset:   anchor,
	}
	if initial == PrimaryForm {
		primaryRig.Priority = CameraPriorityLive
	} else {
		secondaryRig.Priority = CameraPriorityLive
	}
	primaryCamera := cmd.AddEntity(NewTransform(def.Position, rot), primaryRig)
	secondaryCamera := cmd.AddEntity(NewTransform(def.Position, rot), secondaryRig)

	exposure := NewExposure()
	machine := &FormMachineComponent{
		Primary:         primary,
		Secondary:       secondary,
		PrimaryCamera:   primaryCamera,
		SecondaryCamera: secondaryCamera,
		State:           initial,
		LitForm:         cfg.Forms.LitForm,
	}
	exposure.OnChange = machine.OnIlluminationChanged

	root := cmd.AddEntity(
		NewTransform(def.Position, rot),
		&DetectableComponent{Target: exposure, Center: def.Center},
		&ExposureComponent{Exposure: exposure},
		machine,
	)

	return PlayerHandles{
		Root:            root,
		Primary:         primary,
		Secondary:       secondary,
		PrimaryCamera:   primaryCamera,
		SecondaryCamera: secondaryCamera,
		Exposure:        exposure,
		Machine:         machine,
	}
}

type LightMotionModule struct{}

func (LightMotionModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(LightMotionSystem).
			InStage(PreUpdate),
	)
}

// LightMotionSystem advances orbiting and spinning lights.
func LightMotionSystem(cmd *Commands, clock *Time) {
	dt := clock.Seconds()
	if dt <= 0 {
		return
	}
	MakeQuery2[TransformComponent, Orbiting](cmd).Map(func(eid EntityId, tr *TransformComponent, orbit *Orbiting) bool {
		orbit.Angle = float32(math.Mod(float64(orbit.Angle+orbit.Speed*dt), 360))
		rad := float64(mgl32.DegToRad(orbit.Angle))
		tr.Position = orbit.Center.Add(mgl32.Vec3{
			orbit.Radius * float32(math.Cos(rad)),
			0,
			orbit.Radius * float32(math.Sin(rad)),
		})
		return true
	})
	MakeQuery2[TransformComponent, Rotating](cmd).Map(func(eid EntityId, tr *TransformComponent, spin *Rotating) bool {
		tr.Rotation = YawRotation(spin.Speed * dt).Mul(tr.Rotation).Normalize()
		return true
	})
}
