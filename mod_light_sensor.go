package umbra

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Sense runs between PreUpdate and Update: sensors scan before anything
// consumes exposure.
var Sense = Stage{Name: "Sense", UpdateType: DynamicUpdate}

// LightHittable is the capability a detectable entity exposes to sensors.
type LightHittable interface {
	OnLightEnter(light LightId)
	OnLightStay(light LightId)
	OnLightExit(light LightId)
}

// DetectableComponent registers an entity with every light sensor. Center
// is the offset from the transform position to the point that is tested.
type DetectableComponent struct {
	Target LightHittable
	Center mgl32.Vec3
}

type SensorKind int

const (
	SensorDirectional SensorKind = iota
	SensorSpot
)

func (k SensorKind) String() string {
	if k == SensorSpot {
		return "spot"
	}
	return "directional"
}

func (k SensorKind) accepts(t LightType) bool {
	switch k {
	case SensorDirectional:
		return t == LightTypeDirectional
	case SensorSpot:
		return t == LightTypeSpot
	}
	return false
}

// LightSensorComponent sits next to a LightComponent and turns per-frame
// visibility into enter/stay/exit edges for each detectable entity.
type LightSensorComponent struct {
	Id   LightId
	Kind SensorKind

	hits   map[EntityId]bool
	warned bool
}

func NewLightSensor(kind SensorKind) *LightSensorComponent {
	return &LightSensorComponent{
		Id:   NewLightId(),
		Kind: kind,
		hits: make(map[EntityId]bool),
	}
}

// Detected is one registered entity as seen by a scan.
type Detected struct {
	Entity EntityId
	Point  mgl32.Vec3
	Target LightHittable
}

// Hit reports whether the sensor currently holds eid as lit.
func (s *LightSensorComponent) Hit(eid EntityId) bool {
	return s.hits[eid]
}

// Scan runs one tick of the per-entity NotHit/Hit state machine.
func (s *LightSensorComponent) Scan(light Light, detected []Detected, query *VisibilityQuery, logger Logger) {
	if s.hits == nil {
		s.hits = make(map[EntityId]bool)
	}

	present := make(set[EntityId], len(detected))
	for _, d := range detected {
		present[d.Entity] = struct{}{}
	}
	for eid := range s.hits {
		if _, ok := present[eid]; !ok {
			delete(s.hits, eid)
		}
	}

	configured := s.Kind.accepts(light.Type)
	if !configured && !s.warned {
		s.warned = true
		logger.Warnf("%s light sensor %s is attached to a %s light; it will report no hits", s.Kind, s.Id, light.Type)
	}

	for _, d := range detected {
		if d.Target == nil {
			continue
		}
		lit := configured && query.IsVisible(d.Point, light)
		was := s.hits[d.Entity]

		switch {
		case lit && !was:
			s.hits[d.Entity] = true
			d.Target.OnLightEnter(s.Id)
		case lit && was:
			d.Target.OnLightStay(s.Id)
		case !lit && was:
			s.hits[d.Entity] = false
			d.Target.OnLightExit(s.Id)
		}
	}
}

// LightRegistry holds the ids of lights whose sensor still exists this frame.
type LightRegistry struct {
	live set[LightId]
}

func NewLightRegistry() *LightRegistry {
	return &LightRegistry{live: make(set[LightId])}
}

func (r *LightRegistry) Exists(id LightId) bool {
	_, ok := r.live[id]
	return ok
}

func (r *LightRegistry) Len() int { return len(r.live) }

type LightSensorModule struct {
	Visibility VisibilityConfig
}

func (m LightSensorModule) Install(app *App, cmd *Commands) {
	world := Resource[CollisionWorld](app)
	if world == nil {
		world = NewCollisionWorld(0)
		cmd.AddResources(world)
	}
	if Resource[LightRegistry](app) == nil {
		cmd.AddResources(NewLightRegistry())
	}
	debug := &DebugLines{Enabled: m.Visibility.DebugRays}
	cmd.AddResources(debug, NewVisibilityQuery(world, m.Visibility, debug))

	app.UseStage(Sense, BeforeStage(Update))
	app.UseSystem(
		System(clearDebugLinesSystem).
			InStage(PreUpdate),
	)
	app.UseSystem(
		System(LightSensorSystem).
			InStage(Sense),
	)
}

func LightSensorSystem(cmd *Commands, query *VisibilityQuery, registry *LightRegistry) {
	var detected []Detected
	MakeQuery2[TransformComponent, DetectableComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, det *DetectableComponent) bool {
		detected = append(detected, Detected{
			Entity: eid,
			Point:  tr.Position.Add(tr.Rotation.Rotate(det.Center)),
			Target: det.Target,
		})
		return true
	})

	logger := cmd.Logger()
	clear(registry.live)
	MakeQuery3[TransformComponent, LightComponent, LightSensorComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, lc *LightComponent, sensor *LightSensorComponent) bool {
		registry.live[sensor.Id] = struct{}{}
		sensor.Scan(snapshotLight(sensor.Id, tr, lc), detected, query, logger)
		return true
	})
}
