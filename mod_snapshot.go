package umbra

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// LightData is one light as seen by a snapshot.
type LightData struct {
	ID        EntityId   `json:"id"`
	LightId   *LightId   `json:"light_id,omitempty"`
	Type      string     `json:"type"`
	Position  mgl32.Vec3 `json:"position"`
	Forward   mgl32.Vec3 `json:"forward"`
	Range     float32    `json:"range"`
	ConeAngle float32    `json:"cone_angle"`
	Hits      int        `json:"hits"`
}

// PlayerData is the form and exposure state of one player root.
type PlayerData struct {
	ID          EntityId   `json:"id"`
	Position    mgl32.Vec3 `json:"position"`
	Center      mgl32.Vec3 `json:"center"`
	Form        FormState  `json:"form"`
	Mode        string     `json:"mode"`
	CameraYaw   float32    `json:"camera_yaw"`
	Illuminated bool       `json:"illuminated"`
	Lights      []LightId  `json:"lights"`
}

type Snapshot struct {
	Frame   uint64       `json:"frame"`
	Seconds float64      `json:"seconds"`
	Lights  []LightData  `json:"lights"`
	Players []PlayerData `json:"players"`
}

// TakeSnapshot captures every light and player. Lights and players are
// ordered by entity id.
func TakeSnapshot(cmd *Commands, clock *Time) Snapshot {
	var snap Snapshot
	if clock != nil {
		snap.Frame = clock.Frame
		snap.Seconds = clock.Time.Sub(time.Time{}).Seconds()
	}

	MakeQuery3[TransformComponent, LightComponent, LightSensorComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, lc *LightComponent, sensor *LightSensorComponent) bool {
		data := LightData{
			ID:        eid,
			Type:      lc.Type.String(),
			Position:  tr.Position,
			Forward:   tr.Forward(),
			Range:     lc.Range,
			ConeAngle: lc.ConeAngle,
		}
		if sensor != nil {
			id := sensor.Id
			data.LightId = &id
			for _, hit := range sensor.hits {
				if hit {
					data.Hits++
				}
			}
		}
		snap.Lights = append(snap.Lights, data)
		return true
	}, LightSensorComponent{})

	MakeQuery2[FormMachineComponent, ExposureComponent](cmd).Map(func(eid EntityId, m *FormMachineComponent, ec *ExposureComponent) bool {
		data := PlayerData{
			ID:   eid,
			Form: m.State,
			Mode: ModeKinematic.String(),
		}
		if tr := GetComponent[TransformComponent](cmd, eid); tr != nil {
			data.Position = tr.Position
		}
		if det := GetComponent[DetectableComponent](cmd, eid); det != nil {
			data.Center = det.Center
		}
		if body := GetComponent[FormBodyComponent](cmd, m.Body(m.State)); body != nil {
			data.Mode = body.Mode.String()
		}
		if rig := GetComponent[CameraRigComponent](cmd, m.Camera(m.State)); rig != nil {
			data.CameraYaw = WorldYaw(rig)
		}
		if ec.Exposure != nil {
			data.Illuminated = ec.Exposure.Published()
			data.Lights = ec.Exposure.Lights()
		}
		snap.Players = append(snap.Players, data)
		return true
	})

	sort.Slice(snap.Lights, func(i, j int) bool { return snap.Lights[i].ID < snap.Lights[j].ID })
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].ID < snap.Players[j].ID })
	return snap
}

func SaveSnapshot(cmd *Commands, clock *Time, filename string) error {
	bytes, err := json.MarshalIndent(TakeSnapshot(cmd, clock), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(filename, bytes, 0644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", filename, err)
	}
	return nil
}

func LoadSnapshot(filename string) (*Snapshot, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", filename, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(bytes, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", filename, err)
	}
	return &snap, nil
}

// SceneDef turns a snapshot back into a scene that respawns its sensed
// lights and the first player where they were captured. Occluders are not
// part of a snapshot.
func (s *Snapshot) SceneDef() *SceneDef {
	def := &SceneDef{}
	for _, l := range s.Lights {
		lt, ok := ParseLightType(l.Type)
		if !ok {
			continue
		}
		yaw, pitch := yawPitchOf(l.Forward)
		def.Lights = append(def.Lights, LightDef{
			Type:      lt,
			Position:  l.Position,
			Yaw:       yaw,
			Pitch:     pitch,
			Range:     l.Range,
			ConeAngle: l.ConeAngle,
		})
	}
	if len(s.Players) > 0 {
		p := s.Players[0]
		def.Player = PlayerDef{Position: p.Position, Yaw: p.CameraYaw, Center: p.Center}
	}
	return def
}

// yawPitchOf inverts LookRotation for a forward vector.
func yawPitchOf(forward mgl32.Vec3) (yaw, pitch float32) {
	if forward.Len() == 0 {
		return 0, 0
	}
	f := forward.Normalize()
	pitch = mgl32.RadToDeg(float32(math.Asin(float64(clampf(-f.Y(), -1, 1)))))
	if h := horizontal(f); h.Len() > 1e-6 {
		yaw = mgl32.RadToDeg(float32(math.Atan2(float64(f.X()), float64(-f.Z()))))
	}
	return yaw, pitch
}
