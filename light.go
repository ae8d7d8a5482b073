package umbra

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSpot        LightType = 2
	LightTypeAmbient     LightType = 3
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeDirectional:
		return "directional"
	case LightTypeSpot:
		return "spot"
	case LightTypeAmbient:
		return "ambient"
	}
	return fmt.Sprintf("LightType(%d)", uint32(t))
}

// ParseLightType accepts the names printed by String, in any case.
func ParseLightType(name string) (LightType, bool) {
	for _, candidate := range []LightType{LightTypePoint, LightTypeDirectional, LightTypeSpot, LightTypeAmbient} {
		if strings.EqualFold(strings.TrimSpace(name), candidate.String()) {
			return candidate, true
		}
	}
	return 0, false
}

func (t *LightType) UnmarshalYAML(value *yaml.Node) error {
	parsed, ok := ParseLightType(value.Value)
	if !ok {
		return fmt.Errorf("line %d: unknown light type %q", value.Line, value.Value)
	}
	*t = parsed
	return nil
}

// LightComponent is the ECS component for lights. The light shines along
// its transform's forward axis.
type LightComponent struct {
	Type      LightType
	Color     [3]float32 // RGB
	Intensity float32
	Range     float32 // For point/spot
	ConeAngle float32 // Full cone angle in degrees (spot)
}

// LightId identifies a light for exposure bookkeeping. It outlives the
// light entity, which is what lets aggregators detect destroyed lights.
type LightId uuid.UUID

func NewLightId() LightId { return LightId(uuid.New()) }

func (id LightId) String() string { return uuid.UUID(id).String() }

func (id LightId) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *LightId) UnmarshalText(data []byte) error {
	u, err := uuid.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("light id: %w", err)
	}
	*id = LightId(u)
	return nil
}

// Light is a read-only snapshot of a light taken by its sensor each scan.
type Light struct {
	Id        LightId
	Type      LightType
	Position  mgl32.Vec3
	Forward   mgl32.Vec3
	Range     float32
	ConeAngle float32
}

func snapshotLight(id LightId, tr *TransformComponent, lc *LightComponent) Light {
	return Light{
		Id:        id,
		Type:      lc.Type,
		Position:  tr.Position,
		Forward:   tr.Forward(),
		Range:     lc.Range,
		ConeAngle: lc.ConeAngle,
	}
}
