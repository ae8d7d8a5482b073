package umbra

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the light/form core. DefaultConfig values
// are tuned for a third-person walk at human scale; YAML files override them
// field by field.
type Config struct {
	LogPrefix  string           `yaml:"log_prefix"`
	Debug      bool             `yaml:"debug"`
	Time       TimeConfig       `yaml:"time"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Controller ControllerConfig `yaml:"controller"`
	Dynamics   DynamicsConfig   `yaml:"dynamics"`
	Camera     CameraConfig     `yaml:"camera"`
	Forms      FormsConfig      `yaml:"forms"`
}

type TimeConfig struct {
	FixedStep     time.Duration `yaml:"fixed_step"`
	MaxFixedSteps int           `yaml:"max_fixed_steps"`
}

type VisibilityConfig struct {
	DirectionalOffset   float32 `yaml:"directional_offset"`
	SpotOffset          float32 `yaml:"spot_offset"`
	DirectionalDistance float32 `yaml:"directional_distance"`
	// IgnoreLayers lists collider layers that never occlude light.
	IgnoreLayers []string `yaml:"ignore_layers"`
	DebugRays    bool     `yaml:"debug_rays"`
}

type PhysicsConfig struct {
	Gravity        float32 `yaml:"gravity"`
	LinearDamping  float32 `yaml:"linear_damping"`
	AngularDamping float32 `yaml:"angular_damping"`
	SleepThreshold float32 `yaml:"sleep_threshold"`
	SleepTime      float32 `yaml:"sleep_time"`
}

type ControllerConfig struct {
	MoveSpeed        float32 `yaml:"move_speed"`
	SprintMultiplier float32 `yaml:"sprint_multiplier"`
	Gravity          float32 `yaml:"gravity"`
	JumpHeight       float32 `yaml:"jump_height"`
	GroundSnap       float32 `yaml:"ground_snap"`
}

type DynamicsConfig struct {
	Acceleration       float32 `yaml:"acceleration"`
	MaxHorizontalSpeed float32 `yaml:"max_horizontal_speed"`
	IdleBrake          float32 `yaml:"idle_brake"`
	TurnResponsiveness float32 `yaml:"turn_responsiveness"`
	LevitateAccel      float32 `yaml:"levitate_accel"`
	LevitateMaxSpeed   float32 `yaml:"levitate_max_speed"`
	DropSpeed          float32 `yaml:"drop_speed"`
	Mass               float32 `yaml:"mass"`
}

type CameraConfig struct {
	OrbitDistance float32 `yaml:"orbit_distance"`
	TargetHeight  float32 `yaml:"target_height"`
	YawSpeed      float32 `yaml:"yaw_speed"`
	PitchSpeed    float32 `yaml:"pitch_speed"`
	MinPitch      float32 `yaml:"min_pitch"`
	MaxPitch      float32 `yaml:"max_pitch"`
}

type FormsConfig struct {
	// LitForm is the form taken while illuminated; the other form is taken in
	// shadow and is also the form a player spawns in.
	LitForm FormState `yaml:"lit_form"`
}

func DefaultConfig() Config {
	return Config{
		LogPrefix: "umbra",
		Time: TimeConfig{
			FixedStep:     DefaultFixedStep,
			MaxFixedSteps: DefaultMaxFixedSteps,
		},
		Visibility: VisibilityConfig{
			DirectionalOffset:   0.1,
			SpotOffset:          0.05,
			DirectionalDistance: 1000,
			IgnoreLayers:        []string{"ignore_light"},
		},
		Physics: PhysicsConfig{
			Gravity:        9.81,
			LinearDamping:  0.99,
			AngularDamping: 0.98,
			SleepThreshold: 0.05,
			SleepTime:      1.0,
		},
		Controller: ControllerConfig{
			MoveSpeed:        4.5,
			SprintMultiplier: 1.7,
			Gravity:          -20,
			JumpHeight:       1.6,
			GroundSnap:       -2,
		},
		Dynamics: DynamicsConfig{
			Acceleration:       18,
			MaxHorizontalSpeed: 7,
			IdleBrake:          10,
			TurnResponsiveness: 1,
			LevitateAccel:      6,
			LevitateMaxSpeed:   2.2,
			DropSpeed:          14,
			Mass:               1,
		},
		Camera: CameraConfig{
			OrbitDistance: 5,
			TargetHeight:  1.4,
			YawSpeed:      180,
			PitchSpeed:    120,
			MinPitch:      -20,
			MaxPitch:      70,
		},
		Forms: FormsConfig{
			LitForm: SecondaryForm,
		},
	}
}

// ParseConfig overlays YAML onto DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	var errs []error
	if c.Time.FixedStep <= 0 {
		errs = append(errs, fmt.Errorf("time.fixed_step must be positive, got %v", c.Time.FixedStep))
	}
	if c.Time.MaxFixedSteps <= 0 {
		errs = append(errs, fmt.Errorf("time.max_fixed_steps must be positive, got %d", c.Time.MaxFixedSteps))
	}
	if c.Visibility.DirectionalDistance <= 0 {
		errs = append(errs, fmt.Errorf("visibility.directional_distance must be positive, got %v", c.Visibility.DirectionalDistance))
	}
	if c.Visibility.DirectionalOffset < 0 || c.Visibility.SpotOffset < 0 {
		errs = append(errs, errors.New("visibility offsets must not be negative"))
	}
	for _, name := range c.Visibility.IgnoreLayers {
		if _, ok := LayerByName(name); !ok {
			errs = append(errs, fmt.Errorf("visibility.ignore_layers: unknown layer %q", name))
		}
	}
	if c.Camera.MinPitch > c.Camera.MaxPitch {
		errs = append(errs, fmt.Errorf("camera.min_pitch %v exceeds max_pitch %v", c.Camera.MinPitch, c.Camera.MaxPitch))
	}
	if c.Dynamics.Mass <= 0 {
		errs = append(errs, fmt.Errorf("dynamics.mass must be positive, got %v", c.Dynamics.Mass))
	}
	if !c.Forms.LitForm.Valid() {
		errs = append(errs, errors.New("forms: lit_form must be primary or secondary"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// OcclusionMask is every layer except the ignored ones.
func (c VisibilityConfig) OcclusionMask() LayerMask {
	mask := LayerMaskAll
	for _, name := range c.IgnoreLayers {
		if l, ok := LayerByName(name); ok {
			mask &^= LayerMask(l)
		}
	}
	return mask
}
