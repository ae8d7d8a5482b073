package umbra

import (
	"slices"
	"strings"
)

// Exposure merges the hit edges of any number of light sensors into one
// debounced "illuminated" signal for its entity.
//
// Sensor callbacks only edit the hit set. The published value moves in
// Commit, once per tick, so enter and exit events arriving in any order
// within a tick yield the same outcome.
type Exposure struct {
	// OnChange is called with the new value each time Commit publishes.
	OnChange func(illuminated bool)

	lights    set[LightId]
	published bool
}

func NewExposure() *Exposure {
	return &Exposure{lights: make(set[LightId])}
}

func (e *Exposure) OnLightEnter(light LightId) { e.add(light) }
func (e *Exposure) OnLightStay(light LightId)  { e.add(light) }

func (e *Exposure) OnLightExit(light LightId) {
	delete(e.lights, light)
}

func (e *Exposure) add(light LightId) {
	if e.lights == nil {
		e.lights = make(set[LightId])
	}
	e.lights[light] = struct{}{}
}

// Prune drops every light for which exists reports false.
func (e *Exposure) Prune(exists func(LightId) bool) int {
	removed := 0
	for id := range e.lights {
		if !exists(id) {
			delete(e.lights, id)
			removed++
		}
	}
	return removed
}

// Illuminated is the live value: at least one light is hitting.
func (e *Exposure) Illuminated() bool { return len(e.lights) > 0 }

// Published is the last value handed to OnChange.
func (e *Exposure) Published() bool { return e.published }

// Commit publishes the live value if it differs from the published one.
func (e *Exposure) Commit() bool {
	now := e.Illuminated()
	if now == e.published {
		return false
	}
	e.published = now
	if e.OnChange != nil {
		e.OnChange(now)
	}
	return true
}

// Lights returns the hitting lights in a stable order.
func (e *Exposure) Lights() []LightId {
	ids := make([]LightId, 0, len(e.lights))
	for id := range e.lights {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b LightId) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}

type ExposureComponent struct {
	Exposure *Exposure
}

type ExposureModule struct{}

func (ExposureModule) Install(app *App, cmd *Commands) {
	if Resource[LightRegistry](app) == nil {
		cmd.AddResources(NewLightRegistry())
	}
	app.UseSystem(
		System(ExposureSystem).
			InStage(Update),
	)
}

// ExposureSystem prunes lights whose sensor is gone, then publishes.
func ExposureSystem(cmd *Commands, registry *LightRegistry) {
	logger := cmd.Logger()
	MakeQuery1[ExposureComponent](cmd).Map(func(eid EntityId, ec *ExposureComponent) bool {
		if ec.Exposure == nil {
			return true
		}
		if n := ec.Exposure.Prune(registry.Exists); n > 0 {
			logger.Debugf("entity %d: pruned %d stale light(s)", eid, n)
		}
		if ec.Exposure.Commit() {
			logger.Debugf("entity %d: illuminated=%v", eid, ec.Exposure.Published())
		}
		return true
	})
}
