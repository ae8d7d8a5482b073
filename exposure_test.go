package umbra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExposure_DebounceAcrossLights(t *testing.T) {
	e := NewExposure()
	var published []bool
	e.OnChange = func(lit bool) { published = append(published, lit) }

	a, b := NewLightId(), NewLightId()

	e.OnLightEnter(a)
	e.OnLightEnter(b)
	assert.True(t, e.Commit())
	assert.Equal(t, []bool{true}, published, "two lights entering in one tick publish once")

	e.OnLightStay(a)
	e.OnLightStay(b)
	e.OnLightExit(a)
	assert.False(t, e.Commit(), "one light still hitting")

	e.OnLightExit(b)
	e.OnLightExit(b)
	assert.True(t, e.Commit())
	assert.False(t, e.Commit())
	assert.Equal(t, []bool{true, false}, published)
}

func TestExposure_OrderIndependentWithinTick(t *testing.T) {
	a, b := NewLightId(), NewLightId()

	// B leaves while A arrives, in both orders.
	run := func(exitFirst bool) []bool {
		e := NewExposure()
		var published []bool
		e.OnChange = func(lit bool) { published = append(published, lit) }

		e.OnLightEnter(b)
		e.Commit()
		if exitFirst {
			e.OnLightExit(b)
			e.OnLightEnter(a)
		} else {
			e.OnLightEnter(a)
			e.OnLightExit(b)
		}
		e.Commit()
		return published
	}

	assert.Equal(t, []bool{true}, run(true))
	assert.Equal(t, []bool{true}, run(false))
}

func TestExposure_Idempotent(t *testing.T) {
	e := NewExposure()
	a := NewLightId()

	e.OnLightExit(a)
	assert.False(t, e.Illuminated())

	e.OnLightEnter(a)
	e.OnLightEnter(a)
	e.OnLightStay(a)
	assert.Len(t, e.Lights(), 1)

	e.OnLightExit(a)
	assert.False(t, e.Illuminated())
}

func TestExposure_PruneStaleLights(t *testing.T) {
	e := NewExposure()
	a, b := NewLightId(), NewLightId()
	e.OnLightEnter(a)
	e.OnLightEnter(b)
	e.Commit()

	alive := map[LightId]bool{b: true}
	assert.Equal(t, 1, e.Prune(func(id LightId) bool { return alive[id] }))
	assert.Equal(t, []LightId{b}, e.Lights())
	assert.False(t, e.Commit(), "b still hits")

	assert.Equal(t, 1, e.Prune(func(LightId) bool { return false }))
	assert.True(t, e.Commit())
	assert.False(t, e.Published())
}

func TestExposure_LiveVersusPublished(t *testing.T) {
	e := NewExposure()
	e.OnLightEnter(NewLightId())

	assert.True(t, e.Illuminated())
	assert.False(t, e.Published(), "publication waits for Commit")

	e.Commit()
	assert.True(t, e.Published())
}

func TestExposureSystem_PrunesAgainstRegistry(t *testing.T) {
	cmd := newTestCommands()
	registry := NewLightRegistry()
	live := NewLightId()
	registry.live[live] = struct{}{}

	e := NewExposure()
	changes := 0
	e.OnChange = func(bool) { changes++ }
	e.OnLightEnter(NewLightId())
	cmd.AddEntity(&ExposureComponent{Exposure: e})
	cmd.app.FlushCommands()

	ExposureSystem(cmd, registry)
	assert.False(t, e.Illuminated(), "the unregistered light is pruned")
	assert.Equal(t, 0, changes)

	e.OnLightEnter(live)
	ExposureSystem(cmd, registry)
	assert.True(t, e.Published())
	assert.Equal(t, 1, changes)
}
