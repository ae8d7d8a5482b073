package umbra

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	// Test setup
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	// Add a resource
	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1) // Try adding resource1 again, should panic
	})

	// Add a resource
	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
	assert.Same(t, resource2, Resource[MockResource2](app))
}

func TestApp_callSystemResolvesArguments(t *testing.T) {
	app := NewAppBuilder().Build()
	app.addResources(NewMockResource1("r1"))

	var got string
	app.callSystem(func(cmd *Commands, r *MockResource1) {
		require.NotNil(t, cmd)
		got = r.name
	})
	assert.Equal(t, "r1", got)

	assert.Panics(t, func() {
		app.callSystem(func(r *MockResource2) {})
	}, "unknown dependency must panic")
}

func TestApp_TickRunsStagesInOrder(t *testing.T) {
	app := NewAppBuilder().Build()
	var order []string
	for _, s := range []Stage{Finale, PostUpdate, Physics, Update, PreUpdate} {
		name := s.Name
		app.UseSystem(System(func() { order = append(order, name) }).InStage(s))
	}

	app.Tick(DefaultFixedStep)

	assert.Equal(t, []string{"PreUpdate", "Update", "Physics", "PostUpdate", "Finale"}, order)
}

func TestApp_FixedStagesFollowAccumulator(t *testing.T) {
	app := NewAppBuilder().
		UseModule(TimeModule{FixedStep: 10 * time.Millisecond, MaxSteps: 3}).
		Build()

	steps := 0
	app.UseSystem(System(func() { steps++ }).InStage(Physics))

	app.Tick(5 * time.Millisecond)
	assert.Equal(t, 0, steps, "half a step should not integrate")

	app.Tick(5 * time.Millisecond)
	assert.Equal(t, 1, steps)

	app.Tick(25 * time.Millisecond)
	assert.Equal(t, 3, steps, "2.5 steps of backlog run two steps")

	steps = 0
	app.Tick(time.Second)
	assert.Equal(t, 3, steps, "backlog is capped at MaxSteps")

	clock := Resource[Time](app)
	assert.LessOrEqual(t, clock.accumulator, clock.FixedDt)
}

func TestApp_CommandsFlushBetweenStages(t *testing.T) {
	type Marker struct{}
	app := NewAppBuilder().Build()

	var spawned EntityId
	seenInUpdate := false
	app.UseSystem(System(func(cmd *Commands) {
		if spawned == 0 {
			spawned = cmd.AddEntity(Marker{})
		}
	}).InStage(PreUpdate))
	app.UseSystem(System(func(cmd *Commands) {
		seenInUpdate = cmd.HasEntity(spawned)
	}).InStage(Update))

	app.Tick(DefaultFixedStep)
	assert.True(t, seenInUpdate, "entities added in PreUpdate are visible in Update")
}

func TestApp_UseStage(t *testing.T) {
	app := NewAppBuilder().Build()
	custom := Stage{Name: "Custom", UpdateType: DynamicUpdate}

	app.UseStage(custom, AfterStage(Update))
	app.UseStage(custom, AfterStage(Update))

	var names []string
	for _, s := range app.stages {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"PreUpdate", "Update", "Custom", "Physics", "PostUpdate", "Finale"}, names)

	assert.Panics(t, func() {
		app.UseSystem(System(func() {}).InStage(Stage{Name: "Missing"}))
	})
}

func TestApp_LoggerNeverNil(t *testing.T) {
	var app *App
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, NewAppBuilder().Build().Logger())
}
