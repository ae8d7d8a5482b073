package umbra

import (
	"time"
)

const (
	DefaultFixedStep     = time.Second / 60
	DefaultMaxFixedSteps = 5
)

// Time is the frame clock. Dt is the variable logic delta; FixedDt is the
// physics step handed to systems in fixed stages.
type Time struct {
	Time    time.Time
	Dt      time.Duration
	FixedDt time.Duration
	Frame   uint64

	MaxFixedSteps int

	accumulator time.Duration
	stepsTaken  int
}

func NewTime(fixed time.Duration, maxSteps int) *Time {
	if fixed <= 0 {
		fixed = DefaultFixedStep
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxFixedSteps
	}
	return &Time{
		FixedDt:       fixed,
		MaxFixedSteps: maxSteps,
	}
}

// Seconds is the logic delta in seconds.
func (t *Time) Seconds() float32 { return float32(t.Dt.Seconds()) }

// FixedSeconds is the physics step in seconds.
func (t *Time) FixedSeconds() float32 { return float32(t.FixedDt.Seconds()) }

func (t *Time) advance(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	t.Dt = dt
	t.Time = t.Time.Add(dt)
	t.Frame++
	t.accumulator += dt
}

func (t *Time) beginFixedStep() bool {
	if t.accumulator < t.FixedDt || t.stepsTaken >= t.MaxFixedSteps {
		return false
	}
	t.accumulator -= t.FixedDt
	t.stepsTaken++
	return true
}

// endFixedSteps drops backlog beyond MaxFixedSteps so a long frame cannot
// snowball into ever longer frames.
func (t *Time) endFixedSteps() {
	if t.stepsTaken >= t.MaxFixedSteps && t.accumulator > t.FixedDt {
		t.accumulator = t.FixedDt
	}
	t.stepsTaken = 0
}

type TimeModule struct {
	FixedStep time.Duration
	MaxSteps  int
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewTime(mod.FixedStep, mod.MaxSteps))
}
