package umbra

// LifetimeComponent allows an entity to automatically be removed after a set duration.
type LifetimeComponent struct {
	TimeLeft float32
}

type LifecycleModule struct{}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(lifetimeSystem).
			InStage(Finale),
	)
}

func lifetimeSystem(clock *Time, cmd *Commands) {
	dt := clock.Seconds()
	if dt <= 0 {
		return
	}
	logger := cmd.Logger()
	MakeQuery1[LifetimeComponent](cmd).Map(func(eid EntityId, lt *LifetimeComponent) bool {
		lt.TimeLeft -= dt
		if lt.TimeLeft <= 0 {
			logger.Debugf("lifecycle: removing expired entity %d", eid)
			cmd.RemoveEntity(eid)
		}
		return true
	})
}
