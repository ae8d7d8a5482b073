package umbra

// UmbraModule installs the whole light/form pipeline from one Config. Module
// order matters: it fixes the order of systems that share a stage.
type UmbraModule struct {
	Config Config
	Logger *DefaultLogger
}

func (m UmbraModule) Install(app *App, cmd *Commands) {
	cfg := m.Config
	cmd.AddResources(&cfg)

	if Resource[DefaultLogger](app) == nil {
		LoggingModule{Prefix: cfg.LogPrefix, Debug: cfg.Debug, Logger: m.Logger}.Install(app, cmd)
	}
	if Resource[Time](app) == nil {
		TimeModule{FixedStep: cfg.Time.FixedStep, MaxSteps: cfg.Time.MaxFixedSteps}.Install(app, cmd)
	}

	modules := []Module{
		CollisionModule{},
		LightMotionModule{},
		LightSensorModule{Visibility: cfg.Visibility},
		ExposureModule{},
		FormsModule{},
		MovementModule{},
		PhysicsModule{Physics: cfg.Physics},
		LifecycleModule{},
	}
	for _, mod := range modules {
		mod.Install(app, cmd)
	}
}
