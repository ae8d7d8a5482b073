// umbra-demo runs a headless light/form scene: the player walks under a spot
// light, switches form while lit and switches back once it leaves the cone.
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/umbra"
)

//go:embed scene.yaml
var defaultScene []byte

type options struct {
	configPath    string
	scenePath     string
	snapshotPath  string
	telemetryAddr string
	ticks         int
	dt            time.Duration
	debug         bool
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (defaults are used when empty)")
	flag.StringVar(&opts.scenePath, "scene", "", "YAML scene file (the built-in corridor when empty)")
	flag.StringVar(&opts.snapshotPath, "snapshot", "", "write the final snapshot as JSON to this file")
	flag.StringVar(&opts.telemetryAddr, "telemetry", "", "serve per-tick snapshots over websocket on this address, e.g. :8090")
	flag.IntVar(&opts.ticks, "ticks", 300, "number of frames to run")
	flag.DurationVar(&opts.dt, "dt", umbra.DefaultFixedStep, "frame delta")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "umbra-demo: %v\n", err)
		os.Exit(1)
	}
}

func loadInputs(opts options) (umbra.Config, *umbra.SceneDef, error) {
	cfg := umbra.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := umbra.LoadConfig(opts.configPath)
		if err != nil {
			return cfg, nil, err
		}
		cfg = loaded
	}
	if opts.debug {
		cfg.Debug = true
	}

	var (
		scene *umbra.SceneDef
		err   error
	)
	if opts.scenePath != "" {
		scene, err = umbra.LoadSceneDef(opts.scenePath)
	} else {
		scene, err = umbra.ParseSceneDef(defaultScene)
	}
	if err != nil {
		return cfg, nil, err
	}
	return cfg, scene, nil
}

// run drives the scripted walk and returns the final snapshot. With
// telemetry on, frames are paced in real time so clients can follow.
func run(ctx context.Context, opts options, out io.Writer) (umbra.Snapshot, error) {
	cfg, scene, err := loadInputs(opts)
	if err != nil {
		return umbra.Snapshot{}, err
	}
	if opts.ticks <= 0 {
		return umbra.Snapshot{}, fmt.Errorf("ticks must be positive, got %d", opts.ticks)
	}
	if opts.dt <= 0 {
		return umbra.Snapshot{}, fmt.Errorf("dt must be positive, got %s", opts.dt)
	}

	logger := umbra.NewWriterLogger(out, cfg.LogPrefix, cfg.Debug)
	app := umbra.NewAppBuilder().
		UseModule(umbra.UmbraModule{Config: cfg, Logger: logger}).
		Build()
	cmd := app.Commands()

	handles := umbra.SpawnScene(cmd, scene, cfg)
	app.FlushCommands()
	logger.Infof("scene: %d light(s), %d occluder(s), player root %d", len(handles.Lights), len(handles.Occluders), handles.Player.Root)

	var hub *telemetryHub
	var pace <-chan time.Time
	if opts.telemetryAddr != "" {
		var stopTelemetry func()
		hub, stopTelemetry, err = startTelemetry(ctx, opts.telemetryAddr, logger)
		if err != nil {
			return umbra.Snapshot{}, err
		}
		defer stopTelemetry()
		defer hub.Close()

		ticker := time.NewTicker(opts.dt)
		defer ticker.Stop()
		pace = ticker.C
	}

	intent := umbra.Resource[umbra.Intent](app)
	clock := umbra.Resource[umbra.Time](app)
	walkUntil := opts.ticks * 2 / 3

	for tick := 0; tick < opts.ticks; tick++ {
		if pace != nil {
			select {
			case <-ctx.Done():
				return umbra.TakeSnapshot(cmd, clock), ctx.Err()
			case <-pace:
			}
		} else if ctx.Err() != nil {
			return umbra.TakeSnapshot(cmd, clock), ctx.Err()
		}

		intent.Move = mgl32.Vec2{}
		if tick < walkUntil {
			intent.Move = mgl32.Vec2{0, 1}
		}

		app.Tick(opts.dt)

		if hub != nil {
			hub.Broadcast(umbra.TakeSnapshot(cmd, clock))
		}
	}

	snap := umbra.TakeSnapshot(cmd, clock)
	for _, p := range snap.Players {
		logger.Infof("player %d: form=%s mode=%s illuminated=%v position=%v", p.ID, p.Form, p.Mode, p.Illuminated, p.Position)
	}
	if opts.snapshotPath != "" {
		if err := umbra.SaveSnapshot(cmd, clock, opts.snapshotPath); err != nil {
			return snap, err
		}
		logger.Infof("snapshot written to %s", opts.snapshotPath)
	}
	return snap, nil
}
