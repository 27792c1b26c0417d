// Package container wires configuration, the history backend, the sync
// components and the test harness together and manages their lifecycle.
package container

import (
	"context"
	"io"

	"viewsync/adapters/bolt"
	"viewsync/adapters/postgres"
	"viewsync/domain/hypothesis"
	"viewsync/internal"
	"viewsync/internal/config"
	errs "viewsync/internal/errors"
	"viewsync/internal/registry"
	"viewsync/internal/results"
	"viewsync/internal/runner"
	"viewsync/internal/schedule"
	"viewsync/internal/viewsync"
	"viewsync/ports"
)

// Collaborators are the host-provided surfaces and stores the harness drives.
// Any of them may be nil; tests requiring a missing collaborator skip.
type Collaborators struct {
	BaseView  ports.ViewSurface
	Overlay   ports.ViewSurface
	Clock     ports.ClockControl
	Selection ports.SelectionStore
}

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Log    *internal.Logger

	HistoryRepo ports.HistoryRepository
	Scheduler   *schedule.UpdateScheduler
	Monitor     *viewsync.Monitor
	Registry    *registry.Registry
	Store       *results.Store
	Runner      *runner.Runner

	closer io.Closer
}

// New builds the full dependency graph from config and the host's
// collaborators.
func New(ctx context.Context, cfg *config.Config, collab Collaborators, log *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errs.ConfigInvalid("config cannot be nil")
	}
	if log == nil {
		log = internal.NewDefaultLogger()
	}

	c := &Container{Config: cfg, Log: log}

	if err := c.initHistory(ctx); err != nil {
		return nil, err
	}
	c.initSync(collab)
	c.initHarness(ctx, collab)

	log.Info("container initialized: backend=%s, %d hypotheses registered",
		cfg.History.Backend, c.Registry.Len())
	return c, nil
}

func (c *Container) initHistory(ctx context.Context) error {
	switch c.Config.History.Backend {
	case config.BackendBolt:
		repo, err := bolt.Open(c.Config.History.BoltPath)
		if err != nil {
			return err
		}
		c.HistoryRepo = repo
		c.closer = repo
	case config.BackendPostgres:
		repo, err := postgres.Open(ctx, c.Config.History.PostgresURL)
		if err != nil {
			return err
		}
		c.HistoryRepo = repo
		c.closer = repo
	default:
		return errs.ConfigInvalid("unknown history backend " + c.Config.History.Backend)
	}
	return nil
}

func (c *Container) initSync(collab Collaborators) {
	frames := schedule.NewTimerFrameScheduler(schedule.DefaultFrameInterval)
	clock := ports.SystemClock{}

	c.Scheduler = schedule.NewUpdateScheduler(collab.Overlay, frames, c.Log)
	c.Monitor = viewsync.NewMonitor(collab.BaseView, collab.Overlay, c.Scheduler,
		frames, clock, c.Log, viewsync.MonitorConfig{
			ThrottleInterval: c.Config.Sync.ThrottleInterval,
			SampleRate:       c.Config.Sync.SampleRate,
			ProbeDelay:       c.Config.Sync.ProbeDelay,
			SizeTolerancePx:  c.Config.Sync.SizeTolerancePx,
			Tolerances:       c.Config.Sync.Tolerances,
		})
}

func (c *Container) initHarness(ctx context.Context, collab Collaborators) {
	frames := schedule.NewTimerFrameScheduler(schedule.DefaultFrameInterval)
	clock := ports.SystemClock{}

	env := hypothesis.Environment{Agent: "viewsyncd"}
	if collab.BaseView != nil {
		if w, h, err := collab.BaseView.CanvasSize(); err == nil {
			env.ViewportW, env.ViewportH = w, h
		}
	}

	c.Registry = registry.NewDefaultRegistry()
	c.Store = results.NewStore(ctx, c.HistoryRepo, clock, env, c.Log,
		results.Options{MaxRuns: c.Config.Results.MaxRuns})

	tc := &registry.TestContext{
		Clock:     collab.Clock,
		Selection: collab.Selection,
		BaseView:  collab.BaseView,
		Overlay:   collab.Overlay,
		Scheduler: c.Scheduler,
		Monitor:   c.Monitor,
		Log:       c.Log,
	}
	c.Runner = runner.New(c.Registry, c.Store, tc, frames, clock, c.Log,
		runner.Config{SettleDelay: c.Config.Runner.SettleDelay})
}

// Shutdown releases the history backend.
func (c *Container) Shutdown() error {
	c.Monitor.StopDiagnostics()
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
