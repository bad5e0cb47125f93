// Package scheduler drives the dashboard refresh loop: query the
// window, hand the snapshot to the renderer, sleep, repeat.
//
// The loop owns all store traffic. Renderers never query on their own;
// they receive finished snapshots, so a slow or broken store cannot
// wedge the HTTP layer. Cancellation is coarse: it is observed between
// phases, and an in-flight query or render always completes.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/weatherdeck/weatherdeck/internal/observability"
	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/render"
	"github.com/weatherdeck/weatherdeck/internal/store"
	"github.com/weatherdeck/weatherdeck/internal/window"
)

// State is the loop's observable phase.
type State int32

const (
	StateIdle State = iota
	StateQuerying
	StateRendering
	StateSleeping
	StateStopped
)

// String returns the lower-case state name used in logs and /healthz.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQuerying:
		return "querying"
	case StateRendering:
		return "rendering"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Cycle triggers recorded on the refresh counter.
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

// Options bound one refresh cycle. The loop re-reads them from its
// OptionSource at the top of every cycle, so settings changes apply on
// the next cycle without restarting anything.
type Options struct {
	// AutoRefresh selects the loop mode: sleep-and-repeat when true,
	// park in idle until Refresh() when false.
	AutoRefresh bool
	// LookbackHours is how far back the window reaches.
	LookbackHours int
	// Limit caps the window row count.
	Limit int
	// Interval is the sleep between automatic cycles.
	Interval time.Duration
}

// Lookback returns the window duration.
func (o Options) Lookback() time.Duration {
	return time.Duration(o.LookbackHours) * time.Hour
}

func (o Options) withDefaults() Options {
	if o.LookbackHours <= 0 {
		o.LookbackHours = 24
	}
	if o.Limit <= 0 {
		o.Limit = 1000
	}
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	return o
}

// OptionSource supplies the options for the next cycle. It is called
// from the scheduler goroutine; implementations that share settings
// with HTTP handlers must synchronize internally.
type OptionSource func() Options

// Static returns an OptionSource that always serves the same options.
func Static(o Options) OptionSource {
	return func() Options { return o }
}

// Params configures a Scheduler.
type Params struct {
	// Engine runs the window queries. Required.
	Engine *window.Engine
	// Renderer receives one snapshot per cycle. Required.
	Renderer render.Renderer
	// Options supplies per-cycle options. Required.
	Options OptionSource
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics may be nil.
	Metrics *observability.Metrics
	// Now defaults to time.Now. Only the unavailable path stamps
	// snapshots with it; successful cycles carry the engine's clock.
	Now func() time.Time
}

// Scheduler runs the refresh state machine. Create one with New, drive
// it with Run; State, Cycles, and Refresh are safe from any goroutine.
type Scheduler struct {
	engine   *window.Engine
	renderer render.Renderer
	options  OptionSource
	log      *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	state    atomic.Int32
	cycles   atomic.Uint64
	refreshC chan struct{}
}

// New creates a Scheduler.
func New(p Params) (*Scheduler, error) {
	if p.Engine == nil {
		return nil, errors.New("scheduler: Engine is required")
	}
	if p.Renderer == nil {
		return nil, errors.New("scheduler: Renderer is required")
	}
	if p.Options == nil {
		return nil, errors.New("scheduler: Options source is required")
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Scheduler{
		engine:   p.Engine,
		renderer: p.Renderer,
		options:  p.Options,
		log:      p.Logger,
		metrics:  p.Metrics,
		now:      p.Now,
		refreshC: make(chan struct{}, 1),
	}, nil
}

// State reports the loop's current phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Cycles reports how many refresh cycles have completed.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// Refresh requests one refresh cycle. Non-blocking and safe from any
// goroutine. Requests arriving while one is already pending coalesce,
// so a burst of clicks buys a single extra cycle; the return value
// reports whether this request was the one that landed.
func (s *Scheduler) Refresh() bool {
	select {
	case s.refreshC <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run drives the loop until ctx is cancelled. The first cycle runs
// immediately. Afterwards the loop sleeps for the configured interval
// when auto refresh is on, or parks in idle awaiting Refresh() when it
// is off; a manual refresh also cuts an automatic sleep short.
//
// Run returns nil on cancellation: stopping the loop is a clean
// shutdown, not a failure.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler starting")
	trigger := TriggerAuto

	for {
		if ctx.Err() != nil {
			return s.stop()
		}

		opts := s.options().withDefaults()
		s.runCycle(ctx, opts, trigger)

		if !opts.AutoRefresh {
			s.state.Store(int32(StateIdle))
			select {
			case <-ctx.Done():
				return s.stop()
			case <-s.refreshC:
				trigger = TriggerManual
			}
			continue
		}

		s.state.Store(int32(StateSleeping))
		select {
		case <-ctx.Done():
			return s.stop()
		case <-s.refreshC:
			trigger = TriggerManual
		case <-time.After(opts.Interval):
			trigger = TriggerAuto
		}
	}
}

// RunOnce executes a single query and render outside the loop. The
// one-shot window and latest commands use it. Unlike the loop, a query
// failure is returned instead of rendered, so callers can exit
// non-zero without printing a half-empty table.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	opts := s.options().withDefaults()

	s.state.Store(int32(StateQuerying))
	snap, err := s.buildSnapshot(ctx, opts)
	if err != nil {
		s.state.Store(int32(StateIdle))
		return err
	}

	s.state.Store(int32(StateRendering))
	err = s.renderer.Render(ctx, snap)
	s.state.Store(int32(StateIdle))
	return err
}

func (s *Scheduler) stop() error {
	s.state.Store(int32(StateStopped))
	s.log.Info("scheduler stopped", "cycles", s.cycles.Load())
	return nil
}

// runCycle performs one query+render pass. Query failures render the
// unavailable snapshot and the loop carries on; the next cycle may
// find the store healthy again.
func (s *Scheduler) runCycle(ctx context.Context, opts Options, trigger string) {
	started := time.Now()

	s.state.Store(int32(StateQuerying))
	snap, err := s.buildSnapshot(ctx, opts)
	if err != nil {
		s.log.Error("window query failed",
			"cycle", snap.Cycle,
			"trigger", trigger,
			"error", err,
		)
	}

	s.state.Store(int32(StateRendering))
	if err := s.renderer.Render(ctx, snap); err != nil {
		s.log.Error("render failed", "cycle", snap.Cycle, "error", err)
	}

	s.cycles.Add(1)
	s.metrics.CycleCompleted(trigger, time.Since(started))
	s.log.Debug("cycle complete",
		"cycle", snap.Cycle,
		"trigger", trigger,
		"rows", snap.Rows,
		"unavailable", snap.Unavailable,
		"duration", time.Since(started),
	)
}

// buildSnapshot assembles the cycle's snapshot. On query failure the
// returned snapshot is flagged unavailable and the error is returned
// alongside it for the caller to log or surface.
//
// Store calls run on a context detached from cancellation: shutdown is
// observed between cycles, never by aborting a write or read midway.
func (s *Scheduler) buildSnapshot(ctx context.Context, opts Options) (render.Snapshot, error) {
	cycle := uuid.Must(uuid.NewV7()).String()
	now := s.now()
	snap := render.Snapshot{
		Cycle:   cycle,
		TakenAt: now,
		Window: render.WindowInfo{
			LookbackHours: opts.LookbackHours,
			Limit:         opts.Limit,
			Cutoff:        now.Add(-opts.Lookback()),
		},
		References: reading.References.Fields(),
	}

	opCtx := context.WithoutCancel(ctx)

	res, err := s.engine.Query(opCtx, window.Params{Lookback: opts.Lookback(), Limit: opts.Limit})
	if err != nil {
		s.metrics.QueryFailed()
		snap.Unavailable = true
		snap.Error = err.Error()
		return snap, err
	}
	s.metrics.QuerySucceeded(len(res.Readings))

	// The engine's clock is authoritative for window math.
	snap.TakenAt = res.QueriedAt
	snap.Window.Cutoff = res.Cutoff
	snap.Table = render.Tabulate(res.Readings)
	snap.Rows = len(res.Readings)
	snap.Tail = render.Tail(res.Readings)

	latest, err := s.engine.Latest(opCtx)
	switch {
	case errors.Is(err, store.ErrNoReadings):
		// Empty store: Latest stays nil and renderers show the notice.
	case err != nil:
		s.log.Warn("latest lookup failed", "cycle", cycle, "error", err)
	default:
		snap.Latest = &latest
	}

	total, err := s.engine.Count(opCtx)
	if err != nil {
		s.log.Debug("count failed", "cycle", cycle, "error", err)
	} else {
		snap.TotalRows = total
	}

	return snap, nil
}
