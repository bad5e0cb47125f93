// Package window answers the dashboard's question: the readings from the
// last lookback duration, capped at a row limit, oldest to newest.
//
// The engine owns the "now" used to derive the cutoff, so results are
// deterministic for a fixed store state and a fixed clock. It re-sorts
// whatever the backend returns: seeded history and live streaming can
// interleave, and renderers must never see out-of-order rows.
package window

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/store"
)

// Params bound one window query.
type Params struct {
	// Lookback is how far back from now the window reaches.
	Lookback time.Duration
	// Limit caps the number of rows; when the window holds more, the
	// most recent Limit rows win.
	Limit int
}

func (p Params) validate() error {
	if p.Lookback <= 0 {
		return errors.New("window: Lookback must be positive")
	}
	if p.Limit <= 0 {
		return errors.New("window: Limit must be positive")
	}
	return nil
}

// Result is the outcome of one window query.
//
// An empty Readings slice is a normal outcome (fresh store, narrow
// window), distinct from a query error: renderers show "no data" for the
// former and "data unavailable" for the latter.
type Result struct {
	Readings  []reading.Reading
	Cutoff    time.Time // oldest admissible timestamp, QueriedAt - Lookback
	QueriedAt time.Time // the "now" the cutoff was derived from
}

// Empty reports whether the window matched no readings.
func (r Result) Empty() bool { return len(r.Readings) == 0 }

// Config configures an Engine.
type Config struct {
	// Store is the reading store to query.
	Store store.Store
	// Now returns the current wall time. Defaults to time.Now.
	Now func() time.Time
}

// Engine executes window queries. Safe for concurrent use as long as the
// underlying store is.
type Engine struct {
	store store.Store
	now   func() time.Time
}

// New creates a window query engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("window: Store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{store: cfg.Store, now: cfg.Now}, nil
}

// Query returns the readings inside the lookback window.
//
// Store failures are returned wrapped but intact: callers can still pick
// out *store.ReadError with errors.As and render the unavailable state
// instead of an empty chart.
func (e *Engine) Query(ctx context.Context, p Params) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, err
	}

	now := e.now()
	cutoff := now.Add(-p.Lookback)

	rs, err := e.store.Window(ctx, cutoff, p.Limit)
	if err != nil {
		return Result{}, fmt.Errorf("window query: %w", err)
	}

	// Backends return ascending rows already; sorting again costs
	// little and keeps the ordering guarantee independent of backend
	// behavior.
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Timestamp.Equal(rs[j].Timestamp) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].Timestamp.Before(rs[j].Timestamp)
	})

	return Result{Readings: rs, Cutoff: cutoff, QueriedAt: now}, nil
}

// Count reports the total number of stored readings, windowed by
// nothing. The dashboard info panel shows it next to the engine name.
func (e *Engine) Count(ctx context.Context) (int64, error) {
	n, err := e.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Latest returns the most recent reading from the store. The
// store.ErrNoReadings sentinel passes through for callers to branch on.
func (e *Engine) Latest(ctx context.Context) (reading.Reading, error) {
	r, err := e.store.Latest(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoReadings) {
			return reading.Reading{}, store.ErrNoReadings
		}
		return reading.Reading{}, fmt.Errorf("latest: %w", err)
	}
	return r, nil
}
