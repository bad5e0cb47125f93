// Package render defines the snapshot a refresh cycle produces and the
// renderers that consume it: a console table for the CLI and the web
// dashboard, which stores the snapshot and pushes it to browsers.
package render

import (
	"context"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/reading"
)

// TailLimit caps the raw readings carried in a snapshot. The chart gets
// the full table; the tail is only for the newest-first detail list.
const TailLimit = 20

// WindowInfo records the query bounds a snapshot was built from.
type WindowInfo struct {
	LookbackHours int       `json:"lookback_hours"`
	Limit         int       `json:"limit"`
	Cutoff        time.Time `json:"cutoff"`
}

// Snapshot is one refresh cycle's worth of dashboard state.
//
// When Unavailable is set the store could not be queried: Table and
// Latest are stale or zero and Error says why. Renderers show the
// failure instead of an empty chart; the next cycle may recover.
type Snapshot struct {
	Cycle     string     `json:"cycle"`
	TakenAt   time.Time  `json:"taken_at"`
	Window    WindowInfo `json:"window"`
	Table     DataTable  `json:"table"`
	Rows      int        `json:"rows"`
	TotalRows int64      `json:"total_rows"`

	// Tail holds at most TailLimit readings, newest first.
	Tail []reading.Reading `json:"tail"`

	// Latest is nil while the store is empty.
	Latest *reading.Reading `json:"latest,omitempty"`

	// References carries the nominal value per field, for delta display.
	References []reading.Field `json:"references"`

	Unavailable bool   `json:"unavailable"`
	Error       string `json:"error,omitempty"`
}

// Empty reports whether the snapshot's window matched no readings.
func (s Snapshot) Empty() bool { return s.Rows == 0 && !s.Unavailable }

// Tail returns at most TailLimit readings in newest-first order,
// without mutating the input slice.
func Tail(rs []reading.Reading) []reading.Reading {
	n := len(rs)
	if n > TailLimit {
		n = TailLimit
	}
	tail := make([]reading.Reading, 0, n)
	for i := len(rs) - 1; i >= len(rs)-n; i-- {
		tail = append(tail, rs[i])
	}
	return tail
}

// Renderer consumes one snapshot per refresh cycle.
//
// Render runs inside the scheduler's cycle and is never called
// concurrently; a slow renderer stretches the cycle it runs in.
type Renderer interface {
	Render(ctx context.Context, s Snapshot) error
}

// Func adapts a function to the Renderer interface.
type Func func(ctx context.Context, s Snapshot) error

// Render calls f.
func (f Func) Render(ctx context.Context, s Snapshot) error { return f(ctx, s) }
