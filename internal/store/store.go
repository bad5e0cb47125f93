package store

import (
	"context"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/reading"
)

// Store is an append-only log of sensor readings.
//
// All methods are safe for concurrent use. The expected topology is a
// single writing process (the producer) plus any number of reading
// processes (dashboards, one-shot queries).
//
// Reads return timestamps in UTC regardless of the zone they were
// written with, so results compare equal across backends.
type Store interface {
	// Insert appends one reading and returns its assigned id. A zero
	// Timestamp is replaced with the store's current wall time before
	// the row is written. The row is durably committed when Insert
	// returns: a reader in another process observes it on its next
	// query.
	Insert(ctx context.Context, r reading.Reading) (int64, error)

	// InsertBatch appends readings in one atomic transaction and
	// returns their assigned ids in input order. All rows land or none
	// do.
	InsertBatch(ctx context.Context, rs []reading.Reading) ([]int64, error)

	// Window returns up to limit readings with Timestamp >= since,
	// ordered oldest to newest. When more than limit rows fall inside
	// the window, the most recent limit rows win. An empty window is an
	// empty slice, never an error.
	Window(ctx context.Context, since time.Time, limit int) ([]reading.Reading, error)

	// Latest returns the most recent reading, or ErrNoReadings when the
	// store holds none.
	Latest(ctx context.Context) (reading.Reading, error)

	// Count returns the total number of stored readings.
	Count(ctx context.Context) (int64, error)

	Close() error
}
