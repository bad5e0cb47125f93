package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/weatherdeck/weatherdeck/internal/observability"
	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/store"
)

// Seeding defaults: 100 readings across the trailing 24 hours, one every
// ~14.4 minutes.
const (
	DefaultSeedCount = 100
	DefaultSeedSpan  = 24 * time.Hour
)

// SeedParams configures one seeding pass.
type SeedParams struct {
	Store store.Store
	// Model generates the historical values. Zero means DefaultModel.
	Model Model
	// Count readings are spread evenly across the trailing Span,
	// oldest first. Defaults: DefaultSeedCount over DefaultSeedSpan.
	Count int
	Span  time.Duration
	// Now anchors the span. Defaults to time.Now.
	Now func() time.Time
	// Rand defaults to a time-seeded source.
	Rand *rand.Rand
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics may be nil.
	Metrics *observability.Metrics
}

// Seed bulk-inserts historical readings with explicit, evenly spaced
// timestamps: the oldest lands at now-Span, the newest one step short of
// now. One transaction, so a failed pass leaves nothing behind; running
// it again simply appends another batch.
//
// Returns the number of readings inserted.
func Seed(ctx context.Context, p SeedParams) (int, error) {
	if p.Store == nil {
		return 0, errors.New("seed: Store is required")
	}
	if p.Count < 0 || p.Span < 0 {
		return 0, errors.New("seed: Count and Span must not be negative")
	}
	if p.Model == (Model{}) {
		p.Model = DefaultModel()
	}
	if p.Count == 0 {
		p.Count = DefaultSeedCount
	}
	if p.Span == 0 {
		p.Span = DefaultSeedSpan
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	base := p.Now().Add(-p.Span)
	step := p.Span / time.Duration(p.Count)

	rs := make([]reading.Reading, p.Count)
	for i := range rs {
		r := p.Model.Reading(p.Rand)
		r.Timestamp = base.Add(time.Duration(i) * step)
		rs[i] = r
	}

	ids, err := p.Store.InsertBatch(ctx, rs)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}

	p.Metrics.ReadingsSeeded(len(ids))
	p.Logger.Info("seeded readings", "count", len(ids), "span", p.Span)
	return len(ids), nil
}
