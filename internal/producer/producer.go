// Package producer feeds the reading store: an unbounded streaming loop
// that appends one synthetic reading per tick, and a one-shot seeder
// that backfills evenly spaced history.
//
// The streaming loop survives per-tick write failures. Only context
// cancellation ends it, and stopping is a normal outcome, not an error.
package producer

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/weatherdeck/weatherdeck/internal/observability"
	"github.com/weatherdeck/weatherdeck/internal/store"
)

// DefaultInterval is the streaming cadence when none is configured.
const DefaultInterval = 5 * time.Second

// Params configures a Producer.
type Params struct {
	// Store receives the readings.
	Store store.Store
	// Model generates them. The zero Model means DefaultModel.
	Model Model
	// Interval is the pause between ticks. Defaults to DefaultInterval.
	Interval time.Duration
	// Count bounds the run at that many successful inserts; 0 streams
	// until the context is cancelled.
	Count int
	// Rand is the entropy source. Defaults to a time-seeded source;
	// tests pass a fixed seed.
	Rand *rand.Rand
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics may be nil.
	Metrics *observability.Metrics
}

// Producer is the streaming ingestion loop.
type Producer struct {
	p Params
}

// New validates params and returns a Producer.
func New(p Params) (*Producer, error) {
	if p.Store == nil {
		return nil, errors.New("producer: Store is required")
	}
	if p.Interval < 0 {
		return nil, errors.New("producer: Interval must not be negative")
	}
	if p.Count < 0 {
		return nil, errors.New("producer: Count must not be negative")
	}
	if p.Model == (Model{}) {
		p.Model = DefaultModel()
	}
	if p.Interval == 0 {
		p.Interval = DefaultInterval
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Producer{p: p}, nil
}

// Run streams readings until ctx is cancelled or Count inserts landed.
//
// A failed insert is logged and counted, then the loop waits out the
// normal interval and tries again; a write error never terminates the
// stream. Cancellation is checked at the top of each tick, so an
// in-flight insert always completes before Run returns.
func (pr *Producer) Run(ctx context.Context) error {
	run := uuid.Must(uuid.NewV7()).String()
	log := pr.p.Logger.With("run", run)
	log.Info("producer started", "interval", pr.p.Interval)

	// Store calls must outlive cancellation so a row is never torn
	// mid-insert; the loop itself exits on the next tick boundary.
	opCtx := context.WithoutCancel(ctx)

	inserted := 0
	for {
		if ctx.Err() != nil {
			log.Info("producer stopped", "inserted", inserted)
			return nil
		}

		r := pr.p.Model.Reading(pr.p.Rand)
		id, err := pr.p.Store.Insert(opCtx, r)
		if err != nil {
			pr.p.Metrics.InsertFailed()
			log.Error("insert failed", "err", err)
		} else {
			inserted++
			pr.p.Metrics.ReadingInserted()
			log.Info("inserted reading",
				"id", id,
				"temperature", r.Temperature,
				"humidity", r.Humidity,
				"pressure", r.Pressure,
			)
			if pr.p.Count > 0 && inserted >= pr.p.Count {
				log.Info("producer finished", "inserted", inserted)
				return nil
			}
		}

		select {
		case <-time.After(pr.p.Interval):
		case <-ctx.Done():
		}
	}
}
