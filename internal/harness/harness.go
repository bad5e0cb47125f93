package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/render"
	"github.com/weatherdeck/weatherdeck/internal/scheduler"
	"github.com/weatherdeck/weatherdeck/internal/store"
	"github.com/weatherdeck/weatherdeck/internal/store/badger"
	"github.com/weatherdeck/weatherdeck/internal/store/sqlite"
	"github.com/weatherdeck/weatherdeck/internal/testutil"
	"github.com/weatherdeck/weatherdeck/internal/window"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store for isolation. The
// wall clock is pinned to scenario.Now, so cutoffs, snapshot timestamps,
// and the rendered transcript are reproducible.
//
// Execution flow:
//  1. Open a throwaway store for the scenario's engine
//  2. Insert the seed readings in one batch
//  3. Run each query as a scheduler cycle, capturing the snapshot and
//     rendering it onto the transcript
//  4. Evaluate expect blocks against the captured snapshots
//
// Run returns an error only for infrastructure failures (store, query,
// render). Expectation mismatches land in Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	engineName := scenario.Engine
	if engineName == "" {
		engineName = EngineSQLite
	}

	st, err := openStore(engineName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", engineName, err)
	}
	defer st.Close()

	clock := testutil.NewFakeClock(scenario.Now)
	token := testutil.NewFixedCycleToken(scenario.CycleToken)
	ctx := context.Background()

	if err := seedStore(ctx, st, scenario); err != nil {
		return nil, err
	}

	eng, err := window.New(window.Config{Store: st, Now: clock.Now})
	if err != nil {
		return nil, fmt.Errorf("failed to create window engine: %w", err)
	}

	result := NewResult()
	transcript := &bytes.Buffer{}
	capture := &captureRenderer{
		console: render.NewConsole(transcript),
		token:   token,
		result:  result,
	}

	// The option source reads whatever the query loop last staged.
	// RunOnce calls it synchronously, so no locking is needed.
	var current scheduler.Options
	sched, err := scheduler.New(scheduler.Params{
		Engine:   eng,
		Renderer: capture,
		Options:  func() scheduler.Options { return current },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		Now:      clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	fmt.Fprintf(transcript, "scenario: %s\nengine: %s\n", scenario.Name, engineName)

	for i, q := range scenario.Queries {
		current = scheduler.Options{LookbackHours: q.LookbackHours, Limit: q.Limit}
		fmt.Fprintf(transcript, "\n== query %d: last %dh, limit %d ==\n", i+1, q.LookbackHours, q.Limit)

		if err := sched.RunOnce(ctx); err != nil {
			return nil, fmt.Errorf("query %d: %w", i+1, err)
		}

		if q.Expect != nil {
			for _, msg := range evaluateExpect(i+1, q.Expect, result.Last()) {
				result.AddError(msg)
			}
		}
	}

	result.Transcript = transcript.Bytes()
	return result, nil
}

// openStore opens a throwaway store for the given engine name.
func openStore(engine string) (store.Store, error) {
	switch engine {
	case EngineBadger:
		return badger.OpenInMemory()
	default:
		// A single pooled connection keeps ":memory:" pointing at one
		// database for the store's lifetime.
		return sqlite.Open(":memory:")
	}
}

// seedStore inserts the scenario's readings in one batch, stamped at
// their offsets from the pinned clock. Ids are assigned in file order.
func seedStore(ctx context.Context, st store.Store, scenario *Scenario) error {
	if len(scenario.Seed) == 0 {
		return nil
	}

	rs := make([]reading.Reading, len(scenario.Seed))
	for i, s := range scenario.Seed {
		off, err := s.offset()
		if err != nil {
			return fmt.Errorf("seed[%d]: bad at offset: %w", i, err)
		}
		rs[i] = reading.Reading{
			Timestamp:   scenario.Now.Add(off),
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
			Pressure:    s.Pressure,
		}
	}

	if _, err := st.InsertBatch(ctx, rs); err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	return nil
}

// captureRenderer tees each snapshot into the result and onto the
// console transcript. The scheduler's random cycle token is replaced
// with the scenario's fixed one before capture.
type captureRenderer struct {
	console *render.Console
	token   *testutil.FixedCycleToken
	result  *Result
}

func (c *captureRenderer) Render(ctx context.Context, s render.Snapshot) error {
	s.Cycle = c.token.Token()
	c.result.Snapshots = append(c.result.Snapshots, s)
	return c.console.Render(ctx, s)
}
