// Package harness runs end-to-end pipeline scenarios: seed a fresh
// store with explicit readings, run window queries through the real
// scheduler, and compare the rendered output against golden files.
//
// Unlike the unit tests in the store, window, and render packages, a
// scenario exercises the whole read path at once: store, window engine,
// snapshot assembly, and console rendering. The goldens double as
// documentation of what the CLI prints for a given store state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: steady_day
//	description: "What this scenario demonstrates"
//	engine: sqlite                 # sqlite (default) or badger
//	now: 2026-08-25T12:00:00Z      # the pinned wall clock
//	cycle_token: "test-cycle-001"  # optional, stamps captured snapshots
//	seed:
//	  - at: -2h30m                 # timestamp offset from now
//	    temperature: 18.9
//	    humidity: 54.3
//	    pressure: 1011.2
//	queries:
//	  - lookback_hours: 24
//	    limit: 1000
//	    expect:
//	      rows: 6
//	      total: 6
//	      latest_id: 6
//
// Seeds insert in file order, so ids are 1..n regardless of timestamp
// order. Each query runs one scheduler cycle; the expect block is
// optional and checks row count, stored total, and the latest reading's
// id against the captured snapshot.
//
// # Deterministic Execution
//
// Every scenario runs against a throwaway store (in-memory SQLite or
// Badger) with a pinned testutil.FakeClock, so window cutoffs and
// snapshot timestamps never drift. Captured snapshots carry the
// scenario's fixed cycle token instead of the scheduler's UUIDv7, which
// keeps JSON goldens stable.
//
// # Usage
//
// Load a scenario and compare its transcript against a golden file:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/steady_day.yaml")
//	if err != nil {
//	    t.Fatal(err)
//	}
//	result, err := harness.RunWithGolden(t, scenario)
//
// Golden files live in testdata/golden/{name}.golden; regenerate with
//
//	go test ./internal/harness -update
package harness
