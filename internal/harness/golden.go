package harness

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the transcript against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Execution errors are returned; transcript mismatches fail t via
// goldie. Expectation failures are the caller's to check on the result,
// so a scenario can assert both a golden transcript and expect blocks.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, result.Transcript)

	return result, nil
}

// AssertSnapshotGolden compares the final query's snapshot against a
// golden file named {name}_snapshot.golden, as indented JSON.
//
// The harness already pinned the clock and swapped in the fixed cycle
// token, so the marshaled snapshot is byte-stable. This is the same
// document the dashboard's /api/snapshot endpoint serves.
func AssertSnapshotGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	if len(result.Snapshots) == 0 {
		return errors.New("no snapshots captured")
	}

	data, err := json.MarshalIndent(result.Last(), "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name+"_snapshot", data)

	return nil
}
