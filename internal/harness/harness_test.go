package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

// threeSeeds is a store state shared by several tests: readings three
// hours, thirty minutes, and ten minutes old.
func threeSeeds() []SeedStep {
	return []SeedStep{
		{At: "-3h", Temperature: 18.2, Humidity: 55.0, Pressure: 1010.9},
		{At: "-30m", Temperature: 20.1, Humidity: 50.3, Pressure: 1012.8},
		{At: "-10m", Temperature: 21.4, Humidity: 48.9, Pressure: 1013.6},
	}
}

func TestRun_CapturesSnapshotPerQuery(t *testing.T) {
	scenario := &Scenario{
		Name:        "capture",
		Description: "One snapshot per query",
		Now:         scenarioNow,
		Seed:        threeSeeds(),
		Queries: []QueryStep{
			{LookbackHours: 24, Limit: 1000},
			{LookbackHours: 1, Limit: 1000},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass)
	require.Len(t, result.Snapshots, 2)

	assert.Equal(t, 3, result.Snapshots[0].Rows)
	assert.Equal(t, 2, result.Snapshots[1].Rows, "the 1h window holds only the -30m and -10m readings")
	assert.Equal(t, int64(3), result.Snapshots[0].TotalRows)

	transcript := string(result.Transcript)
	assert.Contains(t, transcript, "scenario: capture")
	assert.Contains(t, transcript, "engine: sqlite")
	assert.Contains(t, transcript, "== query 1: last 24h, limit 1000 ==")
	assert.Contains(t, transcript, "== query 2: last 1h, limit 1000 ==")
	assert.Contains(t, transcript, "3 readings shown, 3 stored")
}

func TestRun_ExpectMismatch(t *testing.T) {
	wrongRows := 99
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Expectation that cannot hold",
		Now:         scenarioNow,
		Seed:        threeSeeds(),
		Queries: []QueryStep{
			{LookbackHours: 24, Limit: 1000, Expect: &QueryExpect{Rows: &wrongRows}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err, "expectation failures are not execution errors")
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "query 1: expect rows failed")
	assert.Contains(t, result.Errors[0], "Expected: 99 readings in the window")
	assert.Contains(t, result.Errors[0], "Actual: 3")
}

func TestRun_FreshStore(t *testing.T) {
	rows := 0
	total := int64(0)
	scenario := &Scenario{
		Name:        "fresh",
		Description: "No seeds at all",
		Now:         scenarioNow,
		Queries: []QueryStep{
			{LookbackHours: 24, Limit: 1000, Expect: &QueryExpect{Rows: &rows, Total: &total}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	snap := result.Last()
	assert.True(t, snap.Empty())
	assert.Nil(t, snap.Latest)
	assert.Equal(t, "test-cycle-default", snap.Cycle)
	assert.Contains(t, string(result.Transcript), "No readings in the window.")
}

func TestRun_LimitKeepsNewest(t *testing.T) {
	scenario := &Scenario{
		Name:        "limit",
		Description: "Row limit drops the oldest readings",
		Now:         scenarioNow,
		Seed:        threeSeeds(),
		Queries: []QueryStep{
			{LookbackHours: 24, Limit: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	snap := result.Last()
	require.Equal(t, 2, snap.Rows)
	// Oldest surviving row is the -30m reading; the -3h one fell out.
	require.Len(t, snap.Table.Rows, 2)
	assert.Equal(t, "2026-08-25T11:30:00Z", snap.Table.Rows[0].Cells[0].Value)
	require.Len(t, snap.Tail, 2)
	assert.Equal(t, int64(3), snap.Tail[0].ID, "tail is newest first")
}

func TestRun_EnginesAgree(t *testing.T) {
	build := func(engine string) *Scenario {
		return &Scenario{
			Name:        "parity",
			Description: "Both backends produce the same table",
			Engine:      engine,
			Now:         scenarioNow,
			Seed:        threeSeeds(),
			Queries: []QueryStep{
				{LookbackHours: 6, Limit: 2},
			},
		}
	}

	sq, err := Run(build(EngineSQLite))
	require.NoError(t, err)
	bd, err := Run(build(EngineBadger))
	require.NoError(t, err)

	assert.Equal(t, sq.Last().Table, bd.Last().Table)
	assert.Equal(t, sq.Last().Tail, bd.Last().Tail)
	assert.Equal(t, sq.Last().TotalRows, bd.Last().TotalRows)
	require.NotNil(t, sq.Last().Latest)
	require.NotNil(t, bd.Last().Latest)
	assert.Equal(t, sq.Last().Latest.ID, bd.Last().Latest.ID)
}

func TestRun_FixedCycleTokenStampsSnapshots(t *testing.T) {
	scenario := &Scenario{
		Name:        "token",
		Description: "Captured snapshots carry the scenario token",
		Now:         scenarioNow,
		CycleToken:  "test-cycle-777",
		Seed:        threeSeeds(),
		Queries: []QueryStep{
			{LookbackHours: 24, Limit: 1000},
			{LookbackHours: 24, Limit: 1000},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	for _, snap := range result.Snapshots {
		assert.Equal(t, "test-cycle-777", snap.Cycle)
	}
}
