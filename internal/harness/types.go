package harness

import "github.com/weatherdeck/weatherdeck/internal/render"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expect block matched its snapshot.
	Pass bool

	// Snapshots holds one captured snapshot per query, in query order,
	// stamped with the scenario's fixed cycle token.
	Snapshots []render.Snapshot

	// Transcript is the console rendering of every query, used for
	// golden comparison.
	Transcript []byte

	// Errors contains expectation failure messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Snapshots: []render.Snapshot{},
		Errors:    []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Last returns the most recently captured snapshot.
// Returns the zero snapshot when no query has run yet.
func (r *Result) Last() render.Snapshot {
	if len(r.Snapshots) == 0 {
		return render.Snapshot{}
	}
	return r.Snapshots[len(r.Snapshots)-1]
}
