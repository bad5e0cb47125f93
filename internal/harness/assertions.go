package harness

import (
	"fmt"
	"strings"

	"github.com/weatherdeck/weatherdeck/internal/render"
)

// ExpectError is returned when an expectation fails.
// It includes enough context to debug the failure without rerunning.
type ExpectError struct {
	Query    int    // 1-based query index
	Field    string // which expectation failed
	Expected string // human-readable expected value
	Actual   string // human-readable actual value
}

// Error implements the error interface.
func (e *ExpectError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "query %d: expect %s failed\n", e.Query, e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)

	return buf.String()
}

// evaluateExpect checks an expect block against the captured snapshot
// and returns one message per failed expectation.
//
// An unavailable snapshot fails every expect block outright: the values
// it carries are zero or stale, and comparing them would only bury the
// real failure.
func evaluateExpect(query int, e *QueryExpect, snap render.Snapshot) []string {
	if snap.Unavailable {
		return []string{(&ExpectError{
			Query:    query,
			Field:    "snapshot",
			Expected: "store available",
			Actual:   "unavailable: " + snap.Error,
		}).Error()}
	}

	var errs []string

	if e.Rows != nil && snap.Rows != *e.Rows {
		errs = append(errs, (&ExpectError{
			Query:    query,
			Field:    "rows",
			Expected: fmt.Sprintf("%d readings in the window", *e.Rows),
			Actual:   fmt.Sprintf("%d", snap.Rows),
		}).Error())
	}

	if e.Total != nil && snap.TotalRows != *e.Total {
		errs = append(errs, (&ExpectError{
			Query:    query,
			Field:    "total",
			Expected: fmt.Sprintf("%d readings stored", *e.Total),
			Actual:   fmt.Sprintf("%d", snap.TotalRows),
		}).Error())
	}

	if e.LatestID != nil {
		switch {
		case snap.Latest == nil:
			errs = append(errs, (&ExpectError{
				Query:    query,
				Field:    "latest_id",
				Expected: fmt.Sprintf("latest reading id %d", *e.LatestID),
				Actual:   "no latest reading (empty store)",
			}).Error())
		case snap.Latest.ID != *e.LatestID:
			errs = append(errs, (&ExpectError{
				Query:    query,
				Field:    "latest_id",
				Expected: fmt.Sprintf("latest reading id %d", *e.LatestID),
				Actual:   fmt.Sprintf("%d", snap.Latest.ID),
			}).Error())
		}
	}

	return errs
}
