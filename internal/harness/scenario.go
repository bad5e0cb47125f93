package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store engines a scenario can run against.
const (
	EngineSQLite = "sqlite"
	EngineBadger = "badger"
)

// Scenario defines one pipeline test: a store state built from explicit
// seed readings and a sequence of window queries run against it.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Engine selects the store backend: "sqlite" (default) or "badger".
	// Both run throwaway in-memory instances.
	Engine string `yaml:"engine,omitempty"`

	// Now is the pinned wall clock. Seed offsets and window cutoffs are
	// derived from it.
	Now time.Time `yaml:"now"`

	// CycleToken replaces the scheduler's UUIDv7 on captured snapshots.
	// If empty, defaults to "test-cycle-default".
	CycleToken string `yaml:"cycle_token,omitempty"`

	// Seed lists the readings to insert before any query, in insertion
	// order. An empty list exercises the fresh-store path.
	Seed []SeedStep `yaml:"seed,omitempty"`

	// Queries are executed in order, one scheduler cycle each.
	Queries []QueryStep `yaml:"queries"`
}

// SeedStep is one reading to insert, timestamped relative to the
// scenario clock.
type SeedStep struct {
	// At is the timestamp offset from Now, in time.ParseDuration
	// syntax. "-2h30m" seeds a reading two and a half hours old.
	At string `yaml:"at"`

	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
	Pressure    float64 `yaml:"pressure"`
}

// offset returns the parsed At duration. Validation has already
// rejected unparseable values by the time this runs.
func (s SeedStep) offset() (time.Duration, error) {
	return time.ParseDuration(s.At)
}

// QueryStep is one window query plus its optional expectations.
type QueryStep struct {
	// LookbackHours is how far back the window reaches.
	LookbackHours int `yaml:"lookback_hours"`

	// Limit caps the window row count.
	Limit int `yaml:"limit"`

	// Expect validates the captured snapshot. If nil, only the golden
	// transcript checks the outcome.
	Expect *QueryExpect `yaml:"expect,omitempty"`
}

// QueryExpect specifies expected snapshot values. Fields are pointers
// so that zero is a checkable expectation: "rows: 0" asserts an empty
// window, an absent field asserts nothing.
type QueryExpect struct {
	// Rows is the expected number of readings in the window.
	Rows *int `yaml:"rows,omitempty"`

	// Total is the expected store-wide reading count.
	Total *int64 `yaml:"total,omitempty"`

	// LatestID is the expected id of the most recent reading. Seeds
	// insert in file order, so ids are deterministic.
	LatestID *int64 `yaml:"latest_id,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "querys:" vs "queries:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Engine {
	case "", EngineSQLite, EngineBadger:
	default:
		return fmt.Errorf("unknown engine %q (want %q or %q)", s.Engine, EngineSQLite, EngineBadger)
	}

	if s.Now.IsZero() {
		return fmt.Errorf("now is required")
	}

	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, step := range s.Seed {
		if step.At == "" {
			return fmt.Errorf("seed[%d]: at is required", i)
		}
		if _, err := step.offset(); err != nil {
			return fmt.Errorf("seed[%d]: bad at offset: %w", i, err)
		}
	}

	for i, q := range s.Queries {
		if q.LookbackHours <= 0 {
			return fmt.Errorf("queries[%d]: lookback_hours must be positive", i)
		}
		if q.Limit <= 0 {
			return fmt.Errorf("queries[%d]: limit must be positive", i)
		}
		if q.Expect != nil {
			if err := validateExpect(i, q.Expect); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateExpect rejects expectations that can never hold.
func validateExpect(index int, e *QueryExpect) error {
	if e.Rows != nil && *e.Rows < 0 {
		return fmt.Errorf("queries[%d].expect: rows must be non-negative", index)
	}
	if e.Total != nil && *e.Total < 0 {
		return fmt.Errorf("queries[%d].expect: total must be non-negative", index)
	}
	if e.LatestID != nil && *e.LatestID <= 0 {
		return fmt.Errorf("queries[%d].expect: latest_id must be positive", index)
	}
	return nil
}
