package config

import (
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/weatherdeck/weatherdeck/internal/scheduler"
)

// ValidationError reports a rejected settings update. Detail carries
// CUE's diagnostics naming the offending field.
type ValidationError struct {
	Detail string
	Err    error
}

func (e *ValidationError) Error() string { return "invalid settings: " + e.Detail }

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidateOptions checks refresh options against the configuration
// schema, so the settings API enforces exactly the ranges the config
// file does.
func ValidateOptions(o scheduler.Options) error {
	ctx := cuecontext.New()
	schema, err := schemaValue(ctx)
	if err != nil {
		return err
	}

	frag := ctx.Encode(map[string]any{
		"lookback_hours":           o.LookbackHours,
		"row_limit":                o.Limit,
		"refresh_interval_seconds": int(o.Interval / time.Second),
		"auto_refresh":             o.AutoRefresh,
	})
	if err := frag.Err(); err != nil {
		return &ValidationError{Detail: cueerrors.Details(err, nil), Err: err}
	}

	if err := schema.Unify(frag).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Detail: cueerrors.Details(err, nil), Err: err}
	}
	return nil
}

// Settings holds the runtime-adjustable refresh options shared between
// the dashboard handlers and the scheduler. A *Settings' Options method
// is a valid scheduler.OptionSource.
type Settings struct {
	mu sync.Mutex
	o  scheduler.Options
}

// NewSettings seeds runtime settings from a loaded configuration.
func NewSettings(c Config) *Settings {
	return &Settings{o: c.Options()}
}

// Options returns the current options. Safe from any goroutine.
func (s *Settings) Options() scheduler.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.o
}

// Update validates o against the schema and, when valid, makes it the
// options the next refresh cycle sees. Invalid updates change nothing.
func (s *Settings) Update(o scheduler.Options) error {
	if err := ValidateOptions(o); err != nil {
		return err
	}
	s.mu.Lock()
	s.o = o
	s.mu.Unlock()
	return nil
}
