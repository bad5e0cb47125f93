// Package config loads weatherdeck's CUE configuration.
//
// The schema is embedded and carries defaults for every field: Load("")
// returns a runnable configuration without any file on disk. A user
// file is unified with the schema, so out-of-range values and unknown
// fields are rejected with CUE's own diagnostics.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/weatherdeck/weatherdeck/internal/producer"
	"github.com/weatherdeck/weatherdeck/internal/scheduler"
)

//go:embed schema.cue
var schemaCUE string

// Storage engines.
const (
	EngineSQLite = "sqlite"
	EngineBadger = "badger"
)

// Config is the decoded configuration tree.
type Config struct {
	LookbackHours          int  `json:"lookback_hours"`
	RowLimit               int  `json:"row_limit"`
	RefreshIntervalSeconds int  `json:"refresh_interval_seconds"`
	AutoRefresh            bool `json:"auto_refresh"`

	Storage   Storage   `json:"storage"`
	Producer  Producer  `json:"producer"`
	Dashboard Dashboard `json:"dashboard"`
}

// Storage selects the reading store backend.
type Storage struct {
	Engine string `json:"engine"`
	Path   string `json:"path"`
}

// Producer configures the synthetic reading stream and seeding.
type Producer struct {
	IntervalSeconds int   `json:"interval_seconds"`
	SeedCount       int   `json:"seed_count"`
	SeedSpanHours   int   `json:"seed_span_hours"`
	Model           Model `json:"model"`
}

// Model holds the Gaussian parameters per reading field.
type Model struct {
	Temperature Field `json:"temperature"`
	Humidity    Field `json:"humidity"`
	Pressure    Field `json:"pressure"`
}

// Field is one center/stddev pair.
type Field struct {
	Center float64 `json:"center"`
	Stddev float64 `json:"stddev"`
}

// Dashboard configures the HTTP server.
type Dashboard struct {
	Addr string `json:"addr"`
}

// LoadError reports a configuration that could not be read, parsed, or
// validated. Detail carries CUE's multi-line diagnostics.
type LoadError struct {
	Path   string
	Detail string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("config %s: %s", e.Path, e.Detail)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func newLoadError(path string, err error) *LoadError {
	return &LoadError{Path: path, Detail: cueerrors.Details(err, nil), Err: err}
}

// Load reads and validates the configuration file at path. An empty
// path skips the file and returns the schema defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return LoadBytes(nil, "defaults")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{Path: path, Err: err}
	}
	return LoadBytes(data, path)
}

// LoadBytes validates raw CUE source against the embedded schema.
func LoadBytes(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	schema, err := schemaValue(ctx)
	if err != nil {
		return Config{}, err
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, newLoadError(filename, err)
	}

	merged := schema.Unify(user)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return Config{}, newLoadError(filename, err)
	}

	var c Config
	if err := merged.Decode(&c); err != nil {
		return Config{}, newLoadError(filename, err)
	}
	return c, nil
}

// Default returns the schema defaults.
func Default() Config {
	c, err := LoadBytes(nil, "defaults")
	if err != nil {
		panic("config: embedded schema does not yield defaults: " + err.Error())
	}
	return c
}

func schemaValue(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, newLoadError("schema.cue", err)
	}
	def := v.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return cue.Value{}, newLoadError("schema.cue", err)
	}
	return def, nil
}

// Options maps the refresh fields onto scheduler options.
func (c Config) Options() scheduler.Options {
	return scheduler.Options{
		AutoRefresh:   c.AutoRefresh,
		LookbackHours: c.LookbackHours,
		Limit:         c.RowLimit,
		Interval:      time.Duration(c.RefreshIntervalSeconds) * time.Second,
	}
}

// ProducerModel maps the model fields onto the producer's Gaussian
// model.
func (c Config) ProducerModel() producer.Model {
	m := c.Producer.Model
	return producer.Model{
		Temperature: producer.FieldModel{Center: m.Temperature.Center, Stddev: m.Temperature.Stddev},
		Humidity:    producer.FieldModel{Center: m.Humidity.Center, Stddev: m.Humidity.Stddev},
		Pressure:    producer.FieldModel{Center: m.Pressure.Center, Stddev: m.Pressure.Stddev},
	}
}

// ProducerInterval returns the stream tick.
func (c Config) ProducerInterval() time.Duration {
	return time.Duration(c.Producer.IntervalSeconds) * time.Second
}

// SeedSpan returns the historical span seeded readings cover.
func (c Config) SeedSpan() time.Duration {
	return time.Duration(c.Producer.SeedSpanHours) * time.Hour
}
