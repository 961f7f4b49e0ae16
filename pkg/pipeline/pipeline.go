// Package pipeline turns graph documents into cached layouts.
//
// It is the single place where the CLI and the HTTP service meet the
// simulator: both build [Options], hand a graph to a [Runner], and get a
// [graph.Layout] back. The Runner hashes the graph, consults the cache,
// runs the simulation when needed, and stores the result.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Dimensions = 3
//	layout, hit, err := runner.ComputeLayout(ctx, g, opts)
//
// Options can also be loaded from a TOML file; keys mirror the JSON names:
//
//	dimensions = 3
//	gravity = -20.0
//	repulsion = "barneshut"
//	max_steps = 1000
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/cache"
	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/physics"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Service
// =============================================================================

// DefaultMaxSteps caps a layout run when the caller does not choose a cap.
const DefaultMaxSteps = 500

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one layout run. The embedded physics.Config fields are
// promoted, so JSON and TOML documents use flat keys.
type Options struct {
	physics.Config

	// MaxSteps caps the number of simulation steps. Zero selects DefaultMaxSteps.
	MaxSteps int `json:"max_steps" toml:"max_steps"`

	// Lenient auto-creates link endpoints that are not declared as nodes.
	Lenient bool `json:"lenient,omitempty" toml:"lenient"`

	// Refresh bypasses the cache lookup. The fresh layout is still stored.
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	Logger *log.Logger `json:"-" toml:"-"`
}

// DefaultOptions returns the stock simulation parameters with the default
// step cap.
func DefaultOptions() Options {
	return Options{
		Config:   physics.DefaultConfig(),
		MaxSteps: DefaultMaxSteps,
	}
}

// SetLayoutDefaults fills fields whose zero value is never meaningful.
// Fields where zero is a valid choice (gravity, centering, theta,
// min distance) are left
// alone, so start from DefaultOptions when decoding partial input.
func (o *Options) SetLayoutDefaults() {
	def := physics.DefaultConfig()
	if o.Dimensions == 0 {
		o.Dimensions = def.Dimensions
	}
	if o.DragCoefficient == 0 {
		o.DragCoefficient = def.DragCoefficient
	}
	if o.TimeStep == 0 {
		o.TimeStep = def.TimeStep
	}
	if o.Repulsion == "" {
		o.Repulsion = def.Repulsion
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = DefaultMaxSteps
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the simulation parameters and the step cap.
func (o *Options) Validate() error {
	if err := o.Config.Validate(); err != nil {
		return err
	}
	if o.MaxSteps < 0 {
		return &ferrors.ConfigurationError{Field: "MaxSteps", Reason: fmt.Sprintf("must be >= 0, got %d", o.MaxSteps)}
	}
	return nil
}

// Policy returns the graph construction policy implied by Lenient.
func (o *Options) Policy() graph.Policy {
	if o.Lenient {
		return graph.Lenient
	}
	return graph.Strict
}

// LayoutKeyOpts returns the cache key options for these settings.
// Workers is omitted because the result does not depend on it.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Dimensions:        o.Dimensions,
		SpringLength:      o.SpringLength,
		SpringCoefficient: o.SpringCoefficient,
		Gravity:           o.Gravity,
		Theta:             o.Theta,
		DragCoefficient:   o.DragCoefficient,
		TimeStep:          o.TimeStep,
		Centering:         o.Centering,
		StableThreshold:   o.StableThreshold,
		MinDistance:       o.MinDistance,
		MaxSpeed:          o.MaxSpeed,
		Repulsion:         o.Repulsion,
		Seed:              o.Seed,
		MaxSteps:          o.MaxSteps,
	}
}

// LoadOptionsFile decodes a TOML file over DefaultOptions. Unknown keys are
// rejected so a typo never silently falls back to a default.
func LoadOptionsFile(path string) (Options, error) {
	opts := DefaultOptions()
	md, err := toml.DecodeFile(path, &opts)
	if errors.Is(err, fs.ErrNotExist) {
		return Options{}, ferrors.Wrap(ferrors.ErrCodeFileNotFound, err, "config file not found: %s", path)
	}
	if err != nil {
		return Options{}, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Options{}, &ferrors.ConfigurationError{Reason: "unknown keys in " + path + ": " + strings.Join(keys, ", ")}
	}
	return opts, nil
}
