package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Dimensions)
	assert.Equal(t, 10.0, cfg.SpringLength)
	assert.Equal(t, 0.8, cfg.SpringCoefficient)
	assert.Equal(t, -12.0, cfg.Gravity)
	assert.Equal(t, 0.8, cfg.Theta)
	assert.Equal(t, 0.9, cfg.DragCoefficient)
	assert.Equal(t, 0.5, cfg.TimeStep)
	assert.Equal(t, RepulsionPairwise, cfg.Repulsion)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"3D", func(c *Config) { c.Dimensions = 3 }, ""},
		{"DragOne", func(c *Config) { c.DragCoefficient = 1 }, ""},
		{"PositiveGravity", func(c *Config) { c.Gravity = 5 }, ""},
		{"ZeroSpringLength", func(c *Config) { c.SpringLength = 0 }, ""},
		{"BarnesHut", func(c *Config) { c.Repulsion = RepulsionBarnesHut }, ""},
		{"ZeroThreshold", func(c *Config) { c.StableThreshold = 0 }, ""},
		{"SoftenedRepulsion", func(c *Config) { c.MinDistance = 1 }, ""},

		{"Dimensions1", func(c *Config) { c.Dimensions = 1 }, "Dimensions"},
		{"Dimensions4", func(c *Config) { c.Dimensions = 4 }, "Dimensions"},
		{"ZeroTimeStep", func(c *Config) { c.TimeStep = 0 }, "TimeStep"},
		{"NegativeTimeStep", func(c *Config) { c.TimeStep = -0.1 }, "TimeStep"},
		{"InfTimeStep", func(c *Config) { c.TimeStep = math.Inf(1) }, "TimeStep"},
		{"ZeroDrag", func(c *Config) { c.DragCoefficient = 0 }, "DragCoefficient"},
		{"DragAboveOne", func(c *Config) { c.DragCoefficient = 1.01 }, "DragCoefficient"},
		{"NegativeSpringLength", func(c *Config) { c.SpringLength = -1 }, "SpringLength"},
		{"NegativeSpringCoefficient", func(c *Config) { c.SpringCoefficient = -0.5 }, "SpringCoefficient"},
		{"NaNGravity", func(c *Config) { c.Gravity = math.NaN() }, "Gravity"},
		{"NegativeTheta", func(c *Config) { c.Theta = -1 }, "Theta"},
		{"NegativeCentering", func(c *Config) { c.Centering = -1 }, "Centering"},
		{"NegativeMinDistance", func(c *Config) { c.MinDistance = -1 }, "MinDistance"},
		{"NegativeMaxSpeed", func(c *Config) { c.MaxSpeed = -3 }, "MaxSpeed"},
		{"UnknownRepulsion", func(c *Config) { c.Repulsion = "fmm" }, "Repulsion"},
		{"NegativeWorkers", func(c *Config) { c.Workers = -2 }, "Workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var cfgErr *ferrors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "err = %v", err)
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.NotEmpty(t, cfgErr.Reason)
			assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidConfig))
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	g := graph.New()
	g.AddNode("a")

	cfg := DefaultConfig()
	cfg.DragCoefficient = 2

	sim, err := New(g, cfg)
	assert.Nil(t, sim)
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidConfig), "err = %v", err)
}

func TestNewRejectsNilGraph(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidInput), "err = %v", err)
}
