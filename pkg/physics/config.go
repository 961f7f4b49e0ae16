package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
)

// Repulsion strategy names accepted by [Config.Repulsion].
const (
	RepulsionPairwise  = "pairwise"
	RepulsionBarnesHut = "barneshut"
)

// Default simulation parameters.
const (
	DefaultDimensions        = 2
	DefaultSpringLength      = 10.0
	DefaultSpringCoefficient = 0.8
	DefaultGravity           = -12.0
	DefaultTheta             = 0.8
	DefaultDragCoefficient   = 0.9
	DefaultTimeStep          = 0.5
	DefaultStableThreshold   = 0.01
	DefaultMinDistance       = 0.0
	DefaultSeed              = 42
)

// Config holds the simulation parameters. It is copied into the simulator
// at construction and never changes afterwards.
//
// Gravity is a signed charge: negative values make nodes repel each other,
// positive values attract. Theta only matters for Barnes-Hut repulsion.
// MinDistance floors the separation used in the repulsion law; zero keeps
// the exact |G|/d² force.
type Config struct {
	Dimensions        int     `json:"dimensions" toml:"dimensions" validate:"oneof=2 3"`
	SpringLength      float64 `json:"spring_length" toml:"spring_length" validate:"gte=0"`
	SpringCoefficient float64 `json:"spring_coefficient" toml:"spring_coefficient" validate:"gte=0"`
	Gravity           float64 `json:"gravity" toml:"gravity"`
	Theta             float64 `json:"theta" toml:"theta" validate:"gte=0"`
	DragCoefficient   float64 `json:"drag_coefficient" toml:"drag_coefficient" validate:"gt=0,lte=1"`
	TimeStep          float64 `json:"time_step" toml:"time_step" validate:"gt=0"`
	Centering         float64 `json:"centering" toml:"centering" validate:"gte=0"`
	StableThreshold   float64 `json:"stable_threshold" toml:"stable_threshold" validate:"gte=0"`
	MinDistance       float64 `json:"min_distance" toml:"min_distance" validate:"gte=0"`
	MaxSpeed          float64 `json:"max_speed" toml:"max_speed" validate:"gte=0"`
	Repulsion         string  `json:"repulsion" toml:"repulsion" validate:"oneof=pairwise barneshut"`
	Workers           int     `json:"workers" toml:"workers" validate:"gte=0"`
	Seed              uint64  `json:"seed" toml:"seed"`
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		Dimensions:        DefaultDimensions,
		SpringLength:      DefaultSpringLength,
		SpringCoefficient: DefaultSpringCoefficient,
		Gravity:           DefaultGravity,
		Theta:             DefaultTheta,
		DragCoefficient:   DefaultDragCoefficient,
		TimeStep:          DefaultTimeStep,
		StableThreshold:   DefaultStableThreshold,
		MinDistance:       DefaultMinDistance,
		Repulsion:         RepulsionPairwise,
		Seed:              DefaultSeed,
	}
}

var validate = validator.New()

// Validate checks every field and returns a *ferrors.ConfigurationError
// naming the first offending field, or nil.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"SpringLength", c.SpringLength},
		{"SpringCoefficient", c.SpringCoefficient},
		{"Gravity", c.Gravity},
		{"Theta", c.Theta},
		{"DragCoefficient", c.DragCoefficient},
		{"TimeStep", c.TimeStep},
		{"Centering", c.Centering},
		{"StableThreshold", c.StableThreshold},
		{"MinDistance", c.MinDistance},
		{"MaxSpeed", c.MaxSpeed},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ferrors.ConfigurationError{Field: f.name, Reason: "must be finite"}
		}
	}

	if err := validate.Struct(c); err != nil {
		return configError(err)
	}
	return nil
}

// configError converts validator errors into a ConfigurationError for the
// first failing field.
func configError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ferrors.ConfigurationError{Reason: err.Error()}
	}

	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "gt":
		reason = "must be > " + fe.Param()
	case "gte":
		reason = "must be >= " + fe.Param()
	case "lte":
		reason = "must be <= " + fe.Param()
	case "oneof":
		reason = fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	default:
		reason = fmt.Sprintf("failed %q check", fe.Tag())
	}
	return &ferrors.ConfigurationError{Field: fe.StructField(), Reason: reason}
}
