package environment

import (
	"fmt"

	"github.com/boristopalov/laneavoid/pkg/core"
)

const (
	DefaultDT           = 0.1
	DefaultNumObstacles = 2
	DefaultMaxSteps     = 300
)

// Config is fixed at construction time.
type Config struct {
	DT           float64 `yaml:"dt"`
	NumObstacles int     `yaml:"num_obstacles"`
	MaxSteps     int     `yaml:"max_steps"`
}

func DefaultConfig() Config {
	return Config{
		DT:           DefaultDT,
		NumObstacles: DefaultNumObstacles,
		MaxSteps:     DefaultMaxSteps,
	}
}

func (c Config) Validate() error {
	if c.DT <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %v", core.ErrInvalidConfig, c.DT)
	}
	if c.NumObstacles < 0 {
		return fmt.Errorf("%w: num_obstacles must not be negative, got %d", core.ErrInvalidConfig, c.NumObstacles)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: max_steps must be positive, got %d", core.ErrInvalidConfig, c.MaxSteps)
	}
	return nil
}
