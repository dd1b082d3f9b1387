package core

import (
	"context"
)

// Environment is the discrete-time reset/step contract.
type Environment interface {
	// Reset starts a new episode and returns the initial observation
	Reset(opts ...ResetOption) (Observation, Info)
	// Step advances the environment by one timestep
	Step(action Action) (StepResult, error)
}

// Policy chooses an action for an observation
type Policy interface {
	ID() string
	Act(ctx context.Context, obs Observation) (Action, error)
}

// Observer is implemented by policies that want to see the outcome of their actions
type Observer interface {
	Observe(action Action, result StepResult)
	// EpisodeStart is called after every reset
	EpisodeStart(obs Observation)
}

type ResetParams struct {
	Seed    int64
	HasSeed bool
}

type ResetOption func(*ResetParams)

// WithResetSeed re-seeds the environment's random source before the reset.
func WithResetSeed(seed int64) ResetOption {
	return func(p *ResetParams) {
		p.Seed = seed
		p.HasSeed = true
	}
}
