package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/shield"
)

// EpisodeResult summarises one reset-to-end rollout.
type EpisodeResult struct {
	Episode   int           `json:"episode"`
	Reward    float64       `json:"reward"`
	Steps     int           `json:"steps"`
	Event     core.Event    `json:"event"`
	Overrides int           `json:"overrides"`
	Duration  time.Duration `json:"duration"`
}

// RunEpisode resets env and lets policy drive until the episode terminates
// or is truncated. The context is checked between steps.
func RunEpisode(ctx context.Context, env core.Environment, policy core.Policy, resetOpts ...core.ResetOption) (EpisodeResult, error) {
	start := time.Now()
	obs, _ := env.Reset(resetOpts...)

	observer, _ := policy.(core.Observer)
	if observer != nil {
		observer.EpisodeStart(obs)
	}
	shielded, _ := policy.(*shield.ShieldedPolicy)
	overridesBefore := 0
	if shielded != nil {
		overridesBefore = shielded.Overrides()
	}

	result := EpisodeResult{Event: core.EventNone}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		action, err := policy.Act(ctx, obs)
		if err != nil {
			return result, fmt.Errorf("policy %s failed at step %d: %w", policy.ID(), result.Steps+1, err)
		}

		step, err := env.Step(action)
		if err != nil {
			return result, fmt.Errorf("step %d: %w", result.Steps+1, err)
		}
		if observer != nil {
			observer.Observe(action, step)
		}

		result.Reward += step.Reward
		result.Steps++
		result.Event = step.Info.Event()
		obs = step.Observation

		if step.Done() {
			break
		}
	}

	if shielded != nil {
		result.Overrides = shielded.Overrides() - overridesBefore
	}
	result.Duration = time.Since(start)
	return result, nil
}
