package experiment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/boristopalov/laneavoid/internal/log"
	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/environment"
	"github.com/boristopalov/laneavoid/pkg/messaging"
	"github.com/boristopalov/laneavoid/pkg/shield"
)

// PolicyFactory builds a fresh policy for one setting.
type PolicyFactory func(seed int64) (core.Policy, error)

// Setting is one row of an evaluation: a policy, optionally behind the shield.
type Setting struct {
	Name      string
	NewPolicy PolicyFactory
	Shield    bool
}

type EvalOptions struct {
	Env      environment.Config
	Episodes int
	Seed     int64
	Broker   messaging.Broker
	Logger   log.Log
}

// PolicySeed derives a policy's seed from its environment's seed so the two
// random streams do not share a starting state.
func PolicySeed(envSeed int64) int64 {
	return ^envSeed
}

// Evaluate runs every setting concurrently, each with its own environment
// seeded from opts.Seed plus the setting's index and a policy seeded with
// PolicySeed of that. Summaries come back in the order of settings.
func Evaluate(ctx context.Context, settings []Setting, opts EvalOptions) ([]Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	summaries := make([]Summary, len(settings))

	g, gctx := errgroup.WithContext(ctx)
	for i, setting := range settings {
		seed := opts.Seed + int64(i)
		g.Go(func() error {
			env, err := environment.NewLaneAvoidEnv(opts.Env,
				environment.WithSeed(seed),
				environment.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			policy, err := setting.NewPolicy(PolicySeed(seed))
			if err != nil {
				return fmt.Errorf("setting %s: %w", setting.Name, err)
			}
			if setting.Shield {
				policy = shield.Shielded(policy)
			}

			runner := NewRunner(env, policy, RunnerOptions{
				Name:     setting.Name,
				Episodes: opts.Episodes,
				Seed:     seed,
				Seeded:   true,
				Broker:   opts.Broker,
				Logger:   logger,
			})
			results, err := runner.Run(gctx)
			if err != nil {
				return fmt.Errorf("setting %s: %w", setting.Name, err)
			}

			summaries[i] = Summarize(setting.Name, results)
			logger.Info("setting evaluated",
				log.String("setting", setting.Name),
				log.Float64("mean_reward", summaries[i].MeanReward),
				log.Float64("mean_steps", summaries[i].MeanSteps),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
