package experiment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/laneavoid/internal/log"
	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/messaging"
)

type Status struct {
	Running   bool
	StartTime time.Time
	EndTime   time.Time
	Completed int
	Errors    []error
}

type RunnerOptions struct {
	Name     string
	Episodes int
	// Seed is applied to the first reset only; later episodes continue the
	// environment's random stream.
	Seed   int64
	Seeded bool
	Broker messaging.Broker
	Logger log.Log
}

// Runner plays a fixed number of episodes of one policy in one environment.
type Runner struct {
	id       string
	name     string
	env      core.Environment
	policy   core.Policy
	episodes int
	seed     int64
	seeded   bool
	broker   messaging.Broker
	logger   log.Log

	mu      sync.RWMutex
	status  Status
	results []EpisodeResult
}

func NewRunner(env core.Environment, policy core.Policy, opts RunnerOptions) *Runner {
	id := "run-" + uuid.New().String()
	name := opts.Name
	if name == "" {
		name = policy.ID()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}

	return &Runner{
		id:       id,
		name:     name,
		env:      env,
		policy:   policy,
		episodes: opts.Episodes,
		seed:     opts.Seed,
		seeded:   opts.Seeded,
		broker:   opts.Broker,
		logger:   logger.With(log.String("run", id), log.String("setting", name)),
	}
}

func (r *Runner) ID() string {
	return r.id
}

func (r *Runner) Name() string {
	return r.name
}

func (r *Runner) Run(ctx context.Context) ([]EpisodeResult, error) {
	r.mu.Lock()
	r.status = Status{Running: true, StartTime: time.Now()}
	r.results = make([]EpisodeResult, 0, r.episodes)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.status.Running = false
		r.status.EndTime = time.Now()
		r.mu.Unlock()
	}()

	if err := r.runLoop(ctx); err != nil {
		r.mu.Lock()
		r.status.Errors = append(r.status.Errors, err)
		r.mu.Unlock()
		return r.Results(), err
	}
	return r.Results(), nil
}

func (r *Runner) runLoop(ctx context.Context) error {
	for i := 1; i <= r.episodes; i++ {
		var resetOpts []core.ResetOption
		if i == 1 && r.seeded {
			resetOpts = append(resetOpts, core.WithResetSeed(r.seed))
		}

		res, err := RunEpisode(ctx, r.env, r.policy, resetOpts...)
		if err != nil {
			return fmt.Errorf("episode %d: %w", i, err)
		}
		res.Episode = i

		r.mu.Lock()
		r.results = append(r.results, res)
		r.status.Completed++
		r.mu.Unlock()

		r.logger.Debug("episode finished",
			log.Int("episode", i),
			log.Float64("reward", res.Reward),
			log.Int("steps", res.Steps),
			log.String("event", string(res.Event)),
			log.Int("overrides", res.Overrides),
		)
		if err := r.publish(ctx, res); err != nil {
			return fmt.Errorf("episode %d: %w", i, err)
		}
	}
	return nil
}

// publish hands res to every broker subscriber, waiting for slow receivers
// so no episode is lost.
func (r *Runner) publish(ctx context.Context, res EpisodeResult) error {
	if r.broker == nil {
		return nil
	}
	msg := messaging.Message{
		From:      r.id,
		Content:   res,
		Timestamp: time.Now(),
	}
	if err := r.broker.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish episode: %w", err)
	}
	return nil
}

func (r *Runner) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	s.Errors = append([]error(nil), r.status.Errors...)
	return s
}

// Results returns a copy of the episodes finished so far.
func (r *Runner) Results() []EpisodeResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EpisodeResult, len(r.results))
	copy(out, r.results)
	return out
}
