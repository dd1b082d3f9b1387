// Package shield filters proposed steering actions before they reach the
// simulation. It only inspects the first obstacle in the observation, which
// is not necessarily the closest one.
package shield

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/boristopalov/laneavoid/pkg/core"
)

const (
	dangerDx    = 0.9
	dangerDy    = 0.35
	alignedBand = 0.18
)

// Apply returns action, or hold when the first obstacle is close ahead and
// action would steer towards it. Near-perfect alignment always yields hold.
func Apply(action core.Action, obs core.Observation) core.Action {
	if obs.NumObstacles() < 1 {
		return action
	}
	y := obs.Y()
	dx1, dy1 := obs.Obstacle(0)

	if dx1 < dangerDx && math.Abs(y-dy1) < dangerDy {
		if dy1 < y && action == core.ActionLeft {
			return core.ActionHold
		}
		if dy1 > y && action == core.ActionRight {
			return core.ActionHold
		}
		if math.Abs(dy1-y) < alignedBand {
			return core.ActionHold
		}
	}
	return action
}

var (
	_ core.Policy   = (*ShieldedPolicy)(nil)
	_ core.Observer = (*ShieldedPolicy)(nil)
)

// ShieldedPolicy passes every action of the wrapped policy through Apply.
type ShieldedPolicy struct {
	inner     core.Policy
	overrides atomic.Int64
}

func Shielded(p core.Policy) *ShieldedPolicy {
	return &ShieldedPolicy{inner: p}
}

func (s *ShieldedPolicy) ID() string {
	return s.inner.ID() + "+shield"
}

func (s *ShieldedPolicy) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	proposed, err := s.inner.Act(ctx, obs)
	if err != nil {
		return proposed, err
	}
	action := Apply(proposed, obs)
	if action != proposed {
		s.overrides.Add(1)
	}
	return action, nil
}

// Observe forwards to the wrapped policy when it observes transitions.
func (s *ShieldedPolicy) Observe(action core.Action, result core.StepResult) {
	if o, ok := s.inner.(core.Observer); ok {
		o.Observe(action, result)
	}
}

func (s *ShieldedPolicy) EpisodeStart(obs core.Observation) {
	if o, ok := s.inner.(core.Observer); ok {
		o.EpisodeStart(obs)
	}
}

// Overrides counts how many actions were rewritten so far.
func (s *ShieldedPolicy) Overrides() int {
	return int(s.overrides.Load())
}

// Unwrap returns the wrapped policy.
func (s *ShieldedPolicy) Unwrap() core.Policy {
	return s.inner
}
