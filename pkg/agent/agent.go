package agent

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/boristopalov/laneavoid/pkg/core"
)

var (
	_ core.Policy = (*RandomAgent)(nil)
	_ core.Policy = (*ConstantAgent)(nil)
)

func newAgentID() string {
	return "agent-" + uuid.New().String()
}

// RandomAgent samples the discrete action space uniformly.
type RandomAgent struct {
	id  string
	rng *rand.Rand
}

// NewRandomAgent returns a sampler seeded with seed.
func NewRandomAgent(seed int64) *RandomAgent {
	return &RandomAgent{
		id:  newAgentID(),
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1)),
	}
}

func (a *RandomAgent) ID() string {
	return a.id
}

func (a *RandomAgent) Act(ctx context.Context, _ core.Observation) (core.Action, error) {
	if err := ctx.Err(); err != nil {
		return core.ActionHold, err
	}
	return core.Action(a.rng.IntN(core.NumActions)), nil
}

// ConstantAgent always returns the same action.
type ConstantAgent struct {
	id     string
	action core.Action
}

func NewConstantAgent(action core.Action) *ConstantAgent {
	return &ConstantAgent{
		id:     newAgentID(),
		action: action,
	}
}

func (a *ConstantAgent) ID() string {
	return a.id
}

func (a *ConstantAgent) Act(context.Context, core.Observation) (core.Action, error) {
	return a.action, nil
}
