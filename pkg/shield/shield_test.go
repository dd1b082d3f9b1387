package shield

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/laneavoid/pkg/core"
)

var allActions = []core.Action{core.ActionLeft, core.ActionHold, core.ActionRight}

func obs(y, dx1, dy1 float64) core.Observation {
	return core.Observation{y, 0, dx1, dy1, 4.0, 0.0}
}

func TestApplyObstacleOnTheLeft(t *testing.T) {
	o := obs(0.0, 0.5, -0.1)
	assert.Equal(t, core.ActionHold, Apply(core.ActionLeft, o))
	assert.Equal(t, core.ActionHold, Apply(core.ActionHold, o))
	// 0.1 is inside the alignment band, so steering away is held too.
	assert.Equal(t, core.ActionHold, Apply(core.ActionRight, o))
}

func TestApplyObstacleOnTheRight(t *testing.T) {
	// dy1 > y and outside the alignment band.
	o := obs(0.0, 0.5, 0.25)
	assert.Equal(t, core.ActionLeft, Apply(core.ActionLeft, o))
	assert.Equal(t, core.ActionHold, Apply(core.ActionHold, o))
	assert.Equal(t, core.ActionHold, Apply(core.ActionRight, o))
}

func TestApplyAlignmentForcesHold(t *testing.T) {
	// Obstacle to the left but within the alignment band: steering right is
	// still overridden by the third branch.
	o := obs(0.1, 0.5, 0.0)
	for _, a := range allActions {
		assert.Equal(t, core.ActionHold, Apply(a, o), a.String())
	}

	exact := obs(0.3, 0.2, 0.3)
	for _, a := range allActions {
		assert.Equal(t, core.ActionHold, Apply(a, exact), a.String())
	}
}

func TestApplyOutsideAlignmentBand(t *testing.T) {
	// Left of the car, 0.25 away: inside the danger zone but not aligned.
	o := obs(0.0, 0.5, -0.25)
	assert.Equal(t, core.ActionHold, Apply(core.ActionLeft, o))
	assert.Equal(t, core.ActionRight, Apply(core.ActionRight, o))
	assert.Equal(t, core.ActionHold, Apply(core.ActionHold, o))
}

func TestApplyNoDanger(t *testing.T) {
	cases := []struct {
		name string
		obs  core.Observation
	}{
		{"far ahead", obs(0.0, 0.9, 0.0)},
		{"very far ahead", obs(0.0, 4.0, 0.05)},
		{"laterally clear", obs(0.0, 0.5, 0.35)},
		{"laterally clear left", obs(0.2, 0.1, -0.5)},
		{"passed and clear", obs(0.0, -0.3, 0.6)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, a := range allActions {
				assert.Equal(t, a, Apply(a, tc.obs))
			}
		})
	}
}

func TestApplyIgnoresLaterObstacles(t *testing.T) {
	o := core.Observation{0.0, 0.0, 3.0, 0.0, 0.3, 0.0}
	for _, a := range allActions {
		assert.Equal(t, a, Apply(a, o))
	}
}

func TestApplyWithoutObstacles(t *testing.T) {
	o := core.Observation{0.0, 0.0}
	for _, a := range allActions {
		assert.Equal(t, a, Apply(a, o))
	}
}

type fixedPolicy struct {
	action   core.Action
	observed int
}

func (p *fixedPolicy) ID() string { return "fixed" }

func (p *fixedPolicy) Act(context.Context, core.Observation) (core.Action, error) {
	return p.action, nil
}

func (p *fixedPolicy) Observe(core.Action, core.StepResult) { p.observed++ }

func (p *fixedPolicy) EpisodeStart(core.Observation) {}

func TestShieldedPolicy(t *testing.T) {
	inner := &fixedPolicy{action: core.ActionLeft}
	p := Shielded(inner)
	assert.Equal(t, "fixed+shield", p.ID())
	ctx := context.Background()

	a, err := p.Act(ctx, obs(0.0, 0.5, -0.1))
	require.NoError(t, err)
	assert.Equal(t, core.ActionHold, a)

	a, err = p.Act(ctx, obs(0.0, 3.0, -0.1))
	require.NoError(t, err)
	assert.Equal(t, core.ActionLeft, a)

	assert.Equal(t, 1, p.Overrides())

	p.Observe(a, core.StepResult{})
	assert.Equal(t, 1, inner.observed)
	assert.Same(t, inner, p.Unwrap())
}
