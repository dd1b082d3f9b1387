package environment

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/boristopalov/laneavoid/pkg/core"
)

var ErrShapeMismatch = errors.New("observation does not match the box shape")

// Discrete is the action space {0, ..., N-1}.
type Discrete struct {
	N int
}

func (d Discrete) Contains(a core.Action) bool {
	return int(a) >= 0 && int(a) < d.N
}

// Sample draws a uniformly random action from rng.
func (d Discrete) Sample(rng *rand.Rand) core.Action {
	return core.Action(rng.IntN(d.N))
}

// Box is a bounded real vector space. Bounds are declared, not enforced:
// a terminal observation may sit outside them.
type Box struct {
	Low  []float64
	High []float64
}

func (b Box) Shape() int {
	return len(b.Low)
}

func (b Box) Contains(obs core.Observation) bool {
	if len(obs) != len(b.Low) {
		return false
	}
	for i, v := range obs {
		if v < b.Low[i] || v > b.High[i] {
			return false
		}
	}
	return true
}

// Normalize maps every component linearly from [Low, High] onto [-1, 1].
// An observation of the wrong length yields ErrShapeMismatch.
func (b Box) Normalize(obs core.Observation) ([]float64, error) {
	if len(obs) != len(b.Low) {
		return nil, fmt.Errorf("%w: got %d values, box has %d", ErrShapeMismatch, len(obs), len(b.Low))
	}
	out := make([]float64, len(obs))
	for i, v := range obs {
		span := b.High[i] - b.Low[i]
		if span == 0 {
			continue
		}
		out[i] = 2*(v-b.Low[i])/span - 1
	}
	return out, nil
}

func observationBox(numObstacles int) Box {
	high := []float64{1.0, 1.0}
	for i := 0; i < numObstacles; i++ {
		high = append(high, 5.0, 2.0)
	}
	low := make([]float64, len(high))
	for i, h := range high {
		low[i] = -h
	}
	return Box{Low: low, High: high}
}
