package core

import "fmt"

// Action is a discrete steering command.
type Action int

const (
	ActionLeft Action = iota
	ActionHold
	ActionRight
)

// NumActions is the size of the discrete action space.
const NumActions = 3

func (a Action) Valid() bool {
	return a >= ActionLeft && a <= ActionRight
}

func (a Action) String() string {
	switch a {
	case ActionLeft:
		return "left"
	case ActionHold:
		return "hold"
	case ActionRight:
		return "right"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Observation is the flattened state vector [y, vy, dx_0, dy_0, ..., dx_{N-1}, dy_{N-1}].
type Observation []float64

// Index layout of an Observation.
const (
	ObsY        = 0
	ObsVY       = 1
	ObsObstacle = 2 // first obstacle dx; dy follows
)

// Y returns the lateral position.
func (o Observation) Y() float64 { return o[ObsY] }

// VY returns the lateral velocity.
func (o Observation) VY() float64 { return o[ObsVY] }

// NumObstacles reports how many (dx, dy) pairs the observation carries.
func (o Observation) NumObstacles() int {
	if len(o) < ObsObstacle {
		return 0
	}
	return (len(o) - ObsObstacle) / 2
}

// Obstacle returns the (dx, dy) pair of obstacle i.
func (o Observation) Obstacle(i int) (dx, dy float64) {
	base := ObsObstacle + 2*i
	return o[base], o[base+1]
}

// Event classifies how a step ended.
type Event string

const (
	EventNone          Event = "none"
	EventCollision     Event = "collision"
	EventLaneDeparture Event = "lane_departure"
	EventTimeout       Event = "timeout"
)

// InfoKeyEvent is the Info key holding the step's Event.
const InfoKeyEvent = "event"

// Info is the auxiliary key-value mapping returned next to an observation.
type Info map[string]any

// Event returns the event recorded in the info, or EventNone.
func (i Info) Event() Event {
	if e, ok := i[InfoKeyEvent].(Event); ok {
		return e
	}
	return EventNone
}

type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// Done reports whether the episode ended on this step.
func (r StepResult) Done() bool {
	return r.Terminated || r.Truncated
}
