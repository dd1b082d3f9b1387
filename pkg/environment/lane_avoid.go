package environment

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/boristopalov/laneavoid/internal/log"
	"github.com/boristopalov/laneavoid/pkg/core"
)

// Dynamics constants. Acceleration and closing rate are per step, not scaled by dt.
const (
	steerAccel   = 0.5
	maxSpeed     = 1.0
	laneHalf     = 1.0
	closingRate  = 0.25
	respawnBelow = -0.5

	spawnDxMin   = 2.0
	respawnDxMin = 3.0
	spawnDxMax   = 5.0
	spawnDyMin   = -0.8
	spawnDyMax   = 0.8

	collisionDx = 0.2
	collisionDy = 0.2

	survivalBonus     = 0.05
	departurePenalty  = -5.0
	collisionPenalty  = -10.0
	offsetPenalty     = 0.10
	lateralVelPenalty = 0.05
)

type vehicle struct {
	y  float64
	vy float64
}

type obstacle struct {
	dx float64
	dy float64
}

var _ core.Environment = (*LaneAvoidEnv)(nil)

// LaneAvoidEnv simulates a vehicle drifting laterally in a lane while
// obstacles approach from ahead. Actions steer left, hold or steer right.
//
// A LaneAvoidEnv is not safe for concurrent use; parallel episodes need one
// instance each.
type LaneAvoidEnv struct {
	cfg       Config
	rng       *rand.Rand
	car       vehicle
	obstacles []obstacle
	stepCount int
	started   bool
	logger    log.Log
}

type envParams struct {
	seed    int64
	hasSeed bool
	logger  log.Log
}

type Option func(*envParams)

// WithSeed seeds the random source used until the first seeded reset.
func WithSeed(seed int64) Option {
	return func(p *envParams) {
		p.seed = seed
		p.hasSeed = true
	}
}

func WithLogger(l log.Log) Option {
	return func(p *envParams) {
		p.logger = l
	}
}

// NewLaneAvoidEnv validates cfg and builds an environment. Reset must be
// called before the first Step.
func NewLaneAvoidEnv(cfg Config, opts ...Option) (*LaneAvoidEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params := &envParams{logger: log.Nop()}
	for _, opt := range opts {
		opt(params)
	}
	if !params.hasSeed {
		params.seed = rand.Int64()
	}

	return &LaneAvoidEnv{
		cfg:       cfg,
		rng:       newRand(params.seed),
		obstacles: make([]obstacle, cfg.NumObstacles),
		logger:    params.logger,
	}, nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func (e *LaneAvoidEnv) Config() Config {
	return e.cfg
}

func (e *LaneAvoidEnv) ActionSpace() Discrete {
	return Discrete{N: core.NumActions}
}

func (e *LaneAvoidEnv) ObservationSpace() Box {
	return observationBox(e.cfg.NumObstacles)
}

// StepCount returns the number of steps taken in the current episode.
func (e *LaneAvoidEnv) StepCount() int {
	return e.stepCount
}

// Reset starts a new episode.
func (e *LaneAvoidEnv) Reset(opts ...core.ResetOption) (core.Observation, core.Info) {
	params := &core.ResetParams{}
	for _, opt := range opts {
		opt(params)
	}
	if params.HasSeed {
		e.rng = newRand(params.Seed)
	}

	e.stepCount = 0
	e.car = vehicle{}
	for i := range e.obstacles {
		e.obstacles[i] = obstacle{
			dx: e.uniform(spawnDxMin, spawnDxMax),
			dy: e.uniform(spawnDyMin, spawnDyMax),
		}
	}
	e.started = true

	return e.observation(), core.Info{}
}

// Step applies action and advances the simulation by one time step.
// An out-of-range action is rejected with core.ErrInvalidAction and leaves
// the state untouched.
func (e *LaneAvoidEnv) Step(action core.Action) (core.StepResult, error) {
	if !e.started {
		return core.StepResult{}, core.ErrNotReset
	}
	if !action.Valid() {
		return core.StepResult{}, fmt.Errorf("%w: %d", core.ErrInvalidAction, int(action))
	}
	e.stepCount++

	switch action {
	case core.ActionLeft:
		e.car.vy -= steerAccel
	case core.ActionRight:
		e.car.vy += steerAccel
	}
	e.car.vy = clamp(e.car.vy, -maxSpeed, maxSpeed)
	e.car.y += e.car.vy * e.cfg.DT

	for i := range e.obstacles {
		e.obstacles[i].dx -= closingRate
	}
	for i := range e.obstacles {
		if e.obstacles[i].dx < respawnBelow {
			e.obstacles[i] = obstacle{
				dx: e.uniform(respawnDxMin, spawnDxMax),
				dy: e.uniform(spawnDyMin, spawnDyMax),
			}
		}
	}

	reward := survivalBonus
	terminated := false
	event := core.EventNone

	if math.Abs(e.car.y) > laneHalf {
		terminated = true
		reward = departurePenalty
		event = core.EventLaneDeparture
	}

	if !terminated {
		for _, o := range e.obstacles {
			if math.Abs(o.dx) < collisionDx && math.Abs(e.car.y-o.dy) < collisionDy {
				terminated = true
				reward = collisionPenalty
				event = core.EventCollision
				break
			}
		}
	}

	// Shaping applies on terminal steps too.
	reward -= offsetPenalty * math.Abs(e.car.y)
	reward -= lateralVelPenalty * math.Abs(e.car.vy)

	truncated := false
	if e.stepCount >= e.cfg.MaxSteps && !terminated {
		truncated = true
		event = core.EventTimeout
	}

	if terminated || truncated {
		e.logger.Debug("episode ended",
			log.String("event", string(event)),
			log.Int("steps", e.stepCount),
			log.Float64("y", e.car.y),
			log.Float64("reward", reward),
		)
	}

	return core.StepResult{
		Observation: e.observation(),
		Reward:      reward,
		Terminated:  terminated,
		Truncated:   truncated,
		Info:        core.Info{core.InfoKeyEvent: event},
	}, nil
}

func (e *LaneAvoidEnv) observation() core.Observation {
	obs := make(core.Observation, 0, 2+2*len(e.obstacles))
	obs = append(obs, e.car.y, e.car.vy)
	for _, o := range e.obstacles {
		obs = append(obs, o.dx, o.dy)
	}
	return obs
}

// uniform draws from [lo, hi).
func (e *LaneAvoidEnv) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*e.rng.Float64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
