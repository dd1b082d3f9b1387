package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/boristopalov/laneavoid/internal/log"
	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/memory"
)

const (
	SYSTEM_PROMPT = `You are driving a car in a single lane. The lane spans lateral positions from -1 (left edge) to 1 (right edge); leaving it ends the drive. Obstacles approach from ahead. Each obstacle has a distance ahead dx and a lateral position dy; you hit it when dx is within 0.2 of zero and your position is within 0.2 of dy. Every step you may steer left (0), hold (1) or steer right (2). Steering changes your lateral velocity by 0.5, capped at magnitude 1. Staying centred and driving smoothly is rewarded.`

	STEER_PROMPT_TEMPLATE = `Your lateral position is %.3f and your lateral velocity is %.3f.
Obstacles ahead:
%s
%s
Very briefly think step by step about which action keeps you in the lane and clear of the obstacles, then give your answer after the string "ANSWER" like so: ANSWER: 1`

	RETRY_PROMPT_TEMPLATE = `Your previous response did not include the required format. Here was your response:

%s

Reply with exactly one line of the form "ANSWER: <n>" where <n> is 0 (left), 1 (hold) or 2 (right).`
)

const (
	defaultModelID    = "gpt-4o-mini"
	defaultMemorySize = 8
)

var (
	ErrNoClient = errors.New("llm agent requires a client")
	ErrNoAnswer = errors.New("no answer found in response")

	answerRe = regexp.MustCompile(`(?i)ANSWER:\s*(\d+|left|hold|right)`)
)

type ModelInfo struct {
	Id     string         // e.g. "gpt-4o-mini"
	Config map[string]any // model-specific configuration
}

// LLMClient is satisfied by the clients in package providers.
type LLMClient interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

type AgentParams struct {
	Model      ModelInfo
	AgentID    string
	Client     LLMClient
	MemorySize int
	Logger     log.Log
}

type AgentOption func(*AgentParams)

func WithModel(model ModelInfo) AgentOption {
	return func(p *AgentParams) {
		p.Model = model
	}
}

func WithAgentId(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

func WithClient(c LLMClient) AgentOption {
	return func(p *AgentParams) {
		p.Client = c
	}
}

// WithMemorySize sets how many recent transitions are included in prompts.
func WithMemorySize(n int) AgentOption {
	return func(p *AgentParams) {
		p.MemorySize = n
	}
}

func WithLogger(l log.Log) AgentOption {
	return func(p *AgentParams) {
		p.Logger = l
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		Model: ModelInfo{
			Id:     defaultModelID,
			Config: make(map[string]any),
		},
		AgentID:    newAgentID(),
		MemorySize: defaultMemorySize,
		Logger:     log.Nop(),
	}
}

var (
	_ core.Policy   = (*LLMAgent)(nil)
	_ core.Observer = (*LLMAgent)(nil)
)

// LLMAgent asks a language model for each steering action. Recent
// transitions are kept in memory and replayed in the prompt.
type LLMAgent struct {
	id     string
	model  ModelInfo
	client LLMClient
	memory *memory.Memory
	step   int
	logger log.Log
}

func NewLLMAgent(opts ...AgentOption) (*LLMAgent, error) {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}
	if params.Client == nil {
		return nil, ErrNoClient
	}

	return &LLMAgent{
		id:     params.AgentID,
		model:  params.Model,
		client: params.Client,
		memory: memory.NewMemory(params.MemorySize),
		logger: params.Logger.With(log.String("agent", params.AgentID)),
	}, nil
}

func (a *LLMAgent) ID() string {
	return a.id
}

func (a *LLMAgent) GetModel() ModelInfo {
	return a.model
}

func (a *LLMAgent) GetMemory() *memory.Memory {
	return a.memory
}

// Act prompts the model once, retries once with a format reminder, and
// holds when neither answer parses. Client errors are returned.
func (a *LLMAgent) Act(ctx context.Context, obs core.Observation) (core.Action, error) {
	prompt := fmt.Sprintf(STEER_PROMPT_TEMPLATE,
		obs.Y(),
		obs.VY(),
		describeObstacles(obs),
		a.describeHistory(),
	)

	response, err := a.client.Complete(ctx, a.model.Id, prompt)
	if err != nil {
		return core.ActionHold, fmt.Errorf("failed to generate response: %w", err)
	}
	a.logger.Debug("steer response", log.String("response", response))

	action, err := parseActionResponse(response)
	if err == nil {
		return action, nil
	}

	response, err = a.client.Complete(ctx, a.model.Id, fmt.Sprintf(RETRY_PROMPT_TEMPLATE, response))
	if err != nil {
		return core.ActionHold, fmt.Errorf("failed to generate response on retry: %w", err)
	}
	action, err = parseActionResponse(response)
	if err != nil {
		a.logger.Warn("unparsable answer, holding", log.Err(err))
		return core.ActionHold, nil
	}
	return action, nil
}

func (a *LLMAgent) EpisodeStart(core.Observation) {
	a.memory.Reset()
	a.step = 0
}

func (a *LLMAgent) Observe(action core.Action, result core.StepResult) {
	a.step++
	entry := fmt.Sprintf("Step %d: you chose %s, position became %.3f, velocity %.3f, reward %.3f",
		a.step, action, result.Observation.Y(), result.Observation.VY(), result.Reward)
	if e := result.Info.Event(); e != core.EventNone {
		entry += ", event " + string(e)
	}
	if err := a.memory.Store(entry); err != nil {
		a.logger.Warn("failed to store transition", log.Err(err))
	}
}

func (a *LLMAgent) describeHistory() string {
	history := a.memory.GetAllMessages()
	if len(history) == 0 {
		return "This is the first step of the drive."
	}
	return "Your most recent steps:\n" + strings.Join(history, "\n")
}

func describeObstacles(obs core.Observation) string {
	n := obs.NumObstacles()
	if n == 0 {
		return "none"
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dx, dy := obs.Obstacle(i)
		lines = append(lines, fmt.Sprintf("- obstacle %d: dx=%.3f dy=%.3f", i, dx, dy))
	}
	return strings.Join(lines, "\n")
}

func parseActionResponse(response string) (core.Action, error) {
	matches := answerRe.FindStringSubmatch(response)
	if len(matches) < 2 {
		return core.ActionHold, fmt.Errorf("%w: %q", ErrNoAnswer, response)
	}

	switch strings.ToLower(matches[1]) {
	case "left":
		return core.ActionLeft, nil
	case "hold":
		return core.ActionHold, nil
	case "right":
		return core.ActionRight, nil
	}

	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return core.ActionHold, fmt.Errorf("could not parse action: %w", err)
	}
	action := core.Action(n)
	if !action.Valid() {
		return core.ActionHold, fmt.Errorf("%w: %d", core.ErrInvalidAction, n)
	}
	return action, nil
}
