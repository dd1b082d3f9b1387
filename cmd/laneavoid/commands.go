package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/boristopalov/laneavoid/internal/log"
	"github.com/boristopalov/laneavoid/pkg/agent"
	"github.com/boristopalov/laneavoid/pkg/config"
	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/environment"
	"github.com/boristopalov/laneavoid/pkg/experiment"
	"github.com/boristopalov/laneavoid/pkg/messaging"
	"github.com/boristopalov/laneavoid/pkg/plot"
	"github.com/boristopalov/laneavoid/pkg/providers"
	"github.com/boristopalov/laneavoid/pkg/shield"
)

const maxRandomSteps = 200

func newRandomCmd() *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Drive one episode with uniformly random actions and print every step",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !cmd.Flags().Changed("seed") {
				seed = rand.Int64()
			}
			env, err := environment.NewLaneAvoidEnv(cfg.Environment,
				environment.WithSeed(seed),
				environment.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			return runRandom(cmd, env, seed)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for the environment and the action sampler")
	return cmd
}

func runRandom(cmd *cobra.Command, env *environment.LaneAvoidEnv, seed int64) error {
	out := cmd.OutOrStdout()
	policySeed := experiment.PolicySeed(seed)
	rng := rand.New(rand.NewPCG(uint64(policySeed), uint64(policySeed)+1))
	space := env.ActionSpace()

	env.Reset()
	var res core.StepResult
	for step := 0; step < maxRandomSteps && !res.Done(); step++ {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		action := space.Sample(rng)
		var err error
		res, err = env.Step(action)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "step %03d | action=%d | y=%.2f | vy=%.2f | reward=%.2f\n",
			step, int(action), res.Observation.Y(), res.Observation.VY(), res.Reward)
	}

	switch {
	case res.Terminated:
		fmt.Fprintf(out, "Episode finished: terminated (%s)\n", res.Info.Event())
	case res.Truncated:
		fmt.Fprintln(out, "Episode finished: truncated")
	default:
		fmt.Fprintf(out, "Stopped after %d steps\n", maxRandomSteps)
	}
	return nil
}

func newRolloutCmd() *cobra.Command {
	var (
		policyName  string
		useShield   bool
		episodes    int
		seed        int64
		monitorPath string
	)
	cmd := &cobra.Command{
		Use:   "rollout",
		Short: "Run episodes of one policy and write a monitor CSV for plotting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("episodes") {
				cfg.Evaluation.Episodes = episodes
			}
			if cmd.Flags().Changed("seed") {
				cfg.Evaluation.Seed = seed
			}
			if cmd.Flags().Changed("monitor") {
				cfg.Evaluation.MonitorPath = monitorPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runRollout(cmd.Context(), cfg, logger, policyName, useShield)
		},
	}
	cmd.Flags().StringVar(&policyName, "policy", config.PolicyRandom, "policy to roll out (random, hold, llm)")
	cmd.Flags().BoolVar(&useShield, "shield", false, "filter actions through the safety shield")
	cmd.Flags().IntVar(&episodes, "episodes", 0, "override evaluation.episodes")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override evaluation.seed")
	cmd.Flags().StringVar(&monitorPath, "monitor", "", "override evaluation.monitor_path")
	return cmd
}

func runRollout(ctx context.Context, cfg *config.ExperimentConfig, logger log.Log, policyName string, useShield bool) error {
	factory, err := policyFactory(ctx, cfg, logger, policyName)
	if err != nil {
		return err
	}
	policy, err := factory(experiment.PolicySeed(cfg.Evaluation.Seed))
	if err != nil {
		return err
	}
	if useShield {
		policy = shield.Shielded(policy)
	}

	env, err := environment.NewLaneAvoidEnv(cfg.Environment,
		environment.WithSeed(cfg.Evaluation.Seed),
		environment.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	mon, err := experiment.CreateMonitor(cfg.Evaluation.MonitorPath, experiment.DefaultEnvID)
	if err != nil {
		return err
	}
	defer mon.Close()

	broker := messaging.NewBroker()
	defer broker.Reset()
	// Delivery waits for the monitor, so the buffer only smooths bursts.
	ch := make(chan messaging.Message, 64)
	if err := broker.Subscribe("monitor", ch); err != nil {
		return err
	}

	runner := experiment.NewRunner(env, policy, experiment.RunnerOptions{
		Name:     settingName(policyName, useShield),
		Episodes: cfg.Evaluation.Episodes,
		Seed:     cfg.Evaluation.Seed,
		Seeded:   true,
		Broker:   broker,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mon.Listen(gctx, ch)
	})
	var results []experiment.EpisodeResult
	g.Go(func() error {
		defer close(ch)
		var err error
		results, err = runner.Run(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("rollout finished",
		log.String("run", runner.ID()),
		log.Int("episodes", len(results)),
		log.String("monitor", cfg.Evaluation.MonitorPath),
	)
	experiment.PrintSummary(os.Stdout, experiment.Summarize(runner.Name(), results), true)
	return nil
}

func newEvaluateCmd() *cobra.Command {
	var (
		episodes  int
		seed      int64
		statsPath string
		noColor   bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the configured policies with and without the safety shield",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("episodes") {
				cfg.Evaluation.Episodes = episodes
			}
			if cmd.Flags().Changed("seed") {
				cfg.Evaluation.Seed = seed
			}
			if cmd.Flags().Changed("stats") {
				cfg.Evaluation.StatsPath = statsPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runEvaluate(cmd, cfg, logger, !noColor)
		},
	}
	cmd.Flags().IntVar(&episodes, "episodes", 0, "override evaluation.episodes")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override evaluation.seed")
	cmd.Flags().StringVar(&statsPath, "stats", "", "override evaluation.stats_path (empty string disables)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	return cmd
}

func runEvaluate(cmd *cobra.Command, cfg *config.ExperimentConfig, logger log.Log, colors bool) error {
	ctx := cmd.Context()

	var settings []experiment.Setting
	for _, name := range cfg.Evaluation.Policies {
		factory, err := policyFactory(ctx, cfg, logger, name)
		if err != nil {
			return err
		}
		settings = append(settings, experiment.Setting{Name: settingName(name, false), NewPolicy: factory})
		if cfg.Evaluation.Shield {
			settings = append(settings, experiment.Setting{Name: settingName(name, true), NewPolicy: factory, Shield: true})
		}
	}
	if len(settings) == 0 {
		return errors.New("no policies configured")
	}

	summaries, err := experiment.Evaluate(ctx, settings, experiment.EvalOptions{
		Env:      cfg.Environment,
		Episodes: cfg.Evaluation.Episodes,
		Seed:     cfg.Evaluation.Seed,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	for _, s := range summaries {
		experiment.PrintSummary(cmd.OutOrStdout(), s, colors)
	}

	if cfg.Evaluation.StatsPath == "" {
		return nil
	}
	sw, err := experiment.CreateStatsFile(cfg.Evaluation.StatsPath)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		if err := sw.Write(s); err != nil {
			sw.Close()
			return err
		}
	}
	logger.Info("statistics written", log.String("path", cfg.Evaluation.StatsPath))
	return sw.Close()
}

func newPlotCmd() *cobra.Command {
	var (
		monitorPath string
		outPath     string
		window      int
		serveAddr   string
	)
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render learning curves from a monitor CSV as an HTML page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if monitorPath == "" {
				monitorPath = cfg.Evaluation.MonitorPath
			}
			if err := renderPlot(monitorPath, outPath, window); err != nil {
				return err
			}
			logger.Info("learning curves written", log.String("path", outPath))

			if serveAddr == "" {
				return nil
			}
			return serveDir(cmd.Context(), logger, filepath.Dir(outPath), serveAddr)
		},
	}
	cmd.Flags().StringVar(&monitorPath, "monitor", "", "monitor CSV to read (defaults to evaluation.monitor_path)")
	cmd.Flags().StringVar(&outPath, "out", "charts/learning_curve.html", "HTML file to write")
	cmd.Flags().IntVar(&window, "window", plot.DefaultWindow, "moving average window")
	cmd.Flags().StringVar(&serveAddr, "serve", "", "serve the chart directory on this address, e.g. localhost:8089")
	return cmd
}

func renderPlot(monitorPath, outPath string, window int) error {
	in, err := os.Open(monitorPath)
	if err != nil {
		return fmt.Errorf("failed to open monitor file: %w", err)
	}
	defer in.Close()

	episodes, err := plot.ReadMonitor(in)
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		return fmt.Errorf("no episodes in %s", monitorPath)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := plot.Render(out, episodes, window); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func serveDir(ctx context.Context, logger log.Log, dir, addr string) error {
	srv := &http.Server{Addr: addr, Handler: http.FileServer(http.Dir(dir))}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	logger.Info("serving charts", log.String("addr", "http://"+addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// policyFactory resolves a policy name from the config. LLM clients are
// created once and shared by every agent built from the factory.
func policyFactory(ctx context.Context, cfg *config.ExperimentConfig, logger log.Log, name string) (experiment.PolicyFactory, error) {
	switch name {
	case config.PolicyRandom:
		return func(seed int64) (core.Policy, error) {
			return agent.NewRandomAgent(seed), nil
		}, nil
	case config.PolicyHold:
		return func(int64) (core.Policy, error) {
			return agent.NewConstantAgent(core.ActionHold), nil
		}, nil
	case config.PolicyLLM:
		client, err := providers.New(ctx, cfg.Agent.Provider,
			providers.WithBaseURL(cfg.Agent.BaseURL),
			providers.WithAPIKey(cfg.Agent.APIKey),
			providers.WithSystemPrompt(agent.SYSTEM_PROMPT),
		)
		if err != nil {
			return nil, err
		}
		return func(int64) (core.Policy, error) {
			return agent.NewLLMAgent(
				agent.WithClient(client),
				agent.WithModel(agent.ModelInfo{Id: cfg.Agent.Model, Config: map[string]any{}}),
				agent.WithMemorySize(cfg.Agent.MemorySize),
				agent.WithLogger(logger),
			)
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", core.ErrInvalidConfig, name)
	}
}

func settingName(policy string, shielded bool) string {
	name := strings.ToUpper(policy)
	if shielded {
		name += " + SHIELD"
	}
	return name
}
