package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/boristopalov/laneavoid/internal/log"
	"github.com/boristopalov/laneavoid/pkg/core"
	"github.com/boristopalov/laneavoid/pkg/environment"
)

const (
	PolicyRandom = "random"
	PolicyHold   = "hold"
	PolicyLLM    = "llm"
)

type ExperimentConfig struct {
	Environment environment.Config `yaml:"environment"`
	Evaluation  EvalConfig         `yaml:"evaluation"`
	Agent       AgentConfig        `yaml:"agent"`
	Logging     LogConfig          `yaml:"logging"`
}

type EvalConfig struct {
	Episodes int      `yaml:"episodes"`
	Seed     int64    `yaml:"seed"`
	Policies []string `yaml:"policies"`
	// Shield also evaluates every policy behind the safety shield.
	Shield      bool   `yaml:"shield"`
	MonitorPath string `yaml:"monitor_path"`
	StatsPath   string `yaml:"stats_path"`
}

type AgentConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	MemorySize int    `yaml:"memory_size"`
}

// LogConfig is turned into a logger with Logger.
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

func Default() *ExperimentConfig {
	return &ExperimentConfig{
		Environment: environment.DefaultConfig(),
		Evaluation: EvalConfig{
			Episodes:    200,
			Seed:        123,
			Policies:    []string{PolicyRandom, PolicyHold},
			Shield:      true,
			MonitorPath: "logs/monitor.csv",
			StatsPath:   "logs/stats.csv",
		},
		Agent: AgentConfig{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			MemorySize: 8,
		},
		Logging: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// LoadConfig reads a YAML file on top of Default. An empty path returns the
// defaults.
func LoadConfig(path string) (*ExperimentConfig, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*ExperimentConfig, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ExperimentConfig) Validate() error {
	if err := c.Environment.Validate(); err != nil {
		return err
	}
	if c.Evaluation.Episodes <= 0 {
		return fmt.Errorf("%w: evaluation.episodes must be positive, got %d", core.ErrInvalidConfig, c.Evaluation.Episodes)
	}
	for _, p := range c.Evaluation.Policies {
		switch p {
		case PolicyRandom, PolicyHold, PolicyLLM:
		default:
			return fmt.Errorf("%w: unknown policy %q", core.ErrInvalidConfig, p)
		}
	}
	if c.Agent.MemorySize < 0 {
		return fmt.Errorf("%w: agent.memory_size must not be negative", core.ErrInvalidConfig)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", core.ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.encoding must be console or json, got %q", core.ErrInvalidConfig, c.Logging.Encoding)
	}
	return nil
}

func (c LogConfig) Logger() (*log.Logger, error) {
	return log.New(log.ParseLevel(c.Level), c.Encoding)
}
