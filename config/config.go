// Package config defines the experiment configuration: the simulated date
// range, the tradable universe, the agent roster, budgets and the retry
// policy. The orchestrator consumes it as an immutable value at start; it is
// never mutated mid-run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete experiment configuration.
type Config struct {
	Experiment ExperimentConfig `json:"experiment" yaml:"experiment"`
	Data       DataConfig       `json:"data" yaml:"data"`
	Agents     []AgentConfig    `json:"agents" yaml:"agents"`
	Step       StepConfig       `json:"step" yaml:"step"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// ExperimentConfig sets the replayed date range and starting conditions.
type ExperimentConfig struct {
	Start       string  `json:"start" yaml:"start"` // YYYY-MM-DD
	End         string  `json:"end" yaml:"end"`
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	AllowShort  bool    `json:"allow_short,omitempty" yaml:"allow_short,omitempty"`
}

// DataConfig locates the historical price data and names the tradable
// universe.
type DataConfig struct {
	Dir     string   `json:"dir" yaml:"dir"`
	Symbols []string `json:"symbols" yaml:"symbols"`
}

// AgentConfig is one roster entry. Signature identifies the agent's ledger
// and journal rows; Endpoint is where its decision service listens. An empty
// endpoint means the built-in scripted decider (dry runs).
type AgentConfig struct {
	Signature string `json:"signature" yaml:"signature"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
}

// StepConfig bounds one agent step and its retry policy.
type StepConfig struct {
	MaxIterations  int    `json:"max_iterations" yaml:"max_iterations"`
	AttemptTimeout string `json:"attempt_timeout,omitempty" yaml:"attempt_timeout,omitempty"` // e.g. "2m"
	MaxRetries     int    `json:"max_retries" yaml:"max_retries"`
	RetryBackoff   string `json:"retry_backoff,omitempty" yaml:"retry_backoff,omitempty"` // e.g. "10s"
}

// JournalConfig locates the run journal.
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML or JSON by extension.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	start, err := c.StartDate()
	if err != nil {
		return fmt.Errorf("experiment.start: %w", err)
	}
	end, err := c.EndDate()
	if err != nil {
		return fmt.Errorf("experiment.end: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("experiment.end %s before experiment.start %s", c.Experiment.End, c.Experiment.Start)
	}
	if c.Experiment.InitialCash <= 0 {
		return fmt.Errorf("experiment.initial_cash must be positive")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols must name at least one tradable symbol")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	seen := map[string]bool{}
	for i, a := range c.Agents {
		if a.Signature == "" {
			return fmt.Errorf("agents[%d].signature is required", i)
		}
		if seen[a.Signature] {
			return fmt.Errorf("duplicate agent signature %q", a.Signature)
		}
		seen[a.Signature] = true
	}
	if c.Step.MaxIterations <= 0 {
		return fmt.Errorf("step.max_iterations must be positive")
	}
	if c.Step.MaxRetries < 0 {
		return fmt.Errorf("step.max_retries must not be negative")
	}
	if _, err := c.AttemptTimeout(); err != nil {
		return fmt.Errorf("step.attempt_timeout: %w", err)
	}
	if _, err := c.RetryBackoff(); err != nil {
		return fmt.Errorf("step.retry_backoff: %w", err)
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	return nil
}

func (c *Config) StartDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.Experiment.Start)
}

func (c *Config) EndDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.Experiment.End)
}

func (c *Config) AttemptTimeout() (time.Duration, error) {
	if c.Step.AttemptTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Step.AttemptTimeout)
}

func (c *Config) RetryBackoff() (time.Duration, error) {
	if c.Step.RetryBackoff == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Step.RetryBackoff)
}

// Default returns a configuration with sensible defaults, used by the CLI's
// config init command as a starting template.
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Start:       "2024-01-02",
			End:         "2024-03-28",
			InitialCash: 10_000,
		},
		Data: DataConfig{
			Dir:     "./data",
			Symbols: []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA"},
		},
		Agents: []AgentConfig{
			{Signature: "baseline", Model: "scripted"},
		},
		Step: StepConfig{
			MaxIterations:  30,
			AttemptTimeout: "2m",
			MaxRetries:     3,
			RetryBackoff:   "10s",
		},
		Journal: JournalConfig{
			DBPath: "./run.sqlite",
		},
	}
}
