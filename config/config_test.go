package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	return cfg
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad start date", func(c *Config) { c.Experiment.Start = "02/01/2024" }},
		{"end before start", func(c *Config) { c.Experiment.End = "2023-01-01" }},
		{"zero cash", func(c *Config) { c.Experiment.InitialCash = 0 }},
		{"no data dir", func(c *Config) { c.Data.Dir = "" }},
		{"no symbols", func(c *Config) { c.Data.Symbols = nil }},
		{"no agents", func(c *Config) { c.Agents = nil }},
		{"blank signature", func(c *Config) { c.Agents[0].Signature = "" }},
		{"duplicate signature", func(c *Config) {
			c.Agents = append(c.Agents, AgentConfig{Signature: c.Agents[0].Signature})
		}},
		{"zero iterations", func(c *Config) { c.Step.MaxIterations = 0 }},
		{"negative retries", func(c *Config) { c.Step.MaxRetries = -1 }},
		{"bad timeout", func(c *Config) { c.Step.AttemptTimeout = "soon" }},
		{"bad backoff", func(c *Config) { c.Step.RetryBackoff = "later" }},
		{"no journal path", func(c *Config) { c.Journal.DBPath = "" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, Default().SaveToFile(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Experiment.Start, cfg.Experiment.Start)
	assert.Equal(t, Default().Data.Symbols, cfg.Data.Symbols)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "experiment.json")
	require.NoError(t, Default().SaveToFile(path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Journal.DBPath, cfg.Journal.DBPath)
}

func TestLoadFromFileRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "garbage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{not config"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Step.AttemptTimeout = "90s"
	cfg.Step.RetryBackoff = ""

	d, err := cfg.AttemptTimeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = cfg.RetryBackoff()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)
}
