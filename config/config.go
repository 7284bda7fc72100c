// Package config holds the run configuration of the simulator and builds the
// platform that a run executes on.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/core"
	"github.com/sarchlab/pipesim/instr"
	"gopkg.in/yaml.v3"
)

// DefaultMaxCycles is the cycle limit used when none is configured.
const DefaultMaxCycles = 10_000_000

// Config describes one simulation run.
type Config struct {
	Predictor string            `yaml:"predictor"`
	Verbose   bool              `yaml:"verbose"`
	MaxCycles uint64            `yaml:"max_cycles"`
	FreqGHz   float64           `yaml:"freq_ghz"`
	ExeCycles map[string]uint32 `yaml:"exe_cycles"`
	TraceFile string            `yaml:"trace_file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Predictor: core.AlwaysNotTaken.String(),
		MaxCycles: DefaultMaxCycles,
		FreqGHz:   1,
	}
}

// Load reads a YAML configuration file. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes a YAML configuration and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that every field names something the simulator knows.
func (c Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}

	if c.FreqGHz <= 0 {
		return fmt.Errorf("freq_ghz must be positive, got %v", c.FreqGHz)
	}

	if _, err := c.Table(); err != nil {
		return err
	}

	return nil
}

// Policy returns the selected branch prediction policy.
func (c Config) Policy() (core.Policy, error) {
	return core.ParsePolicy(c.Predictor)
}

// Freq returns the core frequency.
func (c Config) Freq() sim.Freq {
	return sim.Freq(c.FreqGHz) * sim.GHz
}

// Table returns the default instruction table with the configured latency
// overrides applied.
func (c Config) Table() (instr.Table, error) {
	t := instr.DefaultTable()

	names := make([]string, 0, len(c.ExeCycles))
	for name := range c.ExeCycles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		op, ok := instr.ParseOpcode(name)
		if !ok {
			return instr.Table{}, fmt.Errorf("exe_cycles: unknown instruction %q", name)
		}

		cycles := c.ExeCycles[name]
		if cycles == 0 {
			return instr.Table{}, fmt.Errorf("exe_cycles: %s needs at least one cycle", name)
		}

		t = t.WithLatency(op, cycles)
	}

	return t, nil
}
