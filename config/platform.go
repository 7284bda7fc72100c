package config

import (
	"io"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/core"
	"github.com/sarchlab/pipesim/memory"
)

// Platform is everything a run needs: the engine that drives the core, the
// memory it runs on, and the core itself.
type Platform struct {
	Engine sim.Engine
	Memory *memory.Storage
	Core   *core.Core
}

// PlatformBuilder can build platforms.
type PlatformBuilder struct {
	cfg      Config
	engine   sim.Engine
	out      io.Writer
	stateOut io.Writer
}

// NewPlatformBuilder returns a builder that uses the default configuration.
func NewPlatformBuilder() PlatformBuilder {
	return PlatformBuilder{
		cfg:      Default(),
		out:      os.Stdout,
		stateOut: os.Stdout,
	}
}

// WithConfig sets the run configuration.
func (b PlatformBuilder) WithConfig(cfg Config) PlatformBuilder {
	b.cfg = cfg
	return b
}

// WithEngine makes the platform run on an existing engine instead of a new
// serial one.
func (b PlatformBuilder) WithEngine(engine sim.Engine) PlatformBuilder {
	b.engine = engine
	return b
}

// WithOutput sets where the program's system calls print to.
func (b PlatformBuilder) WithOutput(w io.Writer) PlatformBuilder {
	b.out = w
	return b
}

// WithStateOutput sets where the per-cycle pipeline state goes in verbose
// mode.
func (b PlatformBuilder) WithStateOutput(w io.Writer) PlatformBuilder {
	b.stateOut = w
	return b
}

// Build creates the platform.
func (b PlatformBuilder) Build(name string) (*Platform, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	policy, _ := b.cfg.Policy()
	table, _ := b.cfg.Table()

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	storage := memory.NewStorage()

	c := core.NewBuilder().
		WithEngine(engine).
		WithFreq(b.cfg.Freq()).
		WithMemory(storage).
		WithTable(table).
		WithPolicy(policy).
		WithOutput(b.out).
		WithVerbose(b.cfg.Verbose, b.stateOut).
		WithCycleLimit(b.cfg.MaxCycles).
		Build(name + ".Core")

	return &Platform{
		Engine: engine,
		Memory: storage,
		Core:   c,
	}, nil
}
