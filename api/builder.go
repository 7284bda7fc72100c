package api

import (
	"io"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/config"
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	engine   sim.Engine
	cfg      *config.Config
	out      io.Writer
	stateOut io.Writer
}

// WithEngine sets the engine.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithConfig sets the run configuration. The default configuration is used
// otherwise.
func (b DriverBuilder) WithConfig(cfg config.Config) DriverBuilder {
	b.cfg = &cfg
	return b
}

// WithOutput sets where the program's system calls print to.
func (b DriverBuilder) WithOutput(w io.Writer) DriverBuilder {
	b.out = w
	return b
}

// WithStateOutput sets where the pipeline state goes in verbose mode.
func (b DriverBuilder) WithStateOutput(w io.Writer) DriverBuilder {
	b.stateOut = w
	return b
}

// Build creates a driver.
func (b DriverBuilder) Build(name string) (Driver, error) {
	cfg := config.Default()
	if b.cfg != nil {
		cfg = *b.cfg
	}

	out := b.out
	if out == nil {
		out = os.Stdout
	}

	stateOut := b.stateOut
	if stateOut == nil {
		stateOut = os.Stdout
	}

	platform, err := config.NewPlatformBuilder().
		WithConfig(cfg).
		WithEngine(b.engine).
		WithOutput(out).
		WithStateOutput(stateOut).
		Build(name)
	if err != nil {
		return nil, err
	}

	return &driverImpl{platform: platform}, nil
}
