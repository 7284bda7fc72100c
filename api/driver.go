// Package api defines the driver API that loads a program onto a simulated
// core and runs it to completion.
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/config"
	"github.com/sarchlab/pipesim/core"
	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
	"github.com/sarchlab/pipesim/program"
)

// ErrCycleLimit is returned by Run when the core used up its cycle budget
// before the program finished.
var ErrCycleLimit = errors.New("cycle limit reached")

// ErrNoProgram is returned by Run when nothing has been loaded.
var ErrNoProgram = errors.New("no program loaded")

// Driver provides the interface to control a simulated core.
type Driver interface {
	// Load copies the text and data segments of an image into memory and
	// points the core at the first instruction.
	Load(img *program.Image) error

	// SetRegister presets a register before the run.
	SetRegister(i uint8, value uint32)

	// Run ticks the core until the program has finished and the pipeline
	// has drained.
	Run() (Result, error)

	// Platform returns the engine, memory and core the driver runs.
	Platform() *config.Platform
}

// Result is the architectural state and the counters at the end of a run.
type Result struct {
	Policy    core.Policy
	Registers [instr.NumRegisters]uint32
	Stats     core.Stats
	Memory    memory.Stats
	Halted    bool
	ExitCode  int32
}

type driverImpl struct {
	platform *config.Platform
	loaded   bool
}

func (d *driverImpl) Platform() *config.Platform {
	return d.platform
}

func (d *driverImpl) Load(img *program.Image) error {
	if err := img.LoadInto(d.platform.Memory); err != nil {
		return err
	}

	d.platform.Core.LoadText(img.TextBase, img.TextSize())
	d.loaded = true

	slog.Debug("Program loaded",
		"Core", d.platform.Core.Name(),
		"Instructions", img.NumInstructions(),
		"DataBytes", len(img.Data),
	)

	return nil
}

func (d *driverImpl) SetRegister(i uint8, value uint32) {
	d.platform.Core.SetRegister(i, value)
}

func (d *driverImpl) Run() (Result, error) {
	if !d.loaded {
		return Result{}, ErrNoProgram
	}

	c := d.platform.Core
	engine := d.platform.Engine

	engine.Schedule(sim.MakeTickEvent(c, engine.CurrentTime()))

	if err := engine.Run(); err != nil {
		return Result{}, fmt.Errorf("engine: %w", err)
	}

	res := d.result()
	c.LogState()

	if !c.Done() {
		return res, fmt.Errorf("%w after %d cycles at pc 0x%08x",
			ErrCycleLimit, res.Stats.Cycles, c.PC())
	}

	return res, nil
}

func (d *driverImpl) result() Result {
	c := d.platform.Core

	return Result{
		Policy:    c.Predictor().Policy(),
		Registers: c.Registers().Values(),
		Stats:     c.Stats(),
		Memory:    d.platform.Memory.Stats(),
		Halted:    c.Halted(),
		ExitCode:  c.ExitCode(),
	}
}

// Simulate builds a platform from cfg, runs img on it and returns the
// result. System call output goes to out.
func Simulate(cfg config.Config, img *program.Image, out io.Writer) (Result, error) {
	d, err := DriverBuilder{}.
		WithConfig(cfg).
		WithOutput(out).
		Build("Sim")
	if err != nil {
		return Result{}, err
	}

	if err := d.Load(img); err != nil {
		return Result{}, err
	}

	return d.Run()
}
