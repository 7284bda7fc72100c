package core

import (
	"io"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
)

// Builder can create new cores.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	mem        memory.Memory
	table      instr.Table
	policy     Policy
	out        io.Writer
	stateOut   io.Writer
	verbose    bool
	cycleLimit uint64
}

// NewBuilder returns a builder for a 1 GHz core with the default instruction
// table and the always-not-taken predictor.
func NewBuilder() Builder {
	return Builder{
		freq:     1 * sim.GHz,
		table:    instr.DefaultTable(),
		policy:   AlwaysNotTaken,
		out:      os.Stdout,
		stateOut: os.Stdout,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMemory sets the memory the core fetches from and loads from.
func (b Builder) WithMemory(m memory.Memory) Builder {
	b.mem = m
	return b
}

// WithTable replaces the instruction descriptor table.
func (b Builder) WithTable(t instr.Table) Builder {
	b.table = t
	return b
}

// WithPolicy sets the branch prediction policy.
func (b Builder) WithPolicy(p Policy) Builder {
	b.policy = p
	return b
}

// WithOutput sets where system calls print to.
func (b Builder) WithOutput(w io.Writer) Builder {
	b.out = w
	return b
}

// WithVerbose prints the pipeline state to w after every cycle.
func (b Builder) WithVerbose(verbose bool, w io.Writer) Builder {
	b.verbose = verbose
	if w != nil {
		b.stateOut = w
	}

	return b
}

// WithCycleLimit stops ticking after n cycles. Zero means no limit.
func (b Builder) WithCycleLimit(n uint64) Builder {
	b.cycleLimit = n
	return b
}

// Build creates a core.
func (b Builder) Build(name string) *Core {
	if b.mem == nil {
		panic("core needs a memory")
	}

	c := &Core{
		table:      b.table,
		mem:        b.mem,
		predictor:  NewPredictor(b.policy),
		out:        b.out,
		stateOut:   b.stateOut,
		verbose:    b.verbose,
		cycleLimit: b.cycleLimit,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.ids.right.reset()
	c.exs.left.reset()

	return c
}
