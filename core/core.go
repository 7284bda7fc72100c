// Package core models a five-stage pipelined register machine. Each cycle
// runs write-back, memory, execute, decode and fetch in that order so that a
// stage sees whether its downstream neighbor has room before pushing into it.
package core

import (
	"io"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
)

// stageFlags are the two halves of the handshake between neighbors. IBF is
// set when the input latch holds work, OBF when the output latch has not
// been taken yet.
type stageFlags struct {
	IBF bool
	OBF bool
}

type fetchStage struct {
	stageFlags
	right FetchLatch
}

type decodeStage struct {
	stageFlags
	left  FetchLatch
	right DecodeLatch
}

type executeStage struct {
	stageFlags
	left       DecodeLatch
	right      ExecuteLatch
	busyCycles uint32
}

type memoryStage struct {
	stageFlags
	left  ExecuteLatch
	right MemoryLatch
}

type writeBackStage struct {
	stageFlags
	left MemoryLatch
}

// Core is a ticking component that runs one pipeline cycle per tick until
// the program has halted and the pipeline has drained.
type Core struct {
	*sim.TickingComponent

	table     instr.Table
	mem       memory.Memory
	regs      RegisterFile
	predictor *Predictor
	out       io.Writer
	stateOut  io.Writer
	verbose   bool

	pc         uint32
	textBase   uint32
	textEnd    uint32
	halted     bool
	exitCode   int32
	cycleLimit uint64

	ifs fetchStage
	ids decodeStage
	exs executeStage
	mys memoryStage
	wbs writeBackStage

	stats Stats
}

var _ instr.Machine = (*Core)(nil)

// Tick runs one cycle. It stops asking for ticks once the program is done
// or the cycle limit is reached.
func (c *Core) Tick() (madeProgress bool) {
	if c.Done() || c.LimitReached() {
		return false
	}

	c.Step()

	return !c.Done() && !c.LimitReached()
}

// Step advances the whole pipeline by one cycle.
func (c *Core) Step() {
	c.writeBackShift()
	c.writeBack()
	c.memoryForward()
	c.memoryShift()
	c.memoryAccess()
	c.executeForward()
	c.executeShift()
	c.execute()
	c.decodeShift()
	c.decode()
	c.fetch()

	c.stats.Cycles++

	if c.verbose {
		c.PrintState(c.stateOut)
	}
}

// LoadText marks [base, base+size) as the program text and points the PC at
// its first instruction. Fetch stops at the end of the text.
func (c *Core) LoadText(base, size uint32) {
	c.textBase = base
	c.textEnd = base + size
	c.pc = base
}

// Done reports whether no more instructions can be fetched and every latch
// holds a bubble.
func (c *Core) Done() bool {
	if !c.halted && c.inText(c.pc) {
		return false
	}

	return c.drained()
}

// LimitReached reports whether the configured cycle limit has been used up.
func (c *Core) LimitReached() bool {
	return c.cycleLimit > 0 && c.stats.Cycles >= c.cycleLimit
}

func (c *Core) inText(addr uint32) bool {
	return addr >= c.textBase && addr < c.textEnd
}

func (c *Core) drained() bool {
	return c.exs.busyCycles == 0 &&
		c.ifs.right.Opcode == instr.NOP &&
		c.ids.left.Opcode == instr.NOP &&
		c.ids.right.Opcode == instr.NOP &&
		c.exs.left.Opcode == instr.NOP &&
		c.exs.right.Opcode == instr.NOP &&
		c.mys.left.Opcode == instr.NOP &&
		c.mys.right.Opcode == instr.NOP
}

// Register returns the value of register i.
func (c *Core) Register(i uint8) uint32 {
	return c.regs.Read(i)
}

// SetRegister presets register i before a run.
func (c *Core) SetRegister(i uint8, value uint32) {
	c.regs.Write(i, value)
}

// Registers returns the register file.
func (c *Core) Registers() *RegisterFile {
	return &c.regs
}

// Memory returns the memory the core runs on.
func (c *Core) Memory() memory.Memory {
	return c.mem
}

// Output returns where system calls print to.
func (c *Core) Output() io.Writer {
	return c.out
}

// Halt stops fetch. Instructions already in flight still drain. Only the
// first exit code is kept.
func (c *Core) Halt(code int32) {
	if c.halted {
		return
	}

	c.halted = true
	c.exitCode = code

	Trace("Halt",
		"Behavior", "Halt",
		"Cycle", c.stats.Cycles,
		"Code", code,
	)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosHalt,
		Item:   code,
	})
}

// Halted reports whether an exit system call has retired.
func (c *Core) Halted() bool {
	return c.halted
}

// ExitCode returns the code passed to the exit system call.
func (c *Core) ExitCode() int32 {
	return c.exitCode
}

// PC returns the address fetch reads next.
func (c *Core) PC() uint32 {
	return c.pc
}

// Predictor returns the branch predictor state.
func (c *Core) Predictor() *Predictor {
	return c.predictor
}

// Stats returns the counters collected so far.
func (c *Core) Stats() Stats {
	return c.stats
}
