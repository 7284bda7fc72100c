package core

import "github.com/sarchlab/akita/v4/sim"

// ForwardInfo describes a value bypassed into the decode output latch.
type ForwardInfo struct {
	Site  string
	Reg   uint8
	Value uint32
}

// executeForward hands the last ALU result to a waiting decoded instruction.
// Loads are skipped because their value is not known until the memory
// stage.
func (c *Core) executeForward() {
	if c.exs.busyCycles > 0 {
		return
	}

	w := &c.exs.right
	d := c.table.Lookup(w.Opcode)

	if d.MemRead != 0 || w.Rdest == 0 || !d.RegWrite {
		return
	}

	c.forward("ex", w.Rdest, w.ALUResult)
}

// memoryForward hands the memory stage result to a waiting decoded
// instruction unless the execute stage holds a younger writer of the same
// register.
func (c *Core) memoryForward() {
	w := &c.mys.right
	d := c.table.Lookup(w.Opcode)

	if w.Rdest == 0 || !d.RegWrite {
		return
	}

	if c.executeWrites(w.Rdest) {
		return
	}

	value := w.ALUResult
	if d.MemRead != 0 {
		value = w.MemData
	}

	c.forward("mem", w.Rdest, value)
}

func (c *Core) executeWrites(reg uint8) bool {
	r := &c.exs.right

	return r.Rdest == reg && c.table.Lookup(r.Opcode).RegWrite
}

func (c *Core) forward(site string, reg uint8, value uint32) {
	r := &c.ids.right

	if r.Rsrc1 == reg && !r.Rsrc1Ready {
		r.Rsrc1Val = value
		r.Rsrc1Ready = true
		c.noteForward(site+"1", reg, value)
	}

	if r.Rsrc2 == reg && !r.Rsrc2Ready {
		r.Rsrc2Val = value
		r.Rsrc2Ready = true
		c.noteForward(site+"2", reg, value)
	}
}

func (c *Core) noteForward(site string, reg uint8, value uint32) {
	c.stats.Forwards++

	Trace("Forward",
		"Behavior", "FORWARD"+site,
		"Cycle", c.stats.Cycles,
		"Reg", reg,
		"Value", value,
	)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosForward,
		Item:   ForwardInfo{Site: site, Reg: reg, Value: value},
	})
}
