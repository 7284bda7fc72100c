package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
)

func (c *Core) fetch() {
	s := &c.ifs
	if s.OBF {
		return
	}

	s.IBF = false
	s.OBF = true

	if c.halted || !c.inText(c.pc) {
		s.right.reset()
		return
	}

	pc := c.pc
	d, s1, s2 := instr.UnpackOperands(memory.Get[uint16](c.mem, pc+1))

	s.right = FetchLatch{
		Inst: instr.Inst{
			Opcode:    instr.Opcode(memory.Get[uint8](c.mem, pc)),
			Rdest:     d,
			Rsrc1:     s1,
			Rsrc2:     s2,
			Immediate: memory.Get[uint32](c.mem, pc+3),
		},
		PC:         pc,
		RecoveryPC: pc + instr.SlotSize,
	}

	c.pc = pc + instr.SlotSize

	if !c.table.Lookup(s.right.Opcode).Branch {
		return
	}

	s.right.Prediction = c.predictor.Predict(pc)
	if s.right.Prediction.Taken {
		c.pc = s.right.Immediate
	}
}

func (c *Core) decodeShift() {
	s := &c.ids
	if s.IBF || s.OBF || !s.right.Ready() {
		return
	}

	if c.ifs.OBF && c.ifs.right.Ready() {
		s.left = c.ifs.right
		c.ifs.OBF = false
	} else {
		s.left.reset()
	}

	s.IBF = true
}

func (c *Core) decode() {
	s := &c.ids
	if !s.IBF || s.OBF {
		return
	}

	s.IBF = false

	l := &s.left
	s.right = DecodeLatch{
		Inst:       l.Inst,
		PC:         l.PC,
		RecoveryPC: l.RecoveryPC,
		Prediction: l.Prediction,
		Rsrc1Val:   c.regs.Read(l.Rsrc1),
		Rsrc2Val:   c.regs.Read(l.Rsrc2),
		Rsrc1Ready: !c.regs.Locked(l.Rsrc1),
		Rsrc2Ready: !c.regs.Locked(l.Rsrc2),
	}

	if l.Rdest != 0 && c.table.Lookup(l.Opcode).RegWrite {
		c.regs.lock(l.Rdest)
	}

	s.OBF = true
}

func (c *Core) executeShift() {
	s := &c.exs
	if s.IBF || s.OBF || !s.right.Ready() {
		return
	}

	switch {
	case c.ids.OBF && c.ids.right.Ready():
		s.left = c.ids.right
		c.ids.OBF = false
	case c.ids.OBF:
		s.left.reset()
		c.stats.Stalls++
	default:
		s.left.reset()
	}

	s.IBF = true
}

func (c *Core) execute() {
	s := &c.exs
	if !s.IBF || s.OBF {
		return
	}

	l := &s.left
	d := c.table.Lookup(l.Opcode)

	if s.busyCycles == 0 {
		s.right = ExecuteLatch{
			Inst:     l.Inst,
			Rsrc1Val: l.Rsrc1Val,
			Rsrc2Val: l.Rsrc2Val,
		}
		s.busyCycles = max(d.ExeCycles, 1)
	}

	s.busyCycles--
	if s.busyCycles > 0 {
		return
	}

	s.IBF = false

	var param uint32

	switch d.ALUSrc {
	case instr.SrcRsrc2:
		param = l.Rsrc2Val
	case instr.SrcImmediate:
		param = l.Immediate
	case instr.SrcAddress:
		param = l.Immediate + l.Rsrc1Val
	}

	if d.Branch {
		c.resolveBranch(l)
	}

	s.right.ALUResult = alu(d.ALUOp, l.Rsrc1Val, param)
	s.OBF = true
}

func alu(op instr.ALUOp, value, param uint32) uint32 {
	a, b := int32(value), int32(param)

	switch op {
	case instr.ALUAdd:
		return uint32(a + b)
	case instr.ALUSub:
		return uint32(a - b)
	default:
		return param
	}
}

func branchTaken(l *DecodeLatch) bool {
	a, b := int32(l.Rsrc1Val), int32(l.Rsrc2Val)

	switch l.Opcode {
	case instr.BEQZ:
		return a == 0
	case instr.BGE:
		return a >= b
	case instr.BNE:
		return a != b
	default:
		return false
	}
}

// MispredictInfo describes a branch whose direction fetch guessed wrong.
type MispredictInfo struct {
	PC     uint32
	Taken  bool
	Target uint32
}

func (c *Core) resolveBranch(l *DecodeLatch) {
	taken := branchTaken(l)

	behavior := "nottaken"
	if taken {
		behavior = "taken"
	}

	Trace("Branch",
		"Behavior", behavior,
		"Cycle", c.stats.Cycles,
		"PC", fmt.Sprintf("0x%08x", l.PC),
		"Rsrc1", int32(l.Rsrc1Val),
		"Rsrc2", int32(l.Rsrc2Val),
	)

	if !c.predictor.Resolve(l.Prediction, taken) {
		c.stats.BPHits++
		return
	}

	c.stats.BPMisses++
	c.flush()

	if taken {
		c.pc = l.Immediate
	} else {
		c.pc = l.RecoveryPC
	}

	Trace("Branch",
		"Behavior", "MISPREDICT",
		"Cycle", c.stats.Cycles,
		"PC", fmt.Sprintf("0x%08x", l.PC),
		"Redirect", fmt.Sprintf("0x%08x", c.pc),
	)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosMispredict,
		Item:   MispredictInfo{PC: l.PC, Taken: taken, Target: c.pc},
	})
}

// flush discards the work of fetch and decode, releasing the destination
// lock of a decoded instruction that execute has not taken yet.
func (c *Core) flush() {
	if c.ifs.OBF && c.ifs.right.Opcode != instr.NOP {
		c.stats.Squashed++
	}

	c.ifs.right.reset()

	if c.ids.OBF {
		r := &c.ids.right
		if r.Rdest != 0 && c.table.Lookup(r.Opcode).RegWrite {
			c.regs.unlock(r.Rdest)
		}

		if r.Opcode != instr.NOP {
			c.stats.Squashed++
		}
	}

	c.ids.left.reset()
	c.ids.right.reset()
}

func (c *Core) memoryShift() {
	s := &c.mys
	if s.IBF || s.OBF || !s.right.Ready() {
		return
	}

	if c.exs.OBF && c.exs.right.Ready() {
		s.left = c.exs.right
		c.exs.OBF = false
	} else {
		s.left.reset()
	}

	s.IBF = true
}

func (c *Core) memoryAccess() {
	s := &c.mys
	if !s.IBF || s.OBF {
		return
	}

	s.IBF = false

	l := &s.left
	d := c.table.Lookup(l.Opcode)

	s.right = MemoryLatch{
		Inst:      l.Inst,
		Rsrc1Val:  l.Rsrc1Val,
		Rsrc2Val:  l.Rsrc2Val,
		ALUResult: l.ALUResult,
	}

	switch {
	case d.MemRead != 0:
		s.right.MemData = load(c.mem, l.ALUResult, d.MemRead)
	case d.MemWrite != 0:
		store(c.mem, l.ALUResult, d.MemWrite, l.Rsrc2Val)
	}

	s.OBF = true
}

func load(m memory.Memory, addr uint32, width uint8) uint32 {
	switch width {
	case 1:
		return uint32(memory.Get[uint8](m, addr))
	case 2:
		return uint32(memory.Get[uint16](m, addr))
	case 4:
		return memory.Get[uint32](m, addr)
	default:
		panic(fmt.Sprintf("unsupported load width %d", width))
	}
}

func store(m memory.Memory, addr uint32, width uint8, value uint32) {
	switch width {
	case 1:
		memory.Set(m, addr, uint8(value))
	case 2:
		memory.Set(m, addr, uint16(value))
	case 4:
		memory.Set(m, addr, value)
	default:
		panic(fmt.Sprintf("unsupported store width %d", width))
	}
}

func (c *Core) writeBackShift() {
	s := &c.wbs
	if s.IBF {
		return
	}

	if c.mys.OBF && c.mys.right.Ready() {
		s.left = c.mys.right
		c.mys.OBF = false
	} else {
		s.left.reset()
	}

	s.IBF = true
}

func (c *Core) writeBack() {
	s := &c.wbs
	if !s.IBF {
		return
	}

	s.IBF = false

	l := &s.left
	d := c.table.Lookup(l.Opcode)

	if d.SpecialCase != nil {
		d.SpecialCase(c)
	}

	if d.RegWrite {
		value := l.ALUResult
		if d.MemToReg {
			value = l.MemData
		}

		c.regs.Write(l.Rdest, value)

		if l.Rdest != 0 {
			c.regs.unlock(l.Rdest)
		}
	}

	if l.Opcode == instr.NOP {
		return
	}

	c.stats.Retired++

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosRetire,
		Item:   l.Inst,
	})
}
