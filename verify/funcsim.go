package verify

import (
	"fmt"
	"io"

	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
	"github.com/sarchlab/pipesim/program"
)

// FunctionalSimulator executes a program one instruction at a time without
// any pipeline timing.
type FunctionalSimulator struct {
	table    instr.Table
	mem      *memory.Storage
	regs     [instr.NumRegisters]uint32
	out      io.Writer
	pc       uint32
	textBase uint32
	textEnd  uint32
	halted   bool
	exitCode int32
	steps    uint64

	TraceInst func(pc uint32, inst instr.Inst)
}

var _ instr.Machine = (*FunctionalSimulator)(nil)

// NewFunctionalSimulator loads img into a fresh memory. System call output
// goes to out.
func NewFunctionalSimulator(
	img *program.Image,
	table instr.Table,
	out io.Writer,
) (*FunctionalSimulator, error) {
	fs := &FunctionalSimulator{
		table:    table,
		mem:      memory.NewStorage(),
		out:      out,
		pc:       img.TextBase,
		textBase: img.TextBase,
		textEnd:  img.TextBase + img.TextSize(),
	}

	if err := img.LoadInto(fs.mem); err != nil {
		return nil, err
	}

	return fs, nil
}

// Done reports whether the program has exited or run past its text.
func (fs *FunctionalSimulator) Done() bool {
	return fs.halted || fs.pc < fs.textBase || fs.pc >= fs.textEnd
}

// Run steps until the program is done. It fails if that takes more than
// maxSteps instructions.
func (fs *FunctionalSimulator) Run(maxSteps int) error {
	for !fs.Done() {
		if fs.steps >= uint64(maxSteps) {
			return fmt.Errorf("program did not finish within %d steps (pc 0x%08x)",
				maxSteps, fs.pc)
		}

		fs.Step()
	}

	return nil
}

// Step executes the instruction at the PC.
func (fs *FunctionalSimulator) Step() {
	if fs.Done() {
		return
	}

	inst := instr.Decode(fs.mem.Read(fs.pc, instr.SlotSize))
	d := fs.table.Lookup(inst.Opcode)

	if fs.TraceInst != nil {
		fs.TraceInst(fs.pc, inst)
	}

	value := fs.Register(inst.Rsrc1)
	other := fs.Register(inst.Rsrc2)
	next := fs.pc + instr.SlotSize

	var param uint32

	switch d.ALUSrc {
	case instr.SrcRsrc2:
		param = other
	case instr.SrcImmediate:
		param = inst.Immediate
	case instr.SrcAddress:
		param = inst.Immediate + value
	}

	result := evaluate(d.ALUOp, value, param)

	if d.Branch && branches(inst.Opcode, value, other) {
		next = inst.Immediate
	}

	if d.MemRead != 0 {
		result = fs.load(result, d.MemRead)
	} else if d.MemWrite != 0 {
		fs.store(result, d.MemWrite, other)
	}

	if d.SpecialCase != nil {
		d.SpecialCase(fs)
	}

	if d.RegWrite && inst.Rdest != 0 {
		fs.regs[inst.Rdest] = result
	}

	fs.pc = next
	fs.steps++
}

func evaluate(op instr.ALUOp, value, param uint32) uint32 {
	switch op {
	case instr.ALUAdd:
		return uint32(int32(value) + int32(param))
	case instr.ALUSub:
		return uint32(int32(value) - int32(param))
	default:
		return param
	}
}

func branches(op instr.Opcode, a, b uint32) bool {
	switch op {
	case instr.BEQZ:
		return a == 0
	case instr.BGE:
		return int32(a) >= int32(b)
	case instr.BNE:
		return a != b
	default:
		return false
	}
}

func (fs *FunctionalSimulator) load(addr uint32, width uint8) uint32 {
	switch width {
	case 1:
		return uint32(memory.Get[uint8](fs.mem, addr))
	case 2:
		return uint32(memory.Get[uint16](fs.mem, addr))
	case 4:
		return memory.Get[uint32](fs.mem, addr)
	default:
		panic(fmt.Sprintf("unsupported load width %d", width))
	}
}

func (fs *FunctionalSimulator) store(addr uint32, width uint8, value uint32) {
	switch width {
	case 1:
		memory.Set(fs.mem, addr, uint8(value))
	case 2:
		memory.Set(fs.mem, addr, uint16(value))
	case 4:
		memory.Set(fs.mem, addr, value)
	default:
		panic(fmt.Sprintf("unsupported store width %d", width))
	}
}

// Register returns the value of register i.
func (fs *FunctionalSimulator) Register(i uint8) uint32 {
	if i == 0 || int(i) >= instr.NumRegisters {
		return 0
	}

	return fs.regs[i]
}

// SetRegister presets register i before a run.
func (fs *FunctionalSimulator) SetRegister(i uint8, value uint32) {
	if i == 0 || int(i) >= instr.NumRegisters {
		return
	}

	fs.regs[i] = value
}

// Registers returns a copy of the register file.
func (fs *FunctionalSimulator) Registers() [instr.NumRegisters]uint32 {
	return fs.regs
}

// Memory returns the memory the program runs on.
func (fs *FunctionalSimulator) Memory() memory.Memory {
	return fs.mem
}

// Output returns where system calls print to.
func (fs *FunctionalSimulator) Output() io.Writer {
	return fs.out
}

// Halt stops the program. Only the first exit code is kept.
func (fs *FunctionalSimulator) Halt(code int32) {
	if fs.halted {
		return
	}

	fs.halted = true
	fs.exitCode = code
}

// Halted reports whether the program called exit.
func (fs *FunctionalSimulator) Halted() bool {
	return fs.halted
}

// ExitCode returns the code passed to exit.
func (fs *FunctionalSimulator) ExitCode() int32 {
	return fs.exitCode
}

// PC returns the address of the next instruction.
func (fs *FunctionalSimulator) PC() uint32 {
	return fs.pc
}

// Steps returns the number of instructions executed.
func (fs *FunctionalSimulator) Steps() uint64 {
	return fs.steps
}
