package instr

import "fmt"

// ALUOp selects what the ALU does with the first source and the selected
// parameter.
type ALUOp uint8

// ALU operations.
const (
	ALUPass ALUOp = iota
	ALUAdd
	ALUSub
)

// ALUSrc selects the ALU parameter.
type ALUSrc uint8

// ALU parameter sources.
const (
	SrcRsrc2 ALUSrc = iota
	SrcImmediate
	SrcAddress
)

// SpecialCase is run at write-back with access to the whole machine.
type SpecialCase func(m Machine)

// Descriptor holds the control signals of one opcode. Memory widths are in
// bytes, 0 meaning no access.
type Descriptor struct {
	ALUOp       ALUOp
	ALUSrc      ALUSrc
	MemRead     uint8
	MemWrite    uint8
	RegWrite    bool
	MemToReg    bool
	Branch      bool
	ExeCycles   uint32
	SpecialCase SpecialCase
}

// Table maps opcodes to descriptors.
type Table struct {
	entries [NumOpcodes]Descriptor
}

var nopDescriptor = Descriptor{ExeCycles: 1}

// DefaultTable returns the descriptors of the instruction set with every
// instruction taking a single execute cycle.
func DefaultTable() Table {
	t := Table{}

	t.entries[NOP] = nopDescriptor
	t.entries[ADDI] = Descriptor{
		ALUOp: ALUAdd, ALUSrc: SrcImmediate, RegWrite: true, ExeCycles: 1,
	}
	t.entries[BEQZ] = Descriptor{Branch: true, ExeCycles: 1}
	t.entries[BGE] = Descriptor{Branch: true, ExeCycles: 1}
	t.entries[BNE] = Descriptor{Branch: true, ExeCycles: 1}
	t.entries[LA] = Descriptor{
		ALUOp: ALUPass, ALUSrc: SrcImmediate, RegWrite: true, ExeCycles: 1,
	}
	t.entries[LB] = Descriptor{
		ALUOp: ALUPass, ALUSrc: SrcAddress, MemRead: 1,
		RegWrite: true, MemToReg: true, ExeCycles: 1,
	}
	t.entries[LI] = Descriptor{
		ALUOp: ALUPass, ALUSrc: SrcImmediate, RegWrite: true, ExeCycles: 1,
	}
	t.entries[SUBI] = Descriptor{
		ALUOp: ALUSub, ALUSrc: SrcImmediate, RegWrite: true, ExeCycles: 1,
	}
	t.entries[ADD] = Descriptor{
		ALUOp: ALUAdd, ALUSrc: SrcRsrc2, RegWrite: true, ExeCycles: 1,
	}
	t.entries[SYSCALL] = Descriptor{ExeCycles: 1, SpecialCase: Syscall}

	return t
}

// Lookup returns the descriptor of op. Undefined opcodes behave as NOP.
func (t *Table) Lookup(op Opcode) *Descriptor {
	if int(op) >= NumOpcodes {
		return &nopDescriptor
	}

	return &t.entries[op]
}

// WithLatency returns a copy of the table where op takes the given number of
// execute cycles. Latencies below 1 are raised to 1.
func (t Table) WithLatency(op Opcode, cycles uint32) Table {
	if int(op) >= NumOpcodes {
		panic(fmt.Sprintf("cannot set latency of undefined opcode %d", op))
	}

	if cycles < 1 {
		cycles = 1
	}

	t.entries[op].ExeCycles = cycles

	return t
}

// WithSpecialCase returns a copy of the table where op runs fn at
// write-back.
func (t Table) WithSpecialCase(op Opcode, fn SpecialCase) Table {
	if int(op) >= NumOpcodes {
		panic(fmt.Sprintf("cannot set special case of undefined opcode %d", op))
	}

	t.entries[op].SpecialCase = fn

	return t
}

// WithDescriptor returns a copy of the table where op is controlled by d.
func (t Table) WithDescriptor(op Opcode, d Descriptor) Table {
	if int(op) >= NumOpcodes {
		panic(fmt.Sprintf("cannot redefine undefined opcode %d", op))
	}

	t.entries[op] = d

	return t
}
