package core

import (
	"fmt"

	"github.com/sarchlab/pipesim/instr"
)

// Register is an architectural register together with the number of
// in-flight instructions that will write it.
type Register struct {
	Value uint32
	Locks uint32
}

// RegisterFile holds the architectural registers. Register 0 always reads
// as zero.
type RegisterFile struct {
	regs [instr.NumRegisters]Register
}

// Read returns the value of register i.
func (f *RegisterFile) Read(i uint8) uint32 {
	if i == 0 {
		return 0
	}

	return f.regs[i].Value
}

// Write sets register i. Writes to register 0 are discarded.
func (f *RegisterFile) Write(i uint8, value uint32) {
	f.regs[i].Value = value
	f.regs[0].Value = 0
}

// Locked reports whether a pending write makes register i unsafe to read.
func (f *RegisterFile) Locked(i uint8) bool {
	return i != 0 && f.regs[i].Locks > 0
}

// Locks returns the number of pending writes to register i.
func (f *RegisterFile) Locks(i uint8) uint32 {
	return f.regs[i].Locks
}

func (f *RegisterFile) lock(i uint8) {
	f.regs[i].Locks++
}

func (f *RegisterFile) unlock(i uint8) {
	if f.regs[i].Locks == 0 {
		panic(fmt.Sprintf("register $%d released without a pending write", i))
	}

	f.regs[i].Locks--
}

// Values returns a copy of all register values.
func (f *RegisterFile) Values() [instr.NumRegisters]uint32 {
	var values [instr.NumRegisters]uint32

	for i := range f.regs {
		values[i] = f.Read(uint8(i))
	}

	return values
}
