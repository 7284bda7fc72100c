// Package instr defines the instruction set of the pipelined register
// machine: the opcodes, the control signals each opcode drives through the
// pipeline, and the fixed 8-byte encoding of an instruction in memory.
package instr

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Opcode selects an instruction.
type Opcode uint8

// The instruction set. Opcode 0 doubles as the bubble the pipeline inserts
// when a stage has nothing to do.
const (
	NOP Opcode = iota
	ADDI
	BEQZ
	BGE
	BNE
	LA
	LB
	LI
	SUBI
	ADD
	SYSCALL
)

// NumOpcodes is the number of defined opcodes.
const NumOpcodes = 11

// SlotSize is the number of bytes each instruction occupies.
const SlotSize = 8

// NumRegisters is the size of the architectural register file.
const NumRegisters = 32

var mnemonics = [NumOpcodes]string{
	"nop", "addi", "beqz", "bge", "bne", "la", "lb", "li", "subi", "add",
	"syscall",
}

func (o Opcode) String() string {
	if int(o) < NumOpcodes {
		return mnemonics[o]
	}

	return fmt.Sprintf("op%d", uint8(o))
}

// ParseOpcode returns the opcode of a mnemonic.
func ParseOpcode(name string) (Opcode, bool) {
	name = strings.ToLower(name)
	for i, m := range mnemonics {
		if m == name {
			return Opcode(i), true
		}
	}

	return NOP, false
}

// Inst is a decoded instruction slot.
type Inst struct {
	Opcode    Opcode
	Rdest     uint8
	Rsrc1     uint8
	Rsrc2     uint8
	Immediate uint32
}

// PackOperands packs three 5-bit register fields into 16 bits. The
// destination takes the low bits.
func PackOperands(rdest, rsrc1, rsrc2 uint8) uint16 {
	return uint16(rdest)&0x1F |
		(uint16(rsrc1)<<5)&0x3E0 |
		(uint16(rsrc2)<<10)&0x7C00
}

// UnpackOperands is the inverse of PackOperands.
func UnpackOperands(packed uint16) (rdest, rsrc1, rsrc2 uint8) {
	rdest = uint8(packed & 0x1F)
	rsrc1 = uint8((packed >> 5) & 0x1F)
	rsrc2 = uint8((packed >> 10) & 0x1F)

	return rdest, rsrc1, rsrc2
}

// Encode lays out the instruction as opcode, packed operands and immediate,
// little-endian, padded to SlotSize.
func (i Inst) Encode() [SlotSize]byte {
	var slot [SlotSize]byte

	slot[0] = byte(i.Opcode)
	binary.LittleEndian.PutUint16(slot[1:3],
		PackOperands(i.Rdest, i.Rsrc1, i.Rsrc2))
	binary.LittleEndian.PutUint32(slot[3:7], i.Immediate)

	return slot
}

// Decode reads an instruction from the first SlotSize bytes of slot.
func Decode(slot []byte) Inst {
	if len(slot) < SlotSize {
		panic(fmt.Sprintf("instruction slot too short: %d bytes", len(slot)))
	}

	d, s1, s2 := UnpackOperands(binary.LittleEndian.Uint16(slot[1:3]))

	return Inst{
		Opcode:    Opcode(slot[0]),
		Rdest:     d,
		Rsrc1:     s1,
		Rsrc2:     s2,
		Immediate: binary.LittleEndian.Uint32(slot[3:7]),
	}
}

func (i Inst) String() string {
	imm := int32(i.Immediate)

	switch i.Opcode {
	case NOP, SYSCALL:
		return i.Opcode.String()
	case ADDI, SUBI:
		return fmt.Sprintf("%s $%d, $%d, %d", i.Opcode, i.Rdest, i.Rsrc1, imm)
	case ADD:
		return fmt.Sprintf("add $%d, $%d, $%d", i.Rdest, i.Rsrc1, i.Rsrc2)
	case BEQZ:
		if i.Rsrc1 == 0 {
			return fmt.Sprintf("b 0x%08x", i.Immediate)
		}

		return fmt.Sprintf("beqz $%d, 0x%08x", i.Rsrc1, i.Immediate)
	case BGE, BNE:
		return fmt.Sprintf("%s $%d, $%d, 0x%08x",
			i.Opcode, i.Rsrc1, i.Rsrc2, i.Immediate)
	case LA:
		return fmt.Sprintf("la $%d, 0x%08x", i.Rdest, i.Immediate)
	case LB:
		return fmt.Sprintf("lb $%d, %d($%d)", i.Rdest, imm, i.Rsrc1)
	case LI:
		return fmt.Sprintf("li $%d, %d", i.Rdest, imm)
	default:
		return fmt.Sprintf("%s %d, %d, %d, 0x%x",
			i.Opcode, i.Rdest, i.Rsrc1, i.Rsrc2, i.Immediate)
	}
}
