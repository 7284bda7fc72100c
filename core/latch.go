package core

import "github.com/sarchlab/pipesim/instr"

// FetchLatch carries a fetched instruction and its prediction into decode.
type FetchLatch struct {
	instr.Inst
	PC         uint32
	RecoveryPC uint32
	Prediction Prediction
}

// Ready is always true. A fetched instruction has no operands to wait for.
func (l *FetchLatch) Ready() bool {
	return true
}

func (l *FetchLatch) reset() {
	*l = FetchLatch{}
}

// DecodeLatch carries a decoded instruction and its source values into
// execute.
type DecodeLatch struct {
	instr.Inst
	PC         uint32
	RecoveryPC uint32
	Prediction Prediction
	Rsrc1Val   uint32
	Rsrc2Val   uint32
	Rsrc1Ready bool
	Rsrc2Ready bool
}

// Ready reports whether both source values are known.
func (l *DecodeLatch) Ready() bool {
	return l.Rsrc1Ready && l.Rsrc2Ready
}

func (l *DecodeLatch) reset() {
	*l = DecodeLatch{Rsrc1Ready: true, Rsrc2Ready: true}
}

// ExecuteLatch carries the ALU result into the memory stage.
type ExecuteLatch struct {
	instr.Inst
	Rsrc1Val  uint32
	Rsrc2Val  uint32
	ALUResult uint32
}

// Ready is always true.
func (l *ExecuteLatch) Ready() bool {
	return true
}

func (l *ExecuteLatch) reset() {
	*l = ExecuteLatch{}
}

// MemoryLatch carries the values a write-back may store.
type MemoryLatch struct {
	instr.Inst
	Rsrc1Val  uint32
	Rsrc2Val  uint32
	ALUResult uint32
	MemData   uint32
}

// Ready is always true.
func (l *MemoryLatch) Ready() bool {
	return true
}

func (l *MemoryLatch) reset() {
	*l = MemoryLatch{}
}
