// Package verify provides debugging tools that check a program and the
// pipelined core against each other.
//
// It implements two complementary stages:
//
// 1. Static Lint (lint.go): fast checks over the assembled text segment
//   - STRUCT checks: undefined opcodes, branch targets that are misaligned
//     or outside the text, instructions that write the zero register
//   - CONTROL checks: programs that never reach an exit system call
//
// 2. Functional Simulator (funcsim.go): an unpipelined interpreter
//   - Executes one instruction per step with no latches, hazards or
//     prediction
//   - Uses the same instruction table and system calls as the core
//   - Gives the architectural state the pipeline has to end in, which
//     isolates pipeline bugs from program bugs
//
// GenerateReport (report.go) runs both stages and then runs the program on
// the pipelined core once per branch prediction policy, comparing registers,
// data memory, output and exit status with the functional reference.
package verify

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct  IssueType = "STRUCT"  // Malformed instruction or target
	IssueControl IssueType = "CONTROL" // Control flow that cannot terminate cleanly
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType      // STRUCT or CONTROL
	Slot    int            // Instruction index in the text, -1 if not applicable
	PC      uint32         // Address of the instruction
	Line    int            // Source line, 0 if unknown
	Message string         // Human-readable description
	Details map[string]any // Additional structured data
}
