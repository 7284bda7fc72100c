package verify

import (
	"fmt"

	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/program"
)

var lintTable = instr.DefaultTable()

// RunLint performs static checks on the text segment of an image.
func RunLint(img *program.Image) []Issue {
	var issues []Issue

	insts := img.Instructions()

	for i, inst := range insts {
		issues = append(issues, lintInstruction(img, i, inst)...)
	}

	if !hasExit(insts) {
		issues = append(issues, Issue{
			Type:    IssueControl,
			Slot:    -1,
			Message: "no exit system call; the program can only end by running off its text",
		})
	}

	return issues
}

func lintInstruction(
	img *program.Image,
	i int,
	inst instr.Inst,
) []Issue {
	var issues []Issue

	newIssue := func(t IssueType, msg string, details map[string]any) {
		issues = append(issues, Issue{
			Type:    t,
			Slot:    i,
			PC:      img.AddressOf(i),
			Line:    img.Line(i),
			Message: msg,
			Details: details,
		})
	}

	if int(inst.Opcode) >= instr.NumOpcodes {
		newIssue(IssueStruct,
			fmt.Sprintf("undefined opcode %d executes as nop", uint8(inst.Opcode)),
			map[string]any{"opcode": uint8(inst.Opcode)})

		return issues
	}

	d := lintTable.Lookup(inst.Opcode)

	if d.RegWrite && inst.Rdest == 0 {
		newIssue(IssueStruct,
			fmt.Sprintf("%s writes $0, the result is discarded", inst.Opcode), nil)
	}

	if d.Branch {
		target := inst.Immediate

		switch {
		case (target-img.TextBase)%instr.SlotSize != 0:
			newIssue(IssueStruct,
				fmt.Sprintf("branch target 0x%08x is not on an instruction boundary", target),
				map[string]any{"target": target})
		case target < img.TextBase || target >= img.TextBase+img.TextSize():
			newIssue(IssueStruct,
				fmt.Sprintf("branch target 0x%08x is outside the text", target),
				map[string]any{"target": target})
		}
	}

	return issues
}

// hasExit looks for a syscall whose most recent straight-line write to the
// service register selects one of the exit services.
func hasExit(insts []instr.Inst) bool {
	var service uint32
	known := false

	for _, inst := range insts {
		switch {
		case inst.Opcode == instr.SYSCALL:
			if known && (service == instr.ServiceExit ||
				service == instr.ServiceExitCode) {
				return true
			}
		case inst.Opcode == instr.LI && inst.Rdest == instr.RegService:
			service = inst.Immediate
			known = true
		case lintTable.Lookup(inst.Opcode).RegWrite &&
			inst.Rdest == instr.RegService:
			known = false
		}
	}

	return false
}
