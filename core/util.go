package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/pipesim/instr"
)

const (
	LevelTrace slog.Level = slog.LevelInfo + 1
)

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// PrintState renders the stage latches and the register file.
func (c *Core) PrintState(w io.Writer) {
	fmt.Fprintf(w, "==============State@cycle %d PC 0x%08x==============\n",
		c.stats.Cycles, c.pc)

	stageTable := table.NewWriter()
	stageTable.SetTitle("Pipeline")
	stageTable.AppendHeader(table.Row{"Stage", "IBF", "OBF", "Left", "Right", "Note"})

	stageTable.AppendRow(table.Row{
		"IF", c.ifs.IBF, c.ifs.OBF, "", c.ifs.right.Inst, predictionNote(&c.ifs.right),
	})
	stageTable.AppendRow(table.Row{
		"ID", c.ids.IBF, c.ids.OBF, c.ids.left.Inst, c.ids.right.Inst,
		fmt.Sprintf("ready %t/%t", c.ids.right.Rsrc1Ready, c.ids.right.Rsrc2Ready),
	})
	stageTable.AppendRow(table.Row{
		"EX", c.exs.IBF, c.exs.OBF, c.exs.left.Inst, c.exs.right.Inst,
		fmt.Sprintf("busy %d alu 0x%08x", c.exs.busyCycles, c.exs.right.ALUResult),
	})
	stageTable.AppendRow(table.Row{
		"MEM", c.mys.IBF, c.mys.OBF, c.mys.left.Inst, c.mys.right.Inst,
		fmt.Sprintf("data 0x%08x", c.mys.right.MemData),
	})
	stageTable.AppendRow(table.Row{
		"WB", c.wbs.IBF, c.wbs.OBF, c.wbs.left.Inst, "", "",
	})

	fmt.Fprintln(w, stageTable.Render())

	WriteRegisters(w, &c.regs)
}

func predictionNote(l *FetchLatch) string {
	if l.Opcode == instr.NOP {
		return ""
	}

	if l.Prediction.Taken {
		return fmt.Sprintf("predict taken, recover 0x%08x", l.RecoveryPC)
	}

	return ""
}

// WriteRegisters renders the register file in 4 rows of 8, marking locked
// registers with an asterisk.
func WriteRegisters(w io.Writer, regs *RegisterFile) {
	regTable := table.NewWriter()
	regTable.SetTitle("Registers")
	regTable.AppendHeader(table.Row{"", "+0", "+1", "+2", "+3", "+4", "+5", "+6", "+7"})

	for row := 0; row < instr.NumRegisters/8; row++ {
		regRow := table.Row{fmt.Sprintf("$%d", row*8)}

		for col := 0; col < 8; col++ {
			i := uint8(row*8 + col)
			cell := fmt.Sprintf("%d", int32(regs.Read(i)))

			if regs.Locked(i) {
				cell += "*"
			}

			regRow = append(regRow, cell)
		}

		regTable.AppendRow(regRow)
	}

	fmt.Fprintln(w, regTable.Render())
}

// WriteStats renders the run counters.
func WriteStats(w io.Writer, s Stats) {
	t := table.NewWriter()
	t.SetTitle("Statistics")
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"Cycles", s.Cycles},
		{"Retired", s.Retired},
		{"CPI", fmt.Sprintf("%.3f", s.CPI())},
		{"BP hits", s.BPHits},
		{"BP misses", s.BPMisses},
		{"BP accuracy", fmt.Sprintf("%.2f%%", 100*s.Accuracy())},
		{"Stalls", s.Stalls},
		{"Forwards", s.Forwards},
		{"Squashed", s.Squashed},
	})

	fmt.Fprintln(w, t.Render())
}

// LogState records a checkpoint of the architectural state at debug level.
func (c *Core) LogState() {
	slog.Debug("StateCheckpoint",
		"Name", c.Name(),
		"Cycle", c.stats.Cycles,
		"PC", c.pc,
		"Halted", c.halted,
		"Registers", c.regs.Values(),
	)
}
