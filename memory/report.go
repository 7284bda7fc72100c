package memory

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteStats renders the access counters by width.
func WriteStats(w io.Writer, s Stats) {
	t := table.NewWriter()
	t.SetTitle("Memory")
	t.AppendHeader(table.Row{"Width", "Reads", "Writes"})
	t.AppendRows([]table.Row{
		{"byte", s.ByteReads, s.ByteWrites},
		{"half", s.HalfReads, s.HalfWrites},
		{"word", s.WordReads, s.WordWrites},
	})
	t.AppendFooter(table.Row{"total", s.Reads(), s.Writes()})

	fmt.Fprintln(w, t.Render())
}
