// Command rasm assembles a source file into raw text and data segment
// images that rsim can load.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/pipesim/program"
	"github.com/tebeka/atexit"
)

var (
	sourceFlag = flag.String("f", "", "assembly source file")
	textFlag   = flag.String("t", "", "text segment output (default: source with extension .t)")
	dataFlag   = flag.String("d", "", "data segment output (default: source with extension .d)")
	listFlag   = flag.Bool("list", false, "print the assembled instructions")
)

func main() {
	flag.Parse()

	if *sourceFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: rasm -f source.asm [-t text] [-d data] [-list]")
		atexit.Exit(2)
	}

	img, err := program.AssembleFile(*sourceFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	textPath := *textFlag
	if textPath == "" {
		textPath = withExt(*sourceFlag, ".t")
	}

	dataPath := *dataFlag
	if dataPath == "" {
		dataPath = withExt(*sourceFlag, ".d")
	}

	if err := img.WriteFiles(textPath, dataPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	if *listFlag {
		printListing(img)
	}

	fmt.Printf("%d instructions, %d data bytes -> %s, %s\n",
		img.NumInstructions(), len(img.Data), textPath, dataPath)

	atexit.Exit(0)
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func printListing(img *program.Image) {
	t := table.NewWriter()
	t.SetTitle("Text")
	t.AppendHeader(table.Row{"Address", "Line", "Instruction"})

	for i, inst := range img.Instructions() {
		line := ""
		if l := img.Line(i); l > 0 {
			line = fmt.Sprint(l)
		}

		t.AppendRow(table.Row{fmt.Sprintf("0x%08x", img.AddressOf(i)), line, inst})
	}

	fmt.Println(t.Render())
}
