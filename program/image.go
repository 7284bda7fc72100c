// Package program turns assembly source into the text and data images the
// simulator loads, and reads and writes those images as files.
package program

import (
	"fmt"
	"os"

	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
)

// Image is an assembled program.
type Image struct {
	TextBase uint32
	DataBase uint32
	Text     []byte
	Data     []byte

	// Symbols maps labels to addresses. Lines maps each text slot to its
	// source line. Both are empty for images read from files.
	Symbols map[string]uint32
	Lines   []int
}

// Loader is a memory that can take a whole image at once.
type Loader interface {
	Load(base uint32, image []byte) error
}

// TextSize returns the number of text bytes.
func (img *Image) TextSize() uint32 {
	return uint32(len(img.Text))
}

// NumInstructions returns the number of text slots.
func (img *Image) NumInstructions() int {
	return len(img.Text) / instr.SlotSize
}

// Instruction decodes the text slot at index i.
func (img *Image) Instruction(i int) instr.Inst {
	return instr.Decode(img.Text[i*instr.SlotSize:])
}

// Instructions decodes all text slots.
func (img *Image) Instructions() []instr.Inst {
	insts := make([]instr.Inst, img.NumInstructions())
	for i := range insts {
		insts[i] = img.Instruction(i)
	}

	return insts
}

// AddressOf returns the address of text slot i.
func (img *Image) AddressOf(i int) uint32 {
	return img.TextBase + uint32(i)*instr.SlotSize
}

// Line returns the source line of text slot i, or 0 when unknown.
func (img *Image) Line(i int) int {
	if i < 0 || i >= len(img.Lines) {
		return 0
	}

	return img.Lines[i]
}

// LoadInto copies both segments into memory.
func (img *Image) LoadInto(l Loader) error {
	if err := l.Load(img.TextBase, img.Text); err != nil {
		return fmt.Errorf("loading text: %w", err)
	}

	if err := l.Load(img.DataBase, img.Data); err != nil {
		return fmt.Errorf("loading data: %w", err)
	}

	return nil
}

// WriteFiles stores the text and data segments as raw binary files.
func (img *Image) WriteFiles(textPath, dataPath string) error {
	if err := os.WriteFile(textPath, img.Text, 0o644); err != nil {
		return fmt.Errorf("writing text: %w", err)
	}

	if err := os.WriteFile(dataPath, img.Data, 0o644); err != nil {
		return fmt.Errorf("writing data: %w", err)
	}

	return nil
}

// ReadImage reads raw segment files at the default segment bases. The data
// file is optional.
func ReadImage(textPath, dataPath string) (*Image, error) {
	text, err := os.ReadFile(textPath)
	if err != nil {
		return nil, fmt.Errorf("reading text: %w", err)
	}

	if len(text)%instr.SlotSize != 0 {
		return nil, fmt.Errorf("text %s is %d bytes, not a multiple of %d",
			textPath, len(text), instr.SlotSize)
	}

	img := &Image{
		TextBase: memory.TextSegment,
		DataBase: memory.DataSegment,
		Text:     text,
		Symbols:  map[string]uint32{},
	}

	if dataPath == "" {
		return img, nil
	}

	img.Data, err = os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	return img, nil
}
