package program

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
)

// Errors reported by the assembler, wrapped in a SyntaxError.
var (
	ErrUnknownMnemonic = errors.New("unknown instruction")
	ErrUnknownLabel    = errors.New("label used but not defined")
	ErrDuplicateLabel  = errors.New("label defined twice")
	ErrBadOperand      = errors.New("invalid operand")
	ErrWrongSection    = errors.New("statement in the wrong section")
)

// SyntaxError locates an assembly error in the source.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// DrainSlots is the number of nop slots appended to the text.
const DrainSlots = 5

type section int

const (
	textSection section = iota
	dataSection
)

type statement struct {
	line   int
	sec    section
	labels []string
	op     string
	args   []string
	offset uint32
}

var (
	labelRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*:\s*(.*)$`)
	memRe   = regexp.MustCompile(`^([^()]*)\(\s*([$A-Za-z0-9_]+)\s*\)$`)
)

type assembler struct {
	textBase uint32
	dataBase uint32
	stmts    []*statement
	symbols  map[string]uint32
}

// AssembleFile assembles a source file.
func AssembleFile(path string) (*Image, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	img, err := Assemble(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return img, nil
}

// Assemble translates source into an image placed at the default segment
// bases.
func Assemble(src string) (*Image, error) {
	a := &assembler{
		textBase: memory.TextSegment,
		dataBase: memory.DataSegment,
		symbols:  map[string]uint32{},
	}

	if err := a.parse(src); err != nil {
		return nil, err
	}

	if err := a.layout(); err != nil {
		return nil, err
	}

	return a.emit()
}

func (a *assembler) parse(src string) error {
	sec := textSection

	for n, raw := range strings.Split(src, "\n") {
		st := &statement{line: n + 1, sec: sec}
		text := strings.TrimSpace(stripComment(raw))

		for {
			m := labelRe.FindStringSubmatch(text)
			if m == nil {
				break
			}

			st.labels = append(st.labels, m[1])
			text = strings.TrimSpace(m[2])
		}

		if text == "" {
			if len(st.labels) > 0 {
				a.stmts = append(a.stmts, st)
			}

			continue
		}

		op, rest := text, ""
		if i := strings.IndexAny(text, " \t"); i >= 0 {
			op, rest = text[:i], text[i+1:]
		}

		st.op = strings.ToLower(op)
		st.args = splitArgs(rest)

		switch st.op {
		case ".text":
			sec = textSection
			st.op = ""
		case ".data":
			sec = dataSection
			st.op = ""
		case ".globl", ".global", ".align":
			st.op = ""
		}

		if st.op != "" || len(st.labels) > 0 {
			a.stmts = append(a.stmts, st)
		}
	}

	return nil
}

func stripComment(line string) string {
	inString := false

	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && inString:
			i++
		case c == '"':
			inString = !inString
		case (c == '#' || c == ';') && !inString:
			return line[:i]
		}
	}

	return line
}

func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var (
		args     []string
		start    int
		inString bool
	)

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && inString:
			i++
		case c == '"':
			inString = !inString
		case c == ',' && !inString:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}

	return append(args, strings.TrimSpace(s[start:]))
}

func (a *assembler) layout() error {
	var offsets [2]uint32

	for _, st := range a.stmts {
		st.offset = offsets[st.sec]

		base := a.textBase
		if st.sec == dataSection {
			base = a.dataBase
		}

		for _, l := range st.labels {
			if _, ok := a.symbols[l]; ok {
				return &SyntaxError{st.line, fmt.Errorf("%w: %s", ErrDuplicateLabel, l)}
			}

			a.symbols[l] = base + st.offset
		}

		size, err := a.size(st)
		if err != nil {
			return &SyntaxError{st.line, err}
		}

		offsets[st.sec] += size
	}

	return nil
}

func (a *assembler) size(st *statement) (uint32, error) {
	if st.op == "" {
		return 0, nil
	}

	if !strings.HasPrefix(st.op, ".") {
		if st.sec != textSection {
			return 0, fmt.Errorf("%w: %s outside .text", ErrWrongSection, st.op)
		}

		return instr.SlotSize, nil
	}

	if st.sec != dataSection {
		return 0, fmt.Errorf("%w: %s outside .data", ErrWrongSection, st.op)
	}

	switch st.op {
	case ".word":
		return 4 * uint32(len(st.args)), nil
	case ".byte":
		return uint32(len(st.args)), nil
	case ".space":
		if len(st.args) != 1 {
			return 0, fmt.Errorf("%w: .space takes one size", ErrBadOperand)
		}

		n, err := number(st.args[0])
		if err != nil {
			return 0, err
		}

		return n, nil
	case ".ascii", ".asciiz":
		s, err := stringArg(st.args)
		if err != nil {
			return 0, err
		}

		if st.op == ".asciiz" {
			return uint32(len(s)) + 1, nil
		}

		return uint32(len(s)), nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownMnemonic, st.op)
}

func (a *assembler) emit() (*Image, error) {
	img := &Image{
		TextBase: a.textBase,
		DataBase: a.dataBase,
		Symbols:  a.symbols,
	}

	for _, st := range a.stmts {
		if st.op == "" {
			continue
		}

		var err error

		if st.sec == textSection {
			var inst instr.Inst

			inst, err = a.encode(st)
			if err == nil {
				slot := inst.Encode()
				img.Text = append(img.Text, slot[:]...)
				img.Lines = append(img.Lines, st.line)
			}
		} else {
			img.Data, err = a.data(img.Data, st)
		}

		if err != nil {
			return nil, &SyntaxError{st.line, err}
		}
	}

	nop := instr.Inst{}.Encode()
	for i := 0; i < DrainSlots; i++ {
		img.Text = append(img.Text, nop[:]...)
		img.Lines = append(img.Lines, 0)
	}

	return img, nil
}

func (a *assembler) data(buf []byte, st *statement) ([]byte, error) {
	switch st.op {
	case ".word":
		for _, arg := range st.args {
			v, err := a.value(arg)
			if err != nil {
				return nil, err
			}

			buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		}
	case ".byte":
		for _, arg := range st.args {
			v, err := strconv.ParseInt(strings.TrimSpace(arg), 0, 64)
			if err != nil || v < -128 || v > 255 {
				return nil, fmt.Errorf("%w: %q does not fit in a byte", ErrBadOperand, arg)
			}

			buf = append(buf, byte(v))
		}
	case ".space":
		n, _ := number(st.args[0])
		buf = append(buf, make([]byte, n)...)
	case ".ascii", ".asciiz":
		s, _ := stringArg(st.args)
		buf = append(buf, s...)

		if st.op == ".asciiz" {
			buf = append(buf, 0)
		}
	}

	return buf, nil
}

func (a *assembler) encode(st *statement) (instr.Inst, error) {
	if st.op == "b" {
		if err := wantArgs(st, 1); err != nil {
			return instr.Inst{}, err
		}

		target, err := a.value(st.args[0])

		return instr.Inst{Opcode: instr.BEQZ, Immediate: target}, err
	}

	op, ok := instr.ParseOpcode(st.op)
	if !ok {
		return instr.Inst{}, fmt.Errorf("%w: %s", ErrUnknownMnemonic, st.op)
	}

	inst := instr.Inst{Opcode: op}
	p := operandParser{a: a, args: st.args}

	switch op {
	case instr.NOP, instr.SYSCALL:
		p.want(0)
	case instr.ADDI, instr.SUBI:
		p.want(3)
		inst.Rdest, inst.Rsrc1, inst.Immediate = p.reg(0), p.reg(1), p.imm(2)
	case instr.ADD:
		p.want(3)
		inst.Rdest, inst.Rsrc1, inst.Rsrc2 = p.reg(0), p.reg(1), p.reg(2)
	case instr.BEQZ:
		p.want(2)
		inst.Rsrc1, inst.Immediate = p.reg(0), p.target(1)
	case instr.BGE, instr.BNE:
		p.want(3)
		inst.Rsrc1, inst.Rsrc2, inst.Immediate = p.reg(0), p.reg(1), p.target(2)
	case instr.LA:
		p.want(2)
		inst.Rdest, inst.Immediate = p.reg(0), p.target(1)
	case instr.LB:
		p.want(2)
		inst.Rdest = p.reg(0)
		inst.Immediate, inst.Rsrc1 = p.mem(1)
	case instr.LI:
		p.want(2)
		inst.Rdest, inst.Immediate = p.reg(0), p.imm(1)
	}

	return inst, p.err
}

func wantArgs(st *statement, n int) error {
	if len(st.args) != n {
		return fmt.Errorf("%w: %s takes %d operands, got %d",
			ErrBadOperand, st.op, n, len(st.args))
	}

	return nil
}

// operandParser keeps the first error so that encode can read operands
// without checking after each one.
type operandParser struct {
	a    *assembler
	args []string
	err  error
}

func (p *operandParser) want(n int) {
	if len(p.args) != n && p.err == nil {
		p.err = fmt.Errorf("%w: want %d operands, got %d",
			ErrBadOperand, n, len(p.args))
	}
}

func (p *operandParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *operandParser) arg(i int) (string, bool) {
	if p.err != nil || i >= len(p.args) {
		return "", false
	}

	return p.args[i], true
}

func (p *operandParser) reg(i int) uint8 {
	s, ok := p.arg(i)
	if !ok {
		return 0
	}

	r, err := register(s)
	p.fail(err)

	return r
}

func (p *operandParser) imm(i int) uint32 {
	s, ok := p.arg(i)
	if !ok {
		return 0
	}

	v, err := number(s)
	p.fail(err)

	return v
}

func (p *operandParser) target(i int) uint32 {
	s, ok := p.arg(i)
	if !ok {
		return 0
	}

	v, err := p.a.value(s)
	p.fail(err)

	return v
}

func (p *operandParser) mem(i int) (offset uint32, base uint8) {
	s, ok := p.arg(i)
	if !ok {
		return 0, 0
	}

	m := memRe.FindStringSubmatch(s)
	if m == nil {
		p.fail(fmt.Errorf("%w: %q is not offset(register)", ErrBadOperand, s))
		return 0, 0
	}

	if off := strings.TrimSpace(m[1]); off != "" {
		v, err := p.a.value(off)
		p.fail(err)
		offset = v
	}

	r, err := register(m[2])
	p.fail(err)

	return offset, r
}

var registerAliases = map[string]uint8{
	"$zero": 0, "$at": 1, "$v0": 2, "$v1": 3,
	"$a0": 4, "$a1": 5, "$a2": 6, "$a3": 7,
	"$t0": 8, "$t1": 9, "$t2": 10, "$t3": 11,
	"$t4": 12, "$t5": 13, "$t6": 14, "$t7": 15,
	"$s0": 16, "$s1": 17, "$s2": 18, "$s3": 19,
	"$s4": 20, "$s5": 21, "$s6": 22, "$s7": 23,
	"$t8": 24, "$t9": 25, "$k0": 26, "$k1": 27,
	"$gp": 28, "$sp": 29, "$fp": 30, "$ra": 31,
}

func register(s string) (uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if r, ok := registerAliases[s]; ok {
		return r, nil
	}

	var digits string

	switch {
	case strings.HasPrefix(s, "$"):
		digits = s[1:]
	case strings.HasPrefix(s, "r"):
		digits = s[1:]
	default:
		return 0, fmt.Errorf("%w: %q is not a register", ErrBadOperand, s)
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n >= instr.NumRegisters {
		return 0, fmt.Errorf("%w: %q is not a register", ErrBadOperand, s)
	}

	return uint8(n), nil
}

func number(s string) (uint32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil || v < -(1<<31) || v > 1<<32-1 {
		return 0, fmt.Errorf("%w: %q is not a 32-bit number", ErrBadOperand, s)
	}

	return uint32(v), nil
}

// value accepts a number or a label.
func (a *assembler) value(s string) (uint32, error) {
	s = strings.TrimSpace(s)

	if v, err := number(s); err == nil {
		return v, nil
	}

	addr, ok := a.symbols[s]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLabel, s)
	}

	return addr, nil
}

func stringArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: want one string", ErrBadOperand)
	}

	s, err := strconv.Unquote(args[0])
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a string literal", ErrBadOperand, args[0])
	}

	return s, nil
}
