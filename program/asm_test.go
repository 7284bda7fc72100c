package program_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
	"github.com/sarchlab/pipesim/program"
)

const countdown = `
# count down from 3 and print the counter
        .data
msg:    .asciiz "done\n"
nums:   .word 1, -2, msg
bytes:  .byte 0x7f, 1
pad:    .space 3
        .text
main:   li $1, 3            ; counter
loop:   subi $1, $1, 1
        bne $1, $0, loop
        la $4, msg
        lb $5, 0($4)
        lb r6, ($4)
        add $7, $5, $6
        beqz $0, out
        addi $8, $8, 1
out:    li $v0, 10
        syscall
`

var _ = Describe("Assembler", func() {
	var img *program.Image

	BeforeEach(func() {
		var err error
		img, err = program.Assemble(countdown)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should place segments at the default bases", func() {
		Expect(img.TextBase).To(Equal(memory.TextSegment))
		Expect(img.DataBase).To(Equal(memory.DataSegment))
	})

	It("should append drain slots", func() {
		Expect(img.NumInstructions()).To(Equal(11 + program.DrainSlots))

		for i := 11; i < img.NumInstructions(); i++ {
			Expect(img.Instruction(i)).To(Equal(instr.Inst{}))
		}
	})

	It("should resolve labels in both segments", func() {
		Expect(img.Symbols).To(HaveKeyWithValue("main", memory.TextSegment))
		Expect(img.Symbols).To(HaveKeyWithValue("loop", memory.TextSegment+8))
		Expect(img.Symbols).To(HaveKeyWithValue("out", memory.TextSegment+9*8))
		Expect(img.Symbols).To(HaveKeyWithValue("msg", memory.DataSegment))
		Expect(img.Symbols).To(HaveKeyWithValue("nums", memory.DataSegment+6))
		Expect(img.Symbols).To(HaveKeyWithValue("bytes", memory.DataSegment+18))
		Expect(img.Symbols).To(HaveKeyWithValue("pad", memory.DataSegment+20))
	})

	It("should encode instructions", func() {
		insts := img.Instructions()

		Expect(insts[0]).To(Equal(instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 3}))
		Expect(insts[1]).To(Equal(instr.Inst{
			Opcode: instr.SUBI, Rdest: 1, Rsrc1: 1, Immediate: 1,
		}))
		Expect(insts[2]).To(Equal(instr.Inst{
			Opcode: instr.BNE, Rsrc1: 1, Rsrc2: 0, Immediate: memory.TextSegment + 8,
		}))
		Expect(insts[3]).To(Equal(instr.Inst{
			Opcode: instr.LA, Rdest: 4, Immediate: memory.DataSegment,
		}))
		Expect(insts[4]).To(Equal(instr.Inst{Opcode: instr.LB, Rdest: 5, Rsrc1: 4}))
		Expect(insts[5]).To(Equal(instr.Inst{Opcode: instr.LB, Rdest: 6, Rsrc1: 4}))
		Expect(insts[7]).To(Equal(instr.Inst{
			Opcode: instr.BEQZ, Immediate: memory.TextSegment + 9*8,
		}))
		Expect(insts[9]).To(Equal(instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: 10}))
		Expect(insts[10]).To(Equal(instr.Inst{Opcode: instr.SYSCALL}))
	})

	It("should lay out data", func() {
		Expect(img.Data[:6]).To(Equal([]byte("done\n\x00")))
		Expect(img.Data[6:10]).To(Equal([]byte{1, 0, 0, 0}))
		Expect(img.Data[10:14]).To(Equal([]byte{0xFE, 0xFF, 0xFF, 0xFF}))
		Expect(img.Data[14:18]).To(Equal([]byte{0x00, 0x00, 0x00, 0x10}))
		Expect(img.Data[18:20]).To(Equal([]byte{0x7F, 0x01}))
		Expect(img.Data).To(HaveLen(23))
	})

	It("should remember source lines", func() {
		Expect(img.Line(0)).To(Equal(9))
		Expect(img.Line(10)).To(Equal(19))
		Expect(img.Line(11)).To(BeZero())
	})

	It("should load into memory", func() {
		m := memory.NewStorage()

		Expect(img.LoadInto(m)).To(Succeed())
		Expect(memory.Get[uint8](m, memory.TextSegment)).To(Equal(uint8(instr.LI)))
		Expect(memory.Get[uint8](m, memory.DataSegment)).To(Equal(uint8('d')))
	})

	It("should round trip through files", func() {
		dir := GinkgoT().TempDir()
		text := filepath.Join(dir, "prog.t")
		data := filepath.Join(dir, "prog.d")

		Expect(img.WriteFiles(text, data)).To(Succeed())

		read, err := program.ReadImage(text, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(read.Text).To(Equal(img.Text))
		Expect(read.Data).To(Equal(img.Data))

		read, err = program.ReadImage(text, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(read.Data).To(BeEmpty())
	})

	It("should fail on a missing image", func() {
		_, err := program.ReadImage(filepath.Join(GinkgoT().TempDir(), "none"), "")
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("should reject bad source",
		func(src string, want error, line int) {
			_, err := program.Assemble(src)

			Expect(err).To(MatchError(want))

			var syntaxErr *program.SyntaxError
			Expect(err).To(BeAssignableToTypeOf(syntaxErr))
			Expect(err.(*program.SyntaxError).Line).To(Equal(line))
		},
		Entry("unknown mnemonic", "nop\nmul $1, $2, $3", program.ErrUnknownMnemonic, 2),
		Entry("undefined label", "b nowhere", program.ErrUnknownLabel, 1),
		Entry("duplicate label", "a: nop\na: nop", program.ErrDuplicateLabel, 2),
		Entry("bad register", "li $32, 1", program.ErrBadOperand, 1),
		Entry("missing operand", "add $1, $2", program.ErrBadOperand, 1),
		Entry("oversized immediate", "li $1, 0x100000000", program.ErrBadOperand, 1),
		Entry("instruction in data", ".data\nnop", program.ErrWrongSection, 2),
		Entry("data in text", ".word 1", program.ErrWrongSection, 1),
		Entry("bad string", ".data\n.ascii hello", program.ErrBadOperand, 2),
		Entry("byte too large", ".data\n.byte 1, 300", program.ErrBadOperand, 2),
		Entry("byte too small", ".data\n.byte -129", program.ErrBadOperand, 2),
	)

	It("should accept the full byte range", func() {
		img, err := program.Assemble(".data\n.byte -128, 255, -1")

		Expect(err).NotTo(HaveOccurred())
		Expect(img.Data).To(Equal([]byte{0x80, 0xff, 0xff}))
	})

	It("should resolve conventional register names", func() {
		img, err := program.Assemble("add $t0, $sp, $ra\naddi $s7, $k1, 5")
		Expect(err).NotTo(HaveOccurred())

		Expect(img.Instruction(0)).To(Equal(instr.Inst{
			Opcode: instr.ADD, Rdest: 8, Rsrc1: 29, Rsrc2: 31,
		}))
		Expect(img.Instruction(1)).To(Equal(instr.Inst{
			Opcode: instr.ADDI, Rdest: 23, Rsrc1: 27, Immediate: 5,
		}))
	})

	It("should keep comment characters inside strings", func() {
		img, err := program.Assemble(".data\ns: .ascii \"a#b;c\" # note")

		Expect(err).NotTo(HaveOccurred())
		Expect(img.Data).To(Equal([]byte("a#b;c")))
	})
})
