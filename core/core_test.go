package core

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/pipesim/instr"
	"github.com/sarchlab/pipesim/memory"
)

type hookRecorder struct {
	ctxs []sim.HookCtx
}

func (h *hookRecorder) Func(ctx sim.HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

func (h *hookRecorder) items(pos *sim.HookPos) []interface{} {
	var items []interface{}

	for _, ctx := range h.ctxs {
		if ctx.Pos == pos {
			items = append(items, ctx.Item)
		}
	}

	return items
}

func slot(i int) uint32 {
	return memory.TextSegment + uint32(i)*instr.SlotSize
}

var _ = Describe("Core", func() {
	var (
		m       *memory.Storage
		out     *bytes.Buffer
		builder Builder
		c       *Core
	)

	load := func(prog ...instr.Inst) {
		var image []byte

		for _, i := range prog {
			s := i.Encode()
			image = append(image, s[:]...)
		}

		Expect(m.Load(memory.TextSegment, image)).To(Succeed())

		c = builder.Build("Core")
		c.LoadText(memory.TextSegment, uint32(len(image)))
	}

	run := func() {
		for !c.Done() {
			Expect(c.Stats().Cycles).To(BeNumerically("<", 10000))
			c.Step()
		}
	}

	expectQuiescent := func() {
		for i := uint8(0); i < instr.NumRegisters; i++ {
			Expect(c.Registers().Locks(i)).To(BeZero(), "register %d", i)
		}
	}

	BeforeEach(func() {
		m = memory.NewStorage()
		out = new(bytes.Buffer)
		builder = NewBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithMemory(m).
			WithOutput(out)
	})

	It("should finish independent instructions at full throughput", func() {
		load(
			instr.Inst{Opcode: instr.ADD, Rdest: 3, Rsrc1: 1, Rsrc2: 2},
			instr.Inst{Opcode: instr.ADD, Rdest: 4, Rsrc1: 1, Rsrc2: 1},
			instr.Inst{Opcode: instr.ADD, Rdest: 5, Rsrc1: 2, Rsrc2: 2},
		)
		c.SetRegister(1, 1)
		c.SetRegister(2, 2)

		run()

		Expect(c.Stats().Cycles).To(Equal(uint64(3 + 4)))
		Expect(c.Stats().Retired).To(Equal(uint64(3)))
		Expect(c.Stats().Stalls).To(BeZero())
		Expect(c.Register(3)).To(Equal(uint32(3)))
		Expect(c.Register(4)).To(Equal(uint32(2)))
		Expect(c.Register(5)).To(Equal(uint32(4)))
		expectQuiescent()
	})

	It("should be done at once with no text", func() {
		load()

		Expect(c.Done()).To(BeTrue())
		Expect(c.Tick()).To(BeFalse())
	})

	It("should forward an ALU result without stalling", func() {
		load(
			instr.Inst{Opcode: instr.ADDI, Rdest: 1, Immediate: 5},
			instr.Inst{Opcode: instr.ADD, Rdest: 2, Rsrc1: 1, Rsrc2: 1},
		)
		hooks := &hookRecorder{}
		c.AcceptHook(hooks)

		run()

		Expect(c.Register(2)).To(Equal(uint32(10)))
		Expect(c.Stats().Stalls).To(BeZero())
		Expect(c.Stats().Cycles).To(Equal(uint64(2 + 4)))
		Expect(hooks.items(HookPosForward)).To(ConsistOf(
			ForwardInfo{Site: "ex1", Reg: 1, Value: 5},
			ForwardInfo{Site: "ex2", Reg: 1, Value: 5},
		))
		expectQuiescent()
	})

	It("should hold the youngest producer's value", func() {
		load(
			instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 1},
			instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 2},
			instr.Inst{Opcode: instr.ADDI, Rdest: 2, Rsrc1: 1, Immediate: 0},
		)

		run()

		Expect(c.Register(1)).To(Equal(uint32(2)))
		Expect(c.Register(2)).To(Equal(uint32(2)))
	})

	It("should stall one cycle on a load-use hazard", func() {
		Expect(m.Load(memory.DataSegment, []byte{0x7F})).To(Succeed())
		load(
			instr.Inst{Opcode: instr.LA, Rdest: 1, Immediate: memory.DataSegment},
			instr.Inst{Opcode: instr.LB, Rdest: 2, Rsrc1: 1},
			instr.Inst{Opcode: instr.ADD, Rdest: 3, Rsrc1: 2, Rsrc2: 2},
		)

		run()

		Expect(c.Register(2)).To(Equal(uint32(0x7F)))
		Expect(c.Register(3)).To(Equal(uint32(0xFE)))
		Expect(c.Stats().Stalls).To(Equal(uint64(1)))
		Expect(c.Stats().Forwards).To(Equal(uint64(3)))
		Expect(c.Stats().Cycles).To(Equal(uint64(3 + 4 + 1)))
		expectQuiescent()
	})

	It("should zero-extend loaded bytes", func() {
		Expect(m.Load(memory.DataSegment+4, []byte{0xF0})).To(Succeed())
		load(
			instr.Inst{Opcode: instr.LA, Rdest: 1, Immediate: memory.DataSegment},
			instr.Inst{Opcode: instr.LB, Rdest: 2, Rsrc1: 1, Immediate: 4},
		)

		run()

		Expect(c.Register(2)).To(Equal(uint32(0xF0)))
	})

	It("should wrap subtraction in two's complement", func() {
		load(instr.Inst{Opcode: instr.SUBI, Rdest: 1, Immediate: 1})

		run()

		Expect(c.Register(1)).To(Equal(uint32(0xFFFFFFFF)))
	})

	It("should never write register 0", func() {
		load(
			instr.Inst{Opcode: instr.LI, Rdest: 0, Immediate: 9},
			instr.Inst{Opcode: instr.ADDI, Rdest: 1, Rsrc1: 0, Immediate: 1},
		)

		run()

		Expect(c.Register(0)).To(BeZero())
		Expect(c.Register(1)).To(Equal(uint32(1)))
		expectQuiescent()
	})

	It("should store through a descriptor with a memory write", func() {
		builder = builder.WithTable(instr.DefaultTable().WithDescriptor(
			instr.ADD, instr.Descriptor{
				ALUOp: instr.ALUPass, ALUSrc: instr.SrcAddress,
				MemWrite: 4, ExeCycles: 1,
			}))
		load(
			instr.Inst{Opcode: instr.LA, Rdest: 1, Immediate: memory.DataSegment},
			instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: 0xCAFE},
			instr.Inst{Opcode: instr.ADD, Rsrc1: 1, Rsrc2: 2, Immediate: 8},
		)

		run()

		Expect(memory.Get[uint32](m, memory.DataSegment+8)).
			To(Equal(uint32(0xCAFE)))
		Expect(m.Stats().WordWrites).To(Equal(uint64(1)))
	})

	Context("with a multi-cycle instruction", func() {
		BeforeEach(func() {
			builder = builder.WithTable(instr.DefaultTable().WithLatency(instr.ADD, 3))
		})

		It("should hold execute and still forward the result", func() {
			load(
				instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 4},
				instr.Inst{Opcode: instr.ADD, Rdest: 2, Rsrc1: 1, Rsrc2: 1},
				instr.Inst{Opcode: instr.ADDI, Rdest: 3, Rsrc1: 2, Immediate: 1},
			)

			run()

			Expect(c.Register(2)).To(Equal(uint32(8)))
			Expect(c.Register(3)).To(Equal(uint32(9)))
			Expect(c.Stats().Cycles).To(Equal(uint64(3 + 4 + 2)))
			expectQuiescent()
		})
	})

	Context("when a branch is mispredicted", func() {
		It("should flush and redirect to the target", func() {
			builder = builder.WithPolicy(AlwaysNotTaken)
			load(
				instr.Inst{Opcode: instr.BEQZ, Immediate: slot(2)},
				instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 1},
				instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: 2},
			)
			hooks := &hookRecorder{}
			c.AcceptHook(hooks)

			run()

			Expect(c.Stats().BPMisses).To(Equal(uint64(1)))
			Expect(c.Stats().BPHits).To(BeZero())
			Expect(c.Stats().Squashed).To(Equal(uint64(1)))
			Expect(c.Register(1)).To(BeZero())
			Expect(c.Register(2)).To(Equal(uint32(2)))
			Expect(hooks.items(HookPosMispredict)).To(ConsistOf(
				MispredictInfo{PC: slot(0), Taken: true, Target: slot(2)},
			))
			expectQuiescent()
		})

		It("should return to the fall-through when always-taken is wrong", func() {
			builder = builder.WithPolicy(AlwaysTaken)
			load(
				instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 1},
				instr.Inst{Opcode: instr.BEQZ, Rsrc1: 1, Immediate: slot(3)},
				instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: 2},
				instr.Inst{Opcode: instr.LI, Rdest: 3, Immediate: 3},
			)

			run()

			Expect(c.Stats().BPMisses).To(Equal(uint64(1)))
			Expect(c.Register(2)).To(Equal(uint32(2)))
			Expect(c.Register(3)).To(Equal(uint32(3)))
		})

		It("should release the lock of a squashed decoded instruction", func() {
			builder = builder.
				WithPolicy(AlwaysNotTaken).
				WithTable(instr.DefaultTable().WithLatency(instr.BEQZ, 3))
			load(
				instr.Inst{Opcode: instr.BEQZ, Immediate: slot(2)},
				instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 1},
				instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: 2},
			)

			run()

			Expect(c.Stats().Squashed).To(Equal(uint64(2)))
			Expect(c.Register(1)).To(BeZero())
			Expect(c.Register(2)).To(Equal(uint32(2)))
			expectQuiescent()
		})
	})

	Context("with a counting loop", func() {
		loop := func() {
			load(
				instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 4},
				instr.Inst{Opcode: instr.SUBI, Rdest: 1, Rsrc1: 1, Immediate: 1},
				instr.Inst{Opcode: instr.ADDI, Rdest: 2, Rsrc1: 2, Immediate: 1},
				instr.Inst{Opcode: instr.BNE, Rsrc1: 1, Rsrc2: 0, Immediate: slot(1)},
			)
		}

		DescribeTable("should run every policy to the same result",
			func(policy Policy, hits, misses uint64) {
				builder = builder.WithPolicy(policy)
				loop()

				run()

				Expect(c.Register(1)).To(BeZero())
				Expect(c.Register(2)).To(Equal(uint32(4)))
				Expect(c.Stats().BPHits).To(Equal(hits))
				Expect(c.Stats().BPMisses).To(Equal(misses))
				expectQuiescent()
			},
			Entry("always-not-taken", AlwaysNotTaken, uint64(1), uint64(3)),
			Entry("always-taken", AlwaysTaken, uint64(3), uint64(1)),
			Entry("2-bit", TwoBit, uint64(1), uint64(3)),
			Entry("2-level", TwoLevel, uint64(1), uint64(3)),
		)

		It("should leave the outcomes of the loop in the 2-level history", func() {
			builder = builder.WithPolicy(TwoLevel)
			loop()

			run()

			p := c.Predictor()
			Expect(p.History()).To(Equal(uint16(0b1110)))
			Expect(p.Counter(0b0011)).To(Equal(WeakNotTaken))
			Expect(p.Counter(0b0111)).To(Equal(StrongNotTaken))
		})

		It("should train the 2-bit counter of the branch", func() {
			builder = builder.WithPolicy(TwoBit)
			loop()

			run()

			p := c.Predictor()
			Expect(p.Counter(p.Index(slot(3)))).To(Equal(WeakTaken))
		})

		It("should be deterministic", func() {
			for _, policy := range Policies() {
				builder = builder.WithPolicy(policy)

				loop()
				run()
				first := c.Stats()
				firstRegs := c.Registers().Values()

				m = memory.NewStorage()
				builder = builder.WithMemory(m)
				loop()
				run()

				Expect(c.Stats()).To(Equal(first))
				Expect(c.Registers().Values()).To(Equal(firstRegs))
			}
		})
	})

	Context("with system calls", func() {
		It("should print and halt", func() {
			load(
				instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: instr.ServicePrintInt},
				instr.Inst{Opcode: instr.LI, Rdest: 4, Immediate: 42},
				instr.Inst{Opcode: instr.SYSCALL},
				instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: instr.ServiceExitCode},
				instr.Inst{Opcode: instr.LI, Rdest: 4, Immediate: 3},
				instr.Inst{Opcode: instr.SYSCALL},
			)
			hooks := &hookRecorder{}
			c.AcceptHook(hooks)

			run()

			Expect(out.String()).To(Equal("42"))
			Expect(c.Halted()).To(BeTrue())
			Expect(c.ExitCode()).To(Equal(int32(3)))
			Expect(hooks.items(HookPosHalt)).To(ConsistOf(int32(3)))
			Expect(hooks.items(HookPosRetire)).To(HaveLen(6))
		})

		It("should stop fetching after exit even inside the text", func() {
			builder = builder.WithPolicy(TwoBit)
			load(
				instr.Inst{Opcode: instr.LI, Rdest: 2, Immediate: instr.ServiceExit},
				instr.Inst{Opcode: instr.SYSCALL},
				instr.Inst{Opcode: instr.BEQZ, Immediate: slot(2)},
			)

			run()

			Expect(c.Halted()).To(BeTrue())
			Expect(c.ExitCode()).To(BeZero())
			Expect(c.PC()).To(Equal(slot(2)))
			Expect(c.Stats().Cycles).To(BeNumerically("<", 20))
			expectQuiescent()
		})
	})

	It("should stop ticking at the cycle limit", func() {
		builder = builder.WithCycleLimit(50)
		load(instr.Inst{Opcode: instr.BEQZ, Immediate: slot(0)})

		for c.Tick() {
		}

		Expect(c.LimitReached()).To(BeTrue())
		Expect(c.Done()).To(BeFalse())
		Expect(c.Stats().Cycles).To(Equal(uint64(50)))
	})

	It("should print the pipeline state when verbose", func() {
		state := new(bytes.Buffer)
		builder = builder.WithVerbose(true, state)
		load(instr.Inst{Opcode: instr.LI, Rdest: 1, Immediate: 1})

		c.Step()

		Expect(state.String()).To(ContainSubstring("Pipeline"))
		Expect(state.String()).To(ContainSubstring("li $1, 1"))
	})
})
