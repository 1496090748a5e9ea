package cpu_test

import (
	"bytes"
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Urethramancer/rv32/cpu"
)

const (
	valueRS1 = 8
	valueRS2 = 2
	rs1      = 1
	rs2      = 2
)

var _ = Describe("CPU", func() {
	var c *cpu.CPU

	BeforeEach(func() {
		c = cpu.New(cpu.DefaultConfig())
		Expect(c.SetReg(rs1, valueRS1)).To(Succeed())
		Expect(c.SetReg(rs2, valueRS2)).To(Succeed())
	})

	reg := func(i uint32) uint32 {
		v, err := c.Reg(i)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	Describe("single instructions", func() {
		DescribeTable("computes rd from x1=8, x2=2",
			func(op cpu.Op, want uint32) {
				Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(op, 3, rs1, rs2)})).To(Succeed())
				Expect(c.Step()).To(Succeed())
				Expect(reg(3)).To(Equal(want))
			},
			Entry("ADD", cpu.OpADD, uint32(10)),
			Entry("SUB", cpu.OpSUB, uint32(6)),
			Entry("SLL", cpu.OpSLL, uint32(32)),
			Entry("SRL", cpu.OpSRL, uint32(2)),
		)

		DescribeTable("masks the shift amount to five bits",
			func(op cpu.Op) {
				Expect(c.SetReg(rs2, 35)).To(Succeed())
				Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(op, 3, rs1, rs2)})).To(Succeed())
				Expect(c.Step()).To(Succeed())
				masked := reg(3)

				c.Reset()
				Expect(c.SetReg(rs1, valueRS1)).To(Succeed())
				Expect(c.SetReg(rs2, 3)).To(Succeed())
				Expect(c.Step()).To(Succeed())
				Expect(reg(3)).To(Equal(masked))
			},
			Entry("SLL", cpu.OpSLL),
			Entry("SRL", cpu.OpSRL),
		)

		It("wraps ADD without signalling overflow", func() {
			Expect(c.SetReg(rs1, 0xFFFFFFFF)).To(Succeed())
			Expect(c.SetReg(rs2, 1)).To(Succeed())
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpADD, 3, rs1, rs2)})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(reg(3)).To(BeZero())
			Expect(c.Traps).To(BeZero())
		})

		It("wraps SUB below zero", func() {
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpSUB, 3, rs2, rs1)})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(reg(3)).To(Equal(uint32(0xFFFFFFFA)))
		})

		It("shifts right without sign extension", func() {
			Expect(c.SetReg(rs1, 0x80000000)).To(Succeed())
			Expect(c.SetReg(rs2, 31)).To(Succeed())
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpSRL, 3, rs1, rs2)})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(reg(3)).To(Equal(uint32(1)))
		})

		It("reads rd as a source when it is also an operand", func() {
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpADD, rs1, rs1, rs1)})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(reg(rs1)).To(Equal(uint32(16)))
		})
	})

	Describe("state machine", func() {
		It("starts at Fetch on the configured slot", func() {
			cfg := cpu.DefaultConfig()
			cfg.Start = 1
			c = cpu.New(cfg)
			Expect(c.PC).To(Equal(uint32(1)))
			Expect(c.Stage).To(Equal(cpu.StageFetch))
			Expect(c.Running).To(BeTrue())
		})

		It("advances one slot and one cycle per edge", func() {
			Expect(c.LoadProgram(4, []uint32{
				cpu.MustEncode(cpu.OpADD, 3, rs1, rs2),
				cpu.MustEncode(cpu.OpSUB, 4, rs1, rs2),
			})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(c.PC).To(Equal(uint32(5)))
			Expect(c.Cycles).To(Equal(uint64(1)))
			Expect(c.Stage).To(Equal(cpu.StageFetch))
			Expect(c.Step()).To(Succeed())
			Expect(c.PC).To(Equal(uint32(6)))
			Expect(reg(4)).To(Equal(uint32(6)))
		})

		It("never writes instruction memory", func() {
			w := cpu.MustEncode(cpu.OpADD, 3, rs1, rs2)
			Expect(c.LoadProgram(0, []uint32{w})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(c.ReadWord(0)).To(Equal(w))
			Expect(c.Mem.Loaded()).To(Equal([]uint32{0}))
		})

		It("keeps memory across Reset", func() {
			Expect(c.LoadProgram(2, []uint32{cpu.MustEncode(cpu.OpADD, 3, rs1, rs2)})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			c.Reset()
			Expect(c.PC).To(BeZero())
			Expect(c.Cycles).To(BeZero())
			Expect(reg(3)).To(BeZero())
			Expect(c.ReadWord(2)).To(Equal(cpu.MustEncode(cpu.OpADD, 3, rs1, rs2)))
		})

		It("ignores edges while halted", func() {
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpADD, 3, rs1, rs2)})).To(Succeed())
			c.Running = false
			Expect(c.Step()).To(Succeed())
			Expect(c.PC).To(BeZero())
			Expect(reg(3)).To(BeZero())
		})

		It("logs each cycle at debug level when a logger is set", func() {
			logger, hook := test.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)
			c.Logger = logger
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpSLL, 5, rs1, rs2)})).To(Succeed())
			Expect(c.Step()).To(Succeed())

			entry := hook.LastEntry()
			Expect(entry).NotTo(BeNil())
			Expect(entry.Level).To(Equal(logrus.DebugLevel))
			Expect(entry.Message).To(Equal("CPU step"))
			Expect(entry.Data).To(HaveKeyWithValue("pc", uint32(0)))
			Expect(entry.Data).To(HaveKeyWithValue("inst", "sll x5,x1,x2"))
			Expect(entry.Data).To(HaveKeyWithValue("result", "00000020"))
		})

		It("logs traps as warnings", func() {
			logger, hook := test.NewNullLogger()
			c.Logger = logger
			Expect(c.LoadProgram(0, []uint32{0xFFFFFFFF})).To(Succeed())
			Expect(c.Step()).To(MatchError(cpu.ErrUnsupportedOpcode))

			Expect(hook.AllEntries()).To(HaveLen(1))
			entry := hook.LastEntry()
			Expect(entry.Level).To(Equal(logrus.WarnLevel))
			Expect(entry.Data).To(HaveKeyWithValue("stage", "execute"))
			Expect(entry.Data).To(HaveKeyWithValue("word", "FFFFFFFF"))
		})
	})

	Describe("register zero", func() {
		It("discards writes to x0 by default", func() {
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpADD, 0, rs1, rs2)})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(reg(0)).To(BeZero())
			Expect(c.SetReg(0, 7)).To(Succeed())
			Expect(reg(0)).To(BeZero())
		})

		It("stores to x0 when not hardwired", func() {
			cfg := cpu.DefaultConfig()
			cfg.HardwireZero = false
			c = cpu.New(cfg)
			Expect(c.SetReg(rs1, valueRS1)).To(Succeed())
			Expect(c.SetReg(rs2, valueRS2)).To(Succeed())
			Expect(c.LoadProgram(0, []uint32{
				cpu.MustEncode(cpu.OpADD, 0, rs1, rs2),
				cpu.MustEncode(cpu.OpADD, 3, 0, 0),
			})).To(Succeed())
			Expect(c.RunCycles(2)).To(Succeed())
			Expect(reg(0)).To(Equal(uint32(10)))
			Expect(reg(3)).To(Equal(uint32(20)))
		})
	})

	Describe("state injection", func() {
		It("rejects register indices above 31", func() {
			Expect(c.SetReg(32, 1)).To(MatchError(cpu.ErrInvalidOperand))
			_, err := c.Reg(99)
			Expect(err).To(MatchError(cpu.ErrInvalidOperand))
		})

		It("rejects memory indices outside the store", func() {
			c = cpu.New(cpu.Config{MemSize: 4})
			Expect(c.LoadWord(4, 0)).To(MatchError(cpu.ErrAddressRange))
			Expect(c.SetPC(4)).To(MatchError(cpu.ErrAddressRange))
			Expect(c.LoadProgram(2, []uint32{0, 0, 0})).To(MatchError(cpu.ErrAddressRange))
			Expect(c.LoadProgram(0xFFFFFFFF, []uint32{0, 0})).To(MatchError(cpu.ErrAddressRange))
			Expect(c.Mem.Loaded()).To(BeEmpty())
			_, err := c.ReadWord(10)
			Expect(err).To(MatchError(cpu.ErrAddressRange))
			_, err = c.ReadWord(0x80000000)
			Expect(err).To(MatchError(cpu.ErrAddressRange))
			Expect(c.LoadWord(0xFFFFFFFF, 0)).To(MatchError(cpu.ErrAddressRange))
		})

		It("forgets memory on HardReset", func() {
			Expect(c.LoadProgram(3, []uint32{cpu.MustEncode(cpu.OpADD, 3, rs1, rs2)})).To(Succeed())
			c.HardReset()
			Expect(c.Mem.Loaded()).To(BeEmpty())
			Expect(c.PC).To(BeZero())
			Expect(reg(rs1)).To(BeZero())
			_, err := c.ReadWord(3)
			Expect(err).To(MatchError(cpu.ErrUninitializedRead))
		})

		It("falls back to the default memory size", func() {
			c = cpu.New(cpu.Config{})
			Expect(c.Mem.Size()).To(Equal(cpu.DefaultConfig().MemSize))
		})
	})

	Describe("traps", func() {
		It("waits on an uninitialized slot until it is loaded", func() {
			err := c.Step()
			Expect(err).To(MatchError(cpu.ErrUninitializedRead))
			Expect(cpu.IsTrap(err)).To(BeTrue())
			Expect(c.PC).To(BeZero())
			Expect(c.Running).To(BeTrue())
			Expect(c.LastTrap.Stage).To(Equal(cpu.StageFetch))

			Expect(c.LoadWord(0, cpu.MustEncode(cpu.OpADD, 3, rs1, rs2))).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(reg(3)).To(Equal(uint32(10)))
		})

		It("reports fetching past the end of memory", func() {
			c = cpu.New(cpu.Config{MemSize: 1})
			Expect(c.LoadProgram(0, []uint32{cpu.MustEncode(cpu.OpADD, 3, 0, 0)})).To(Succeed())
			Expect(c.Step()).To(Succeed())
			Expect(c.Step()).To(MatchError(cpu.ErrAddressRange))
		})

		It("skips an unsupported word and stays resumable", func() {
			Expect(c.LoadProgram(0, []uint32{
				0x00108093, // addi x1,x1,1
				cpu.MustEncode(cpu.OpADD, 3, rs1, rs2),
			})).To(Succeed())

			err := c.Step()
			Expect(err).To(MatchError(cpu.ErrUnsupportedOpcode))
			var trap *cpu.Trap
			Expect(errors.As(err, &trap)).To(BeTrue())
			Expect(trap.PC).To(BeZero())
			Expect(trap.Word).To(Equal(uint32(0x00108093)))
			Expect(trap.Stage).To(Equal(cpu.StageExecute))
			Expect(c.PC).To(Equal(uint32(1)))
			Expect(c.Running).To(BeTrue())
			Expect(reg(rs1)).To(Equal(uint32(valueRS1)))

			Expect(c.Step()).To(Succeed())
			Expect(reg(3)).To(Equal(uint32(10)))
			Expect(c.Traps).To(Equal(uint64(1)))
		})

		It("halts on an unsupported word under TrapHalt", func() {
			cfg := cpu.DefaultConfig()
			cfg.Trap = cpu.TrapHalt
			c = cpu.New(cfg)
			Expect(c.LoadProgram(0, []uint32{0xFFFFFFFF, cpu.MustEncode(cpu.OpADD, 3, 0, 0)})).To(Succeed())
			Expect(c.Step()).To(MatchError(cpu.ErrUnsupportedOpcode))
			Expect(c.Running).To(BeFalse())
			Expect(c.PC).To(Equal(uint32(1)))
			Expect(c.RunCycles(5)).To(Succeed())
			Expect(c.PC).To(Equal(uint32(1)))
		})
	})

	Describe("clocked runs", func() {
		// Slots 1 to 4 hold one instruction each; slot 5 is never loaded.
		program := func() {
			cfg := cpu.DefaultConfig()
			cfg.Start = 1
			c = cpu.New(cfg)
			Expect(c.SetReg(rs1, valueRS1)).To(Succeed())
			Expect(c.SetReg(rs2, valueRS2)).To(Succeed())
			Expect(c.LoadWord(1, cpu.MustEncode(cpu.OpADD, 3, rs1, rs2))).To(Succeed())
			Expect(c.LoadWord(2, cpu.MustEncode(cpu.OpSUB, 4, rs1, rs2))).To(Succeed())
			Expect(c.LoadWord(3, cpu.MustEncode(cpu.OpSLL, 5, rs1, rs2))).To(Succeed())
			Expect(c.LoadWord(4, cpu.MustEncode(cpu.OpSRL, 6, rs1, rs2))).To(Succeed())
		}

		It("runs one instruction per edge", func() {
			program()
			Expect(c.Run(context.Background(), cpu.Edges(4))).To(Succeed())
			Expect(reg(3)).To(Equal(uint32(10)))
			Expect(reg(4)).To(Equal(uint32(6)))
			Expect(reg(5)).To(Equal(uint32(32)))
			Expect(reg(6)).To(Equal(uint32(2)))
			Expect(c.Cycles).To(Equal(uint64(4)))
		})

		It("stops with the first trap", func() {
			program()
			err := c.Run(context.Background(), cpu.Edges(10))
			Expect(err).To(MatchError(cpu.ErrUninitializedRead))
			Expect(c.PC).To(Equal(uint32(5)))
		})

		It("RunCycles stops with the first trap", func() {
			program()
			Expect(c.RunCycles(10)).To(MatchError(cpu.ErrUninitializedRead))
			Expect(c.Cycles).To(Equal(uint64(4)))
		})

		It("follows a real clock until cancelled", func() {
			program()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			clk := cpu.Clock{Period: time.Millisecond}
			err := c.Run(ctx, clk.Start(ctx))
			Expect(err).To(MatchError(cpu.ErrUninitializedRead))
			Expect(reg(6)).To(Equal(uint32(2)))
		})

		It("treats a negative edge count as none", func() {
			program()
			Expect(c.Run(context.Background(), cpu.Edges(-1))).To(Succeed())
			Expect(c.Cycles).To(BeZero())
			Expect(c.PC).To(Equal(uint32(1)))
		})

		It("returns the context error when cancelled", func() {
			program()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Expect(c.Run(ctx, make(chan struct{}))).To(MatchError(context.Canceled))
		})
	})

	Describe("testbench flow", func() {
		// One instruction every other slot, each loaded while the clock runs,
		// with a reset edge before the first fetch.
		var errs []error

		edges := func(n int) {
			for i := 0; i < n; i++ {
				if err := c.Step(); err != nil {
					errs = append(errs, err)
				}
			}
		}

		BeforeEach(func() {
			errs = nil
			cfg := cpu.DefaultConfig()
			cfg.Start = 1
			cfg.SkipEmpty = true
			cfg.ResetDelay = 1
			c = cpu.New(cfg)
			Expect(c.SetReg(rs1, valueRS1)).To(Succeed())
			Expect(c.SetReg(rs2, valueRS2)).To(Succeed())
		})

		It("executes ADD, SUB, SLL and SRL from slots 1, 3, 5 and 7", func() {
			Expect(c.LoadWord(1, cpu.MustEncode(cpu.OpADD, 3, rs1, rs2))).To(Succeed())
			edges(3)
			Expect(reg(3)).To(Equal(uint32(valueRS1 + valueRS2)))

			Expect(c.LoadWord(3, cpu.MustEncode(cpu.OpSUB, 4, rs1, rs2))).To(Succeed())
			edges(2)
			Expect(reg(4)).To(Equal(uint32(valueRS1 - valueRS2)))

			Expect(c.LoadWord(5, cpu.MustEncode(cpu.OpSLL, 5, rs1, rs2))).To(Succeed())
			edges(2)
			Expect(reg(5)).To(Equal(uint32(valueRS1 << valueRS2)))

			Expect(c.LoadWord(7, cpu.MustEncode(cpu.OpSRL, 6, rs1, rs2))).To(Succeed())
			edges(2)
			Expect(reg(6)).To(Equal(uint32(valueRS1 >> valueRS2)))

			Expect(c.PC).To(Equal(uint32(9)))
			Expect(c.Cycles).To(Equal(uint64(4)))
			Expect(errs).To(HaveLen(4))
			for _, err := range errs {
				Expect(err).To(MatchError(cpu.ErrUninitializedRead))
			}
		})

		It("consumes the reset edges before fetching", func() {
			Expect(c.LoadWord(1, cpu.MustEncode(cpu.OpADD, 3, rs1, rs2))).To(Succeed())
			edges(1)
			Expect(c.PC).To(Equal(uint32(1)))
			Expect(reg(3)).To(BeZero())
			edges(1)
			Expect(reg(3)).To(Equal(uint32(10)))
		})

		It("still stalls on a slot past the end of memory", func() {
			c = cpu.New(cpu.Config{MemSize: 2, Start: 1, SkipEmpty: true})
			edges(2)
			Expect(c.PC).To(Equal(uint32(2)))
			Expect(errs[len(errs)-1]).To(MatchError(cpu.ErrAddressRange))
		})
	})

	It("dumps registers", func() {
		var buf bytes.Buffer
		Expect(c.DumpRegisters(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("x1/ra:"))
		Expect(buf.String()).To(ContainSubstring("00000008"))
		Expect(buf.String()).To(ContainSubstring("Stage: fetch"))
	})
})
