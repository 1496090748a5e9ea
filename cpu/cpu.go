package cpu

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Stage of the execution state machine.
type Stage int

const (
	// StageFetch reads the word at PC.
	StageFetch Stage = iota
	// StageExecute decodes the word and computes the result.
	StageExecute
	// StageWriteBack stores the result in rd and advances PC.
	StageWriteBack
)

func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageExecute:
		return "execute"
	case StageWriteBack:
		return "writeback"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Config for a new CPU.
type Config struct {
	// MemSize is the number of instruction slots.
	MemSize int
	// Start is the slot PC points at after New and Reset.
	Start uint32
	// HardwireZero makes x0 read as zero and ignore writes.
	HardwireZero bool
	// Trap decides what happens after a decode failure.
	Trap TrapPolicy
	// SkipEmpty makes a fetch from a never-written slot a no-op trap that
	// advances PC, instead of stalling on the slot.
	SkipEmpty bool
	// ResetDelay is the number of edges after Reset that are consumed
	// before the first fetch.
	ResetDelay int
}

// DefaultConfig returns 1024 slots starting at 0, with x0 hardwired and bad words skipped.
func DefaultConfig() Config {
	return Config{
		MemSize:      1024,
		Start:        0,
		HardwireZero: true,
		Trap:         TrapSkip,
	}
}

// CPU registers, instruction memory and execution state.
type CPU struct {
	// Regs is the general-purpose register file.
	Regs [NumRegs]uint32
	// PC is the index of the next instruction slot to fetch.
	PC uint32
	// Mem is the instruction memory.
	Mem *Memory
	// Stage is the state machine position.
	Stage Stage

	// Config the CPU was created with.
	Config Config
	// Logger receives a debug entry per cycle and a warning per trap when set.
	Logger logrus.FieldLogger

	// Cycles count.
	Cycles uint64
	// Traps count.
	Traps uint64
	// LastTrap is the most recent failed cycle, if any.
	LastTrap *Trap
	// Running or not.
	Running bool

	// resetWait counts down the edges left of ResetDelay.
	resetWait int
}

// New creates a new CPU instance with the given configuration.
func New(cfg Config) *CPU {
	if cfg.MemSize <= 0 {
		cfg.MemSize = DefaultConfig().MemSize
	}
	c := &CPU{
		Mem:    NewMemory(cfg.MemSize),
		Config: cfg,
	}
	c.Reset()
	return c
}

// Reset clears registers and counters and rewinds PC to the start slot.
// Memory is left untouched.
func (c *CPU) Reset() {
	c.Regs = [NumRegs]uint32{}
	c.PC = c.Config.Start
	c.Stage = StageFetch
	c.Cycles = 0
	c.Traps = 0
	c.LastTrap = nil
	c.Running = true
	c.resetWait = max(c.Config.ResetDelay, 0)
}

// HardReset is Reset that also forgets every instruction slot.
func (c *CPU) HardReset() {
	c.Mem.Clear()
	c.Reset()
}

// Reg returns the value of register i.
func (c *CPU) Reg(i uint32) (uint32, error) {
	if i >= NumRegs {
		return 0, fmt.Errorf("register x%d: %w", i, ErrInvalidOperand)
	}
	if i == 0 && c.Config.HardwireZero {
		return 0, nil
	}
	return c.Regs[i], nil
}

// SetReg forces register i to v.
func (c *CPU) SetReg(i, v uint32) error {
	if i >= NumRegs {
		return fmt.Errorf("register x%d: %w", i, ErrInvalidOperand)
	}
	c.writeReg(i, v)
	return nil
}

// writeReg stores v unless i is a hardwired x0.
func (c *CPU) writeReg(i, v uint32) {
	if i == 0 && c.Config.HardwireZero {
		return
	}
	c.Regs[i] = v
}

// readReg is Reg for indices already known to be in range.
func (c *CPU) readReg(i uint32) uint32 {
	if i == 0 && c.Config.HardwireZero {
		return 0
	}
	return c.Regs[i]
}

// SetPC moves the fetch index.
func (c *CPU) SetPC(index uint32) error {
	if uint64(index) >= uint64(c.Mem.Size()) {
		return fmt.Errorf("pc %d: %w", index, ErrAddressRange)
	}
	c.PC = index
	c.Stage = StageFetch
	return nil
}

// LoadWord forces a single instruction slot.
func (c *CPU) LoadWord(index, word uint32) error {
	return c.Mem.Write(index, word)
}

// LoadProgram writes words starting at slot start and points PC at it.
// Nothing is written unless the whole program fits.
func (c *CPU) LoadProgram(start uint32, words []uint32) error {
	if uint64(start)+uint64(len(words)) > uint64(c.Mem.Size()) {
		return fmt.Errorf("load program: %d words at slot %d past %d slots: %w", len(words), start, c.Mem.Size(), ErrAddressRange)
	}
	for i, w := range words {
		err := c.Mem.Write(start+uint32(i), w)
		if err != nil {
			return fmt.Errorf("load program: %w", err)
		}
	}
	return c.SetPC(start)
}

// ReadWord returns the word in an instruction slot.
func (c *CPU) ReadWord(index uint32) (uint32, error) {
	return c.Mem.Read(index)
}

// entry returns a log entry tagged with the current PC, or nil when logging is off.
func (c *CPU) entry() *logrus.Entry {
	if c.Logger == nil {
		return nil
	}
	return c.Logger.WithField("pc", c.PC)
}
