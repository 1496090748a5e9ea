package cpu

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidOperand is returned for register indices outside 0..31.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrUnsupportedOpcode is returned for words that are not ADD, SUB, SLL or SRL.
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	// ErrUninitializedRead is returned when fetching a memory slot that was never written.
	ErrUninitializedRead = errors.New("uninitialized read")
	// ErrAddressRange is returned for memory indices outside the instruction memory.
	ErrAddressRange = errors.New("address out of range")
)

// TrapPolicy decides what the CPU does after an instruction fails to decode.
type TrapPolicy int

const (
	// TrapSkip treats the bad word as a no-op: PC advances and the CPU keeps running.
	TrapSkip TrapPolicy = iota
	// TrapHalt stops the CPU. PC still points past the bad word.
	TrapHalt
)

// String returns the policy name.
func (p TrapPolicy) String() string {
	switch p {
	case TrapSkip:
		return "skip"
	case TrapHalt:
		return "halt"
	}
	return fmt.Sprintf("trap(%d)", int(p))
}

// Trap describes a failed cycle.
type Trap struct {
	PC    uint32
	Word  uint32
	Stage Stage
	Err   error
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap at %08X during %s (word %08X): %v", t.PC, t.Stage, t.Word, t.Err)
}

func (t *Trap) Unwrap() error {
	return t.Err
}

// trap records a failed cycle and applies the trap policy.
func (c *CPU) trap(stage Stage, word uint32, err error) error {
	t := &Trap{PC: c.PC, Word: word, Stage: stage, Err: err}
	c.LastTrap = t
	c.Traps++
	if e := c.entry(); e != nil {
		e.WithFields(logrus.Fields{
			"stage": stage.String(),
			"word":  fmt.Sprintf("%08X", word),
		}).Warnf("trap: %v", err)
	}

	c.Stage = StageFetch
	if stage == StageFetch {
		// Empty slots are skipped only when asked; otherwise PC stays so the
		// slot can be loaded and retried.
		if c.Config.SkipEmpty && errors.Is(err, ErrUninitializedRead) {
			c.PC++
		}
		return t
	}

	c.PC++
	if c.Config.Trap == TrapHalt {
		c.Running = false
	}
	return t
}
