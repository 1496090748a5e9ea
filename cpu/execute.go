package cpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Step runs one clock edge: fetch, execute and write back a single instruction.
// A halted CPU ignores the edge.
func (c *CPU) Step() error {
	if !c.Running {
		return nil
	}
	if c.resetWait > 0 {
		c.resetWait--
		return nil
	}

	// Fetch
	c.Stage = StageFetch
	word, err := c.Mem.Read(c.PC)
	if err != nil {
		return c.trap(StageFetch, 0, err)
	}

	// Execute
	c.Stage = StageExecute
	inst, err := Decode(word)
	if err != nil {
		return c.trap(StageExecute, word, err)
	}
	result := inst.Handler(c.readReg(inst.Rs1), c.readReg(inst.Rs2))
	if e := c.entry(); e != nil {
		e.WithFields(logrus.Fields{
			"word":   fmt.Sprintf("%08X", word),
			"inst":   inst.String(),
			"result": fmt.Sprintf("%08X", result),
		}).Debug("CPU step")
	}

	// Write back
	c.Stage = StageWriteBack
	c.writeReg(inst.Rd, result)
	c.PC++
	c.Cycles++
	c.Stage = StageFetch
	return nil
}

// RunCycles steps n times, stopping at the first error.
func (c *CPU) RunCycles(n int) error {
	for i := 0; i < n; i++ {
		if !c.Running {
			return nil
		}
		err := c.Step()
		if err != nil {
			return err
		}
	}
	return nil
}

// Run steps once per rising edge received until the edge channel closes,
// the context ends, the CPU halts or a step fails.
func (c *CPU) Run(ctx context.Context, edges <-chan struct{}) error {
	for c.Running {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-edges:
			if !ok {
				return nil
			}
			err := c.Step()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// IsTrap reports whether err came from a failed cycle.
func IsTrap(err error) bool {
	var t *Trap
	return errors.As(err, &t)
}
