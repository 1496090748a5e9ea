package cpu

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ABINames are the calling-convention names of x0..x31.
var ABINames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// ParseReg accepts xN, an ABI name or "fp" (alias of s0).
func ParseReg(s string) (uint32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := strings.CutPrefix(s, "x"); ok {
		v, err := strconv.ParseUint(n, 10, 32)
		if err != nil || v >= NumRegs {
			return 0, fmt.Errorf("register %q: %w", s, ErrInvalidOperand)
		}
		return uint32(v), nil
	}
	if s == "fp" {
		return 8, nil
	}
	for i, name := range ABINames {
		if name == s {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("register %q: %w", s, ErrInvalidOperand)
}

// DumpRegisters writes PC, stage, counters and all registers to w.
func (c *CPU) DumpRegisters(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "PC: %d\tStage: %s\tCycles: %d\tTraps: %d\tRunning: %t\n", c.PC, c.Stage, c.Cycles, c.Traps, c.Running)
	for i := uint32(0); i < NumRegs; i++ {
		fmt.Fprintf(tw, "x%d/%s:\t%08X", i, ABINames[i], c.readReg(i))
		if i%4 == 3 {
			fmt.Fprintln(tw)
		} else {
			fmt.Fprint(tw, "\t")
		}
	}
	return tw.Flush()
}
