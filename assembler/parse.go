package assembler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Urethramancer/rv32/cpu"
)

var reLabel = regexp.MustCompile(`(?i)^[a-z_.][a-z0-9_.]*$`)

// stripComment removes ';' and '#' comments.
func stripComment(line string) string {
	if i := strings.IndexAny(line, ";#"); i != -1 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// splitOperands splits "x3, x1 ,x2" into trimmed fields.
func splitOperands(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// parseRegisters converts an instruction's three operands to register indices.
func parseRegisters(mnemonic string, ops []string) (rd, rs1, rs2 uint32, err error) {
	if len(ops) != 3 {
		return 0, 0, 0, fmt.Errorf("%s requires 3 register operands, got %d", mnemonic, len(ops))
	}
	regs := make([]uint32, 3)
	for i, s := range ops {
		regs[i], err = cpu.ParseReg(s)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%s operand %d: %w", mnemonic, i+1, err)
		}
	}
	return regs[0], regs[1], regs[2], nil
}

// parseConstant understands decimal, 0x hex, 0b binary, negative values and symbols.
func parseConstant(s string, asm *Assembler) (int64, error) {
	s = strings.TrimSpace(s)

	// Symbol lookup
	if asm != nil {
		if val, ok := asm.symbols[strings.ToLower(s)]; ok {
			return val, nil
		}
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	base := 10
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "0x"):
		s = s[2:]
		base = 16
	case strings.HasPrefix(lower, "0b"):
		s = s[2:]
		base = 2
	}

	val, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number format: %s", s)
	}
	if neg {
		return -int64(val), nil
	}
	return int64(val), nil
}
