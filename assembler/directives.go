package assembler

import (
	"fmt"
	"strings"
)

// isDirective reports whether a mnemonic names an assembler directive.
func isDirective(mnemonic string) bool {
	switch strings.ToLower(mnemonic) {
	case ".org", ".word", ".equ":
		return true
	}
	return false
}

// getDirectiveSize returns the number of slots a directive occupies.
func (asm *Assembler) getDirectiveSize(n *Node) (uint32, error) {
	switch n.Mnemonic {
	case ".org", ".equ":
		return 0, nil
	case ".word":
		if len(n.Parts) < 2 {
			return 0, fmt.Errorf(".word requires at least one value")
		}
		return uint32(len(n.Parts) - 1), nil
	}
	return 0, fmt.Errorf("unknown directive: %s", n.Mnemonic)
}

// defineSymbol handles ".equ name, value" during parsing.
func (asm *Assembler) defineSymbol(n *Node) error {
	if len(n.Parts) != 3 {
		return fmt.Errorf(".equ requires a name and a value")
	}
	name := strings.ToLower(n.Parts[1])
	if !reLabel.MatchString(name) {
		return fmt.Errorf("invalid symbol name: %s", n.Parts[1])
	}
	val, err := parseConstant(n.Parts[2], asm)
	if err != nil {
		return fmt.Errorf(".equ %s: %w", name, err)
	}
	asm.symbols[name] = val
	return nil
}

// orgTarget evaluates the slot index of an .org directive.
func (asm *Assembler) orgTarget(n *Node) (uint32, error) {
	if len(n.Parts) != 2 {
		return 0, fmt.Errorf(".org requires a single address")
	}
	addr, err := parseConstant(n.Parts[1], asm)
	if err != nil {
		return 0, err
	}
	if addr < 0 {
		return 0, fmt.Errorf(".org address %d is negative", addr)
	}
	return uint32(addr), nil
}

// generateDirectiveCode emits the words of a .word directive.
func (asm *Assembler) generateDirectiveCode(n *Node) ([]uint32, error) {
	if n.Mnemonic != ".word" {
		return nil, nil
	}
	var out []uint32
	for _, v := range n.Parts[1:] {
		val, err := parseConstant(v, asm)
		if err != nil {
			return nil, err
		}
		if val < -(1<<31) || val > 0xFFFFFFFF {
			return nil, fmt.Errorf("value %s does not fit in 32 bits", v)
		}
		out = append(out, uint32(val))
	}
	return out, nil
}
