package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Urethramancer/rv32/cpu"
)

// Assembler holds the state for the assembly process.
type Assembler struct {
	symbols map[string]int64
	labels  map[string]uint32
}

// New creates a new Assembler instance.
func New() *Assembler {
	return &Assembler{
		symbols: make(map[string]int64),
		labels:  make(map[string]uint32),
	}
}

// maxSlot is the highest addressable instruction slot.
const maxSlot = 0xFFFFFFFF

// Entry is one assembled word and the slot it belongs in.
type Entry struct {
	Index uint32
	Word  uint32
	Line  int
}

// Program is the output of Assemble. Entries are sorted by slot index.
type Program struct {
	Base    uint32
	Entries []Entry
}

// Words returns the program as a contiguous block starting at the lowest
// used slot. Gaps left by .org are filled with zero words.
func (p *Program) Words() (start uint32, words []uint32) {
	if len(p.Entries) == 0 {
		return p.Base, nil
	}
	start = p.Entries[0].Index
	end := p.Entries[len(p.Entries)-1].Index
	words = make([]uint32, uint64(end)-uint64(start)+1)
	for _, e := range p.Entries {
		words[e.Index-start] = e.Word
	}
	return start, words
}

// Load writes every entry into the CPU's instruction memory and points PC at
// the base slot. Slots skipped by .org stay uninitialized.
func (p *Program) Load(c *cpu.CPU) error {
	for _, e := range p.Entries {
		err := c.LoadWord(e.Index, e.Word)
		if err != nil {
			return fmt.Errorf("line %d: %w", e.Line, err)
		}
	}
	return c.SetPC(p.Base)
}

// Assemble takes RISC-V assembly source and returns the placed instruction words.
// base is the slot index of the first instruction.
func (asm *Assembler) Assemble(src string, base uint32) (*Program, error) {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	clear(asm.symbols)
	clear(asm.labels)

	nodes, err := asm.parseLines(lines)
	if err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}

	// Pass: resolve label addresses and node sizes.
	// pc is kept wide so running off the last slot is caught instead of wrapping.
	pc := uint64(base)
	for _, n := range nodes {
		switch n.Type {
		case NodeLabel:
			if _, ok := asm.labels[n.Label]; ok {
				return nil, fmt.Errorf("line %d: duplicate label %s", n.Line, n.Label)
			}
			if pc > maxSlot {
				return nil, fmt.Errorf("line %d: label %s is past slot %#x", n.Line, n.Label, uint32(maxSlot))
			}
			asm.labels[n.Label] = uint32(pc)
			asm.symbols[n.Label] = int64(pc)
			continue
		case NodeDirective:
			if n.Mnemonic == ".org" {
				org, err := asm.orgTarget(n)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", n.Line, err)
				}
				pc = uint64(org)
				continue
			}
			n.Size, err = asm.getDirectiveSize(n)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
		case NodeInstruction:
			n.Size = 1
		}
		if pc+uint64(n.Size) > maxSlot+1 {
			return nil, fmt.Errorf("line %d: '%v' runs past slot %#x", n.Line, n.Parts, uint32(maxSlot))
		}
		pc += uint64(n.Size)
	}

	// Generate machine code.
	prog := &Program{Base: base}
	used := make(map[uint32]int)
	pc = uint64(base)
	for _, n := range nodes {
		var code []uint32

		switch n.Type {
		case NodeLabel:
			// Labels do not emit code.
			continue
		case NodeDirective:
			if n.Mnemonic == ".org" {
				org, _ := asm.orgTarget(n)
				pc = uint64(org)
				continue
			}
			code, err = asm.generateDirectiveCode(n)
		case NodeInstruction:
			code, err = asm.generateInstructionCode(n)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: error generating code for '%v': %w", n.Line, n.Parts, err)
		}

		for i, w := range code {
			idx := uint32(pc) + uint32(i)
			if prev, ok := used[idx]; ok {
				return nil, fmt.Errorf("line %d: slot %d already filled by line %d", n.Line, idx, prev)
			}
			used[idx] = n.Line
			prog.Entries = append(prog.Entries, Entry{Index: idx, Word: w, Line: n.Line})
		}
		pc += uint64(n.Size)
	}

	sort.Slice(prog.Entries, func(i, j int) bool {
		return prog.Entries[i].Index < prog.Entries[j].Index
	})
	return prog, nil
}

// parseLines converts raw source lines into a slice of Node objects.
func (asm *Assembler) parseLines(lines []string) ([]*Node, error) {
	var nodes []*Node
	for i, line := range lines {
		line = stripComment(line)
		if line == "" {
			continue
		}

		if label, rest, ok := strings.Cut(line, ":"); ok {
			label = strings.TrimSpace(label)
			if !reLabel.MatchString(label) {
				return nil, fmt.Errorf("line %d: invalid label %q", i+1, label)
			}
			nodes = append(nodes, &Node{Type: NodeLabel, Line: i + 1, Label: strings.ToLower(label), Parts: []string{label + ":"}})
			line = strings.TrimSpace(rest)
		}

		if line == "" {
			continue
		}

		var mnemonic, operandStr string
		firstSpace := strings.IndexAny(line, " \t")
		if firstSpace == -1 {
			mnemonic = line
		} else {
			mnemonic = line[:firstSpace]
			operandStr = strings.TrimSpace(line[firstSpace:])
		}
		mnemonic = strings.ToLower(mnemonic)

		nodeParts := append([]string{mnemonic}, splitOperands(operandStr)...)

		if isDirective(mnemonic) {
			n := &Node{Type: NodeDirective, Line: i + 1, Mnemonic: mnemonic, Parts: nodeParts}
			if mnemonic == ".equ" {
				err := asm.defineSymbol(n)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", i+1, err)
				}
				continue
			}
			nodes = append(nodes, n)
			continue
		}

		if _, ok := cpu.ParseOp(mnemonic); !ok {
			return nil, fmt.Errorf("line %d: unknown instruction %q: %w", i+1, mnemonic, cpu.ErrUnsupportedOpcode)
		}
		nodes = append(nodes, &Node{Type: NodeInstruction, Line: i + 1, Mnemonic: mnemonic, Parts: nodeParts})
	}
	return nodes, nil
}

// generateInstructionCode encodes a single R-type instruction.
func (asm *Assembler) generateInstructionCode(n *Node) ([]uint32, error) {
	op, _ := cpu.ParseOp(n.Mnemonic)
	rd, rs1, rs2, err := parseRegisters(n.Mnemonic, n.Parts[1:])
	if err != nil {
		return nil, err
	}
	w, err := cpu.Encode(op, rd, rs1, rs2)
	if err != nil {
		return nil, err
	}
	return []uint32{w}, nil
}
