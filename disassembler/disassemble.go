package disassembler

import (
	"fmt"
	"strings"

	"github.com/Urethramancer/rv32/cpu"
)

// Instruction represents a single decoded word at a specific slot.
type Instruction struct {
	Address  uint32
	Word     uint32
	Mnemonic string
	Operands string
	IsCode   bool // false for words that do not decode
}

// Decode turns each word into an Instruction. Words that are not supported
// instructions come back as .word data.
func Decode(words []uint32, base uint32) []Instruction {
	out := make([]Instruction, len(words))
	for i, w := range words {
		out[i] = decodeWord(w, base+uint32(i))
	}
	return out
}

func decodeWord(w, addr uint32) Instruction {
	inst := Instruction{Address: addr, Word: w}
	d, err := cpu.Decode(w)
	if err != nil {
		inst.Mnemonic = ".word"
		inst.Operands = fmt.Sprintf("0x%08X", w)
		return inst
	}
	inst.Mnemonic = d.Op.String()
	inst.Operands = fmt.Sprintf("x%d,x%d,x%d", d.Rd, d.Rs1, d.Rs2)
	inst.IsCode = true
	return inst
}

// Disassemble takes a little-endian byte slice of RISC-V machine code placed
// at slot base and returns source the assembler accepts.
func Disassemble(code []byte, base uint32) (string, error) {
	words, err := cpu.BytesToWords(code)
	if err != nil {
		return "", err
	}
	return DisassembleWords(words, base), nil
}

// DisassembleWords is Disassemble for already-split words.
func DisassembleWords(words []uint32, base uint32) string {
	if len(words) == 0 {
		return ""
	}

	var out strings.Builder
	if base != 0 {
		fmt.Fprintf(&out, "    %-8s %d\n", ".org", base)
	}
	for _, inst := range Decode(words, base) {
		fmt.Fprintf(&out, "    %-8s %s\n", inst.Mnemonic, inst.Operands)
	}
	return out.String()
}

// Listing renders one line per slot with index, raw word and disassembly.
func Listing(words []uint32, base uint32) string {
	var out strings.Builder
	for _, inst := range Decode(words, base) {
		fmt.Fprintf(&out, "%08X: %08X  %-8s %s\n", inst.Address, inst.Word, inst.Mnemonic, inst.Operands)
	}
	return out.String()
}
