package cpu

import "fmt"

// DecodedInstruction holds the parsed fields of an R-type instruction.
type DecodedInstruction struct {
	Handler func(a, b uint32) uint32
	Op      Op
	Word    uint32
	Rd      uint32
	Rs1     uint32
	Rs2     uint32
	Funct3  uint32
	Funct7  uint32
}

// String renders the instruction in assembler syntax.
func (inst *DecodedInstruction) String() string {
	return fmt.Sprintf("%s x%d,x%d,x%d", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
}

// Decode takes a 32-bit instruction word and returns a structured DecodedInstruction.
func Decode(word uint32) (*DecodedInstruction, error) {
	inst := &DecodedInstruction{
		Word:   word,
		Rd:     word >> shiftRD & maskReg,
		Rs1:    word >> shiftRS1 & maskReg,
		Rs2:    word >> shiftRS2 & maskReg,
		Funct3: word >> shiftFunct3 & maskFunct3,
		Funct7: word >> shiftFunct7 & maskFunct7,
	}

	if opcode := word & maskOpcode; opcode != OPARITH {
		return nil, fmt.Errorf("opcode %02X in %08X: %w", opcode, word, ErrUnsupportedOpcode)
	}

	switch {
	case inst.Funct3 == F3ADDSUB && inst.Funct7 == F7BASE:
		inst.Op, inst.Handler = OpADD, opADD
	case inst.Funct3 == F3ADDSUB && inst.Funct7 == F7ALT:
		inst.Op, inst.Handler = OpSUB, opSUB
	case inst.Funct3 == F3SLL && inst.Funct7 == F7BASE:
		inst.Op, inst.Handler = OpSLL, opSLL
	case inst.Funct3 == F3SRL && inst.Funct7 == F7BASE:
		inst.Op, inst.Handler = OpSRL, opSRL
	default:
		return nil, fmt.Errorf("funct3=%X funct7=%02X in %08X: %w", inst.Funct3, inst.Funct7, word, ErrUnsupportedOpcode)
	}

	return inst, nil
}
