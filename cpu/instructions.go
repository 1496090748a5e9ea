package cpu

import "fmt"

// Op identifies one of the supported R-type operations.
type Op int

const (
	// OpInvalid is the zero value, indicating no operation was selected.
	OpInvalid Op = iota
	// OpADD adds rs1 and rs2.
	OpADD
	// OpSUB subtracts rs2 from rs1.
	OpSUB
	// OpSLL shifts rs1 left by the low five bits of rs2.
	OpSLL
	// OpSRL shifts rs1 right (logical) by the low five bits of rs2.
	OpSRL
)

// Ops lists every supported operation in encoding order.
var Ops = []Op{OpADD, OpSUB, OpSLL, OpSRL}

// Base opcode and function codes.
const (
	OPARITH = 0x33 // R-type integer arithmetic

	F3ADDSUB = 0x0
	F3SLL    = 0x1
	F3SRL    = 0x5

	F7BASE = 0x00
	F7ALT  = 0x20 // SUB (and SRA, unsupported)
)

// Field positions and masks within an instruction word.
const (
	shiftRD     = 7
	shiftFunct3 = 12
	shiftRS1    = 15
	shiftRS2    = 20
	shiftFunct7 = 25

	maskOpcode = 0x7F
	maskReg    = 0x1F
	maskFunct3 = 0x7
	maskFunct7 = 0x7F
)

// NumRegs is the size of the register file.
const NumRegs = 32

// opInfo ties each operation to its function codes and mnemonic.
var opInfo = map[Op]struct {
	funct3, funct7 uint32
	name           string
}{
	OpADD: {F3ADDSUB, F7BASE, "add"},
	OpSUB: {F3ADDSUB, F7ALT, "sub"},
	OpSLL: {F3SLL, F7BASE, "sll"},
	OpSRL: {F3SRL, F7BASE, "srl"},
}

// String returns the lowercase mnemonic.
func (o Op) String() string {
	if info, ok := opInfo[o]; ok {
		return info.name
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp looks up an operation by mnemonic (case-sensitive, lowercase).
func ParseOp(s string) (Op, bool) {
	for op, info := range opInfo {
		if info.name == s {
			return op, true
		}
	}
	return OpInvalid, false
}
