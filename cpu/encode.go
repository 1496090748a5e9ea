package cpu

import "fmt"

// Encode packs an R-type operation and its registers into an instruction word.
func Encode(op Op, rd, rs1, rs2 uint32) (uint32, error) {
	info, ok := opInfo[op]
	if !ok {
		return 0, fmt.Errorf("encode %v: %w", op, ErrUnsupportedOpcode)
	}

	for _, r := range []struct {
		name string
		v    uint32
	}{{"rd", rd}, {"rs1", rs1}, {"rs2", rs2}} {
		if r.v > maskReg {
			return 0, fmt.Errorf("encode %v: %s=%d: %w", op, r.name, r.v, ErrInvalidOperand)
		}
	}

	return info.funct7<<shiftFunct7 |
		rs2<<shiftRS2 |
		rs1<<shiftRS1 |
		info.funct3<<shiftFunct3 |
		rd<<shiftRD |
		OPARITH, nil
}

// MustEncode is like Encode but panics on error.
// It is intended for fixed program tables.
func MustEncode(op Op, rd, rs1, rs2 uint32) uint32 {
	w, err := Encode(op, rd, rs1, rs2)
	if err != nil {
		panic(err)
	}
	return w
}
