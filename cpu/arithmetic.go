package cpu

// All arithmetic is unsigned 32-bit and wraps without trapping.

func opADD(a, b uint32) uint32 {
	return a + b
}

func opSUB(a, b uint32) uint32 {
	return a - b
}

// opSLL shifts left by the low five bits of b.
func opSLL(a, b uint32) uint32 {
	return a << (b & maskReg)
}

// opSRL shifts right by the low five bits of b, filling with zeroes.
func opSRL(a, b uint32) uint32 {
	return a >> (b & maskReg)
}
