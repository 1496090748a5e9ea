package cpu

import "fmt"

// Memory is a word-indexed instruction store that remembers which slots were written.
type Memory struct {
	words   []uint32
	written []bool
}

// NewMemory allocates size empty slots.
func NewMemory(size int) *Memory {
	return &Memory{
		words:   make([]uint32, size),
		written: make([]bool, size),
	}
}

// Size returns the number of slots.
func (m *Memory) Size() int {
	return len(m.words)
}

// Read returns the word at index.
func (m *Memory) Read(index uint32) (uint32, error) {
	if uint64(index) >= uint64(len(m.words)) {
		return 0, fmt.Errorf("read slot %d of %d: %w", index, len(m.words), ErrAddressRange)
	}
	if !m.written[index] {
		return 0, fmt.Errorf("read slot %d: %w", index, ErrUninitializedRead)
	}
	return m.words[index], nil
}

// Write stores word at index.
func (m *Memory) Write(index, word uint32) error {
	if uint64(index) >= uint64(len(m.words)) {
		return fmt.Errorf("write slot %d of %d: %w", index, len(m.words), ErrAddressRange)
	}
	m.words[index] = word
	m.written[index] = true
	return nil
}

// Clear forgets every slot.
func (m *Memory) Clear() {
	clear(m.words)
	clear(m.written)
}

// Loaded returns the indices of written slots in ascending order.
func (m *Memory) Loaded() []uint32 {
	var out []uint32
	for i, ok := range m.written {
		if ok {
			out = append(out, uint32(i))
		}
	}
	return out
}
