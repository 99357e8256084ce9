package memory

import "fmt"

// Backend performs raw copies at absolute addresses. Callers validate ranges
// first; a Backend may assume every access is in bounds.
type Backend interface {
	Load(addr uint, dst []byte)
	Store(addr uint, src []byte)
}

// RAM is a Backend over a byte slice mapped at Base. The simulator and host
// tests use it in place of physical memory.
type RAM struct {
	base uint
	mem  []byte
}

// NewRAM allocates size bytes mapped at base.
func NewRAM(base, size uint) *RAM {
	return &RAM{base: base, mem: make([]byte, size)}
}

// Region returns the address range the RAM covers.
func (m *RAM) Region() Region {
	return Region{Base: m.base, Len: uint(len(m.mem))}
}

// Load implements Backend.
func (m *RAM) Load(addr uint, dst []byte) {
	copy(dst, m.slice(addr, len(dst)))
}

// Store implements Backend.
func (m *RAM) Store(addr uint, src []byte) {
	copy(m.slice(addr, len(src)), src)
}

// Bytes exposes the backing slice.
func (m *RAM) Bytes() []byte {
	return m.mem
}

func (m *RAM) slice(addr uint, n int) []byte {
	if !m.Region().Contains(addr, uint(n)) {
		panic(fmt.Sprintf("memory: access 0x%08X+%d outside RAM 0x%08X-0x%08X",
			addr, n, m.base, m.base+uint(len(m.mem))))
	}
	off := addr - m.base
	return m.mem[off : off+uint(n)]
}
