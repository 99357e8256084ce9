package memory

import (
	"github.com/moffa90/go-stage0/protocol"
)

// Scratch is the RAM window the host may peek and poke.
type Scratch struct {
	region  Region
	backend Backend
}

// NewScratch creates a scratch window over backend.
func NewScratch(region Region, backend Backend) *Scratch {
	if backend == nil {
		panic("memory: backend cannot be nil")
	}
	return &Scratch{region: region, backend: backend}
}

// Region returns the scratch address range.
func (s *Scratch) Region() Region {
	return s.region
}

// Read copies n bytes at addr into out and returns out[:n].
//
// Errors are *protocol.AddressOutOfRangeError when the range leaves the
// window and *protocol.RangeTooLargeError when n exceeds len(out). Nothing
// is read on error.
func (s *Scratch) Read(addr, n uint, out []byte) ([]byte, error) {
	if err := s.region.Check(addr, n); err != nil {
		return nil, err
	}
	if n > uint(len(out)) {
		return nil, &protocol.RangeTooLargeError{Request: n, Max: uint(len(out))}
	}
	if n == 0 {
		return out[:0], nil
	}

	Fence()
	s.backend.Load(addr, out[:n])
	Fence()
	return out[:n], nil
}

// Write copies src to addr. Nothing is written on error.
func (s *Scratch) Write(addr uint, src []byte) error {
	n := uint(len(src))
	if err := s.region.Check(addr, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	Fence()
	s.backend.Store(addr, src)
	Fence()
	return nil
}
