package memory

import (
	"math"

	"github.com/moffa90/go-stage0/protocol"
)

// Region is a contiguous address range [Base, Base+Len).
type Region struct {
	Base uint
	Len  uint
}

// End returns the exclusive upper bound of the region.
func (r Region) End() uint {
	return r.Base + r.Len
}

// Valid reports whether the region itself fits the address space.
func (r Region) Valid() bool {
	return r.Base <= math.MaxUint-r.Len
}

// Check validates that [addr, addr+n) lies inside the region. The end is
// computed only after ruling out overflow, so a wrapping range is rejected
// rather than folded back into the region.
//
// A zero-length range at any address in [Base, End] is accepted.
func (r Region) Check(addr, n uint) error {
	if addr > math.MaxUint-n {
		return r.outOfRange(addr, n)
	}
	if addr < r.Base || addr+n > r.End() {
		return r.outOfRange(addr, n)
	}
	return nil
}

// Contains reports whether Check would accept (addr, n).
func (r Region) Contains(addr, n uint) bool {
	return r.Check(addr, n) == nil
}

func (r Region) outOfRange(addr, n uint) error {
	return &protocol.AddressOutOfRangeError{
		Request: addr,
		Len:     n,
		Min:     r.Base,
		Max:     r.End(),
	}
}
