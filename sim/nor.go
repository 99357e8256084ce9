package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/moffa90/go-stage0/memory"
)

// ErrInjected is returned by a NORFlash operation armed with FailNext.
var ErrInjected = errors.New("sim: injected flash fault")

// NORFlash is an in-memory NOR part: erase sets whole blocks to the erased
// value and programming can only clear bits.
type NORFlash struct {
	mu       sync.Mutex
	geo      memory.Geometry
	mem      []byte
	failNext int
	erases   int
	writes   int
}

// NewNORFlash creates an erased part with the given geometry.
func NewNORFlash(geo memory.Geometry) *NORFlash {
	mem := make([]byte, geo.Size)
	for i := range mem {
		mem[i] = geo.Erased
	}
	return &NORFlash{geo: geo, mem: mem, failNext: -1}
}

// Geometry implements memory.Flash.
func (f *NORFlash) Geometry() memory.Geometry {
	return f.geo
}

// Erase implements memory.Flash.
func (f *NORFlash) Erase(from, to uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fault(); err != nil {
		return err
	}
	if from%f.geo.EraseSize != 0 || to%f.geo.EraseSize != 0 || to < from || to > f.geo.Size {
		return fmt.Errorf("sim: bad erase range 0x%X-0x%X", from, to)
	}
	for i := from; i < to; i++ {
		f.mem[i] = f.geo.Erased
	}
	f.erases++
	return nil
}

// Write implements memory.Flash.
func (f *NORFlash) Write(off uint32, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fault(); err != nil {
		return err
	}
	n := uint32(len(p))
	if off%f.geo.WriteSize != 0 || n%f.geo.WriteSize != 0 {
		return fmt.Errorf("sim: unaligned write 0x%X+%d", off, n)
	}
	if off > f.geo.Size || n > f.geo.Size-off {
		return fmt.Errorf("sim: write 0x%X+%d past end of flash", off, n)
	}
	for i, b := range p {
		f.mem[off+uint32(i)] &= b
	}
	f.writes++
	return nil
}

// Read implements memory.Flash.
func (f *NORFlash) Read(off uint32, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := uint32(len(p))
	if off > f.geo.Size || n > f.geo.Size-off {
		return fmt.Errorf("sim: read 0x%X+%d past end of flash", off, n)
	}
	copy(p, f.mem[off:off+n])
	return nil
}

// FailNext lets n erase or write operations through and fails the one after
// with ErrInjected. FailNext(0) fails the very next one.
func (f *NORFlash) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// Counts returns the number of completed erases and writes.
func (f *NORFlash) Counts() (erases, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.erases, f.writes
}

// Snapshot returns a copy of n bytes at off.
func (f *NORFlash) Snapshot(off, n uint32) []byte {
	out := make([]byte, n)
	if err := f.Read(off, out); err != nil {
		panic(err)
	}
	return out
}

func (f *NORFlash) fault() error {
	switch {
	case f.failNext < 0:
		return nil
	case f.failNext == 0:
		f.failNext = -1
		return ErrInjected
	default:
		f.failNext--
		return nil
	}
}
