package memory

import (
	"fmt"

	"github.com/moffa90/go-stage0/protocol"
)

// Geometry describes a NOR flash part.
type Geometry struct {
	// Size is the total flash size in bytes.
	Size uint32

	// EraseSize is the erase block size. Erase ranges are multiples of it.
	EraseSize uint32

	// WriteSize is the program granularity. Writes start on and span
	// multiples of it.
	WriteSize uint32

	// Erased is the value every byte holds after an erase.
	Erased byte
}

// Validate checks that the geometry is usable.
func (g Geometry) Validate() error {
	switch {
	case g.Size == 0:
		return fmt.Errorf("flash size cannot be zero")
	case g.EraseSize == 0 || g.WriteSize == 0:
		return fmt.Errorf("flash erase and write sizes must be non-zero")
	case g.EraseSize%g.WriteSize != 0:
		return fmt.Errorf("erase size %d not a multiple of write size %d", g.EraseSize, g.WriteSize)
	case g.Size%g.EraseSize != 0:
		return fmt.Errorf("flash size %d not a multiple of erase size %d", g.Size, g.EraseSize)
	}
	return nil
}

// Flash is a NOR flash driver addressed by offset from the start of flash.
type Flash interface {
	Geometry() Geometry
	Erase(from, to uint32) error
	Write(off uint32, p []byte) error
	Read(off uint32, p []byte) error
}

// FlashArea is the programmable part of flash. The bootloader itself occupies
// [0, protected) and is never erased or written.
type FlashArea struct {
	dev       Flash
	geo       Geometry
	region    Region
	protected uint

	// Working buffers, allocated once.
	block []byte
	pad   []byte
}

// NewFlashArea wraps dev and protects its first protected bytes.
func NewFlashArea(dev Flash, protected uint32) (*FlashArea, error) {
	if dev == nil {
		return nil, fmt.Errorf("flash device cannot be nil")
	}
	geo := dev.Geometry()
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if protected > geo.Size {
		return nil, fmt.Errorf("protected size 0x%X exceeds flash size 0x%X", protected, geo.Size)
	}

	return &FlashArea{
		dev:       dev,
		geo:       geo,
		region:    Region{Base: 0, Len: uint(geo.Size)},
		protected: uint(protected),
		block:     make([]byte, geo.EraseSize),
		pad:       make([]byte, geo.WriteSize),
	}, nil
}

// Geometry returns the geometry of the underlying part.
func (f *FlashArea) Geometry() Geometry {
	return f.geo
}

// Region returns the whole flash address range.
func (f *FlashArea) Region() Region {
	return f.region
}

// Protected returns the size of the bootloader region at the start of flash.
func (f *FlashArea) Protected() uint {
	return f.protected
}

// Read copies n bytes at flash offset addr into out and returns out[:n].
// A driver failure is reported as *protocol.FlashCopyFailedError.
func (f *FlashArea) Read(addr, n uint, out []byte) ([]byte, error) {
	if err := f.region.Check(addr, n); err != nil {
		return nil, err
	}
	if n > uint(len(out)) {
		return nil, &protocol.RangeTooLargeError{Request: n, Max: uint(len(out))}
	}
	if n == 0 {
		return out[:0], nil
	}
	if err := f.dev.Read(uint32(addr), out[:n]); err != nil {
		return nil, &protocol.FlashCopyFailedError{}
	}
	return out[:n], nil
}

// CopyFromScratch programs n bytes of scratch RAM at ramStart into flash at
// flashStart, one erase block at a time.
func (f *FlashArea) CopyFromScratch(scratch *Scratch, ramStart, flashStart, n uint) error {
	if err := f.checkDest(flashStart, n); err != nil {
		return err
	}
	if err := scratch.Region().Check(ramStart, n); err != nil {
		return err
	}

	step := uint(f.geo.EraseSize)
	for off := uint(0); off < n; off += step {
		chunk := min(step, n-off)
		data, err := scratch.Read(ramStart+off, chunk, f.block)
		if err != nil {
			return err
		}
		if err := f.programBlock(flashStart+off, data); err != nil {
			return err
		}
	}
	return nil
}

// Program writes data into flash at flashStart with the same checks and
// block algorithm as CopyFromScratch.
func (f *FlashArea) Program(flashStart uint, data []byte) error {
	if err := f.checkDest(flashStart, uint(len(data))); err != nil {
		return err
	}

	step := int(f.geo.EraseSize)
	for off := 0; off < len(data); off += step {
		end := min(off+step, len(data))
		if err := f.programBlock(flashStart+uint(off), data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlashArea) checkDest(flashStart, n uint) error {
	if flashStart%uint(f.geo.EraseSize) != 0 {
		return &protocol.UnalignedFlashAddrError{Addr: flashStart, Align: uint(f.geo.EraseSize)}
	}
	if flashStart < f.protected {
		return &protocol.CantOverwriteBootloaderError{}
	}
	return f.region.Check(flashStart, n)
}

// programBlock erases the whole block at addr and writes data (at most one
// block) into it. A trailing partial write unit is padded with the erased
// value.
func (f *FlashArea) programBlock(addr uint, data []byte) error {
	from := uint32(addr)
	if err := f.dev.Erase(from, from+f.geo.EraseSize); err != nil {
		return &protocol.FlashCopyFailedError{}
	}

	ws := int(f.geo.WriteSize)
	aligned := len(data) - len(data)%ws
	if aligned > 0 {
		if err := f.dev.Write(from, data[:aligned]); err != nil {
			return &protocol.FlashCopyFailedError{}
		}
	}

	if rest := data[aligned:]; len(rest) > 0 {
		n := copy(f.pad, rest)
		for i := n; i < ws; i++ {
			f.pad[i] = f.geo.Erased
		}
		if err := f.dev.Write(from+uint32(aligned), f.pad); err != nil {
			return &protocol.FlashCopyFailedError{}
		}
	}
	return nil
}
