package memory

import (
	"fmt"
	"io"
)

// BlockDevice is the block device shape exposed by TinyGo's machine.Flash.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
	WriteBlockSize() int64
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// BlockFlash adapts a BlockDevice to Flash.
type BlockFlash struct {
	dev BlockDevice
	geo Geometry
}

// NewBlockFlash wraps dev. NOR parts erase to 0xFF.
func NewBlockFlash(dev BlockDevice) *BlockFlash {
	return &BlockFlash{
		dev: dev,
		geo: Geometry{
			Size:      uint32(dev.Size()),
			EraseSize: uint32(dev.EraseBlockSize()),
			WriteSize: uint32(dev.WriteBlockSize()),
			Erased:    0xFF,
		},
	}
}

// Geometry implements Flash.
func (b *BlockFlash) Geometry() Geometry {
	return b.geo
}

// Erase implements Flash. from and to must be erase-aligned.
func (b *BlockFlash) Erase(from, to uint32) error {
	es := b.geo.EraseSize
	if from%es != 0 || to%es != 0 || to < from {
		return fmt.Errorf("erase range 0x%X-0x%X not aligned to %d", from, to, es)
	}
	return b.dev.EraseBlocks(int64(from/es), int64((to-from)/es))
}

// Write implements Flash.
func (b *BlockFlash) Write(off uint32, p []byte) error {
	n, err := b.dev.WriteAt(p, int64(off))
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

// Read implements Flash.
func (b *BlockFlash) Read(off uint32, p []byte) error {
	n, err := b.dev.ReadAt(p, int64(off))
	if err != nil && !(err == io.EOF && n == len(p)) {
		return err
	}
	if n != len(p) {
		return io.ErrUnexpectedEOF
	}
	return nil
}
