package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlockDevice struct {
	mem    []byte
	erased [][2]int64
}

func (d *fakeBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, d.mem[off:]), nil
}

func (d *fakeBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	return copy(d.mem[off:], p), nil
}

func (d *fakeBlockDevice) Size() int64           { return int64(len(d.mem)) }
func (d *fakeBlockDevice) WriteBlockSize() int64 { return 4 }
func (d *fakeBlockDevice) EraseBlockSize() int64 { return 256 }

func (d *fakeBlockDevice) EraseBlocks(start, length int64) error {
	d.erased = append(d.erased, [2]int64{start, length})
	for i := start * 256; i < (start+length)*256; i++ {
		d.mem[i] = 0xFF
	}
	return nil
}

func TestBlockFlash(t *testing.T) {
	dev := &fakeBlockDevice{mem: make([]byte, 1024)}
	flash := NewBlockFlash(dev)

	assert.Equal(t, Geometry{Size: 1024, EraseSize: 256, WriteSize: 4, Erased: 0xFF}, flash.Geometry())

	require.NoError(t, flash.Erase(256, 768))
	assert.Equal(t, [][2]int64{{1, 2}}, dev.erased)

	require.NoError(t, flash.Write(256, []byte{1, 2, 3, 4}))
	out := make([]byte, 6)
	require.NoError(t, flash.Read(256, out))
	assert.Equal(t, []byte{1, 2, 3, 4, 0xFF, 0xFF}, out)

	assert.Error(t, flash.Erase(10, 256))
}

func TestBlockFlashShortRead(t *testing.T) {
	dev := &fakeBlockDevice{mem: make([]byte, 8)}
	flash := NewBlockFlash(dev)

	assert.Error(t, flash.Read(4, make([]byte, 8)))
}
