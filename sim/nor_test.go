package sim

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-stage0/memory"
)

func newTestNOR() *NORFlash {
	return NewNORFlash(memory.Geometry{Size: 0x4000, EraseSize: 0x1000, WriteSize: 4, Erased: 0xFF})
}

func TestNORFlashStartsErased(t *testing.T) {
	f := newTestNOR()
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 16), f.Snapshot(0x3FF0, 16))
}

func TestNORFlashWriteClearsBitsOnly(t *testing.T) {
	f := newTestNOR()

	require.NoError(t, f.Write(0x100, []byte{0xF0, 0x0F, 0xAA, 0x55}))
	require.NoError(t, f.Write(0x100, []byte{0x3C, 0x3C, 0xFF, 0xFF}))
	assert.Equal(t, []byte{0x30, 0x0C, 0xAA, 0x55}, f.Snapshot(0x100, 4))

	require.NoError(t, f.Erase(0, 0x1000))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, f.Snapshot(0x100, 4))

	erases, writes := f.Counts()
	assert.Equal(t, 1, erases)
	assert.Equal(t, 2, writes)
}

func TestNORFlashEnforcesGeometry(t *testing.T) {
	f := newTestNOR()

	tests := []struct {
		name string
		op   func() error
	}{
		{"unaligned erase start", func() error { return f.Erase(0x10, 0x1000) }},
		{"unaligned erase end", func() error { return f.Erase(0, 0x1010) }},
		{"inverted erase", func() error { return f.Erase(0x2000, 0x1000) }},
		{"erase past end", func() error { return f.Erase(0x3000, 0x5000) }},
		{"unaligned write offset", func() error { return f.Write(0x2, []byte{1, 2, 3, 4}) }},
		{"unaligned write length", func() error { return f.Write(0x0, []byte{1, 2, 3}) }},
		{"write past end", func() error { return f.Write(0x3FFC, []byte{1, 2, 3, 4, 5, 6, 7, 8}) }},
		{"read past end", func() error { return f.Read(0x3FFF, make([]byte, 2)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.op())
		})
	}
}

func TestNORFlashFailNext(t *testing.T) {
	f := newTestNOR()
	f.FailNext(1)

	require.NoError(t, f.Erase(0, 0x1000))
	err := f.Write(0, []byte{0, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrInjected))

	// one-shot
	require.NoError(t, f.Write(0, []byte{0, 0, 0, 0}))
	assert.Equal(t, []byte{0, 0, 0, 0}, f.Snapshot(0, 4))
}
