//go:build tinygo

package memory

import "unsafe"

// Physical is a Backend that copies straight through absolute pointers.
type Physical struct{}

// Load implements Backend.
func (Physical) Load(addr uint, dst []byte) {
	if len(dst) == 0 {
		return
	}
	copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(dst)))
}

// Store implements Backend.
func (Physical) Store(addr uint, src []byte) {
	if len(src) == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(src)), src)
}
