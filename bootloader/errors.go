package bootloader

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected indicates the port failed or closed mid-operation.
	ErrDisconnected = errors.New("bootloader: device disconnected")

	// ErrTimeout indicates no matching reply arrived within the response timeout.
	ErrTimeout = errors.New("bootloader: timed out waiting for reply")
)

// ShortReplyError indicates a peek reply carrying fewer bytes than requested.
type ShortReplyError struct {
	Addr     uint
	Expected int
	Actual   int
}

func (e *ShortReplyError) Error() string {
	return fmt.Sprintf("short reply at 0x%08X: expected %d bytes, got %d",
		e.Addr, e.Expected, e.Actual)
}

// ImagePlacementError indicates an image that fits neither scratch RAM nor
// the programmable flash.
type ImagePlacementError struct {
	Addr uint
	Len  int
}

func (e *ImagePlacementError) Error() string {
	return fmt.Sprintf("image at 0x%08X (%d bytes) fits neither scratch RAM nor application flash",
		e.Addr, e.Len)
}
