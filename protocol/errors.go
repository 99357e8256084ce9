package protocol

import (
	"errors"
	"fmt"
)

// Codec errors. Framing and schema failures are recoverable: receivers drop
// the frame and resynchronise on the next delimiter.
var (
	// ErrDeserialize indicates well-framed bytes that do not match the schema.
	ErrDeserialize = errors.New("protocol: deserialize failed")

	// ErrUnknownTag indicates a variant tag outside the schema.
	ErrUnknownTag = errors.New("protocol: unknown variant tag")

	// ErrFrameTooLarge indicates a frame that overflowed the accumulator.
	ErrFrameTooLarge = errors.New("protocol: frame too large")

	// ErrMissingVariant indicates an attempt to encode a Reply with neither a
	// response nor an error set.
	ErrMissingVariant = errors.New("protocol: reply has no variant")
)

// DeviceError is an error reported by stage0 in place of a response.
//
// Implementations: *AddressOutOfRangeError, *RangeTooLargeError,
// *UnalignedFlashAddrError, *CantOverwriteBootloaderError, *FlashCopyFailedError.
type DeviceError interface {
	error
	errorTag() uint64
}

// AddressOutOfRangeError reports a request range not fully inside [Min, Max).
type AddressOutOfRangeError struct {
	Request uint
	Len     uint
	Min     uint
	Max     uint
}

func (e *AddressOutOfRangeError) Error() string {
	return fmt.Sprintf("address 0x%08X (len %d) out of range: valid range is 0x%08X-0x%08X",
		e.Request, e.Len, e.Min, e.Max)
}

// RangeTooLargeError reports a request longer than the device can serve at once.
type RangeTooLargeError struct {
	Request uint
	Max     uint
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("range of %d bytes too large: maximum is %d", e.Request, e.Max)
}

// UnalignedFlashAddrError reports a flash destination not on an erase boundary.
type UnalignedFlashAddrError struct {
	Addr  uint
	Align uint
}

func (e *UnalignedFlashAddrError) Error() string {
	return fmt.Sprintf("flash address 0x%08X not aligned to %d bytes", e.Addr, e.Align)
}

// CantOverwriteBootloaderError reports a flash write into the stage0 region.
type CantOverwriteBootloaderError struct{}

func (e *CantOverwriteBootloaderError) Error() string {
	return "flash write would overwrite the bootloader"
}

// FlashCopyFailedError reports a flash driver failure during erase or program.
type FlashCopyFailedError struct{}

func (e *FlashCopyFailedError) Error() string {
	return "flash copy failed"
}

func (*AddressOutOfRangeError) errorTag() uint64       { return TagErrAddressOutOfRange }
func (*RangeTooLargeError) errorTag() uint64           { return TagErrRangeTooLarge }
func (*UnalignedFlashAddrError) errorTag() uint64      { return TagErrUnalignedFlashAddr }
func (*CantOverwriteBootloaderError) errorTag() uint64 { return TagErrCantOverwriteBootloader }
func (*FlashCopyFailedError) errorTag() uint64         { return TagErrFlashCopyFailed }

// IsDeviceError returns true if err is, or wraps, a DeviceError.
func IsDeviceError(err error) bool {
	var de DeviceError
	return errors.As(err, &de)
}
