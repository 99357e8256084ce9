package protocol

// Request is a host-to-device message of the stage0 ICD.
//
// Implementations: PeekBytes, PokeBytes, ClearMagic, Reboot, Bootload,
// PeekBytesFlash, FlashCopy.
type Request interface {
	requestTag() uint64
}

// PeekBytes reads Len bytes of scratch RAM starting at Addr.
type PeekBytes struct {
	Addr uint
	Len  uint
}

// PokeBytes writes Val into scratch RAM starting at Addr.
type PokeBytes struct {
	Addr uint
	Val  ByteView
}

// ClearMagic zeroes the handoff record.
type ClearMagic struct{}

// Reboot resets the device into stage0.
type Reboot struct{}

// Bootload arms the handoff record with Addr and resets. The device does not
// validate Addr; whoever can open the port is trusted.
type Bootload struct {
	Addr uint32
}

// PeekBytesFlash reads Len bytes of flash starting at Addr.
type PeekBytesFlash struct {
	Addr uint
	Len  uint
}

// FlashCopy programs Len bytes from scratch RAM at RAMStart into flash at
// FlashStart.
type FlashCopy struct {
	RAMStart   uint
	FlashStart uint
	Len        uint
}

func (PeekBytes) requestTag() uint64      { return TagPeekBytes }
func (PokeBytes) requestTag() uint64      { return TagPokeBytes }
func (ClearMagic) requestTag() uint64     { return TagClearMagic }
func (Reboot) requestTag() uint64         { return TagReboot }
func (Bootload) requestTag() uint64       { return TagBootload }
func (PeekBytesFlash) requestTag() uint64 { return TagPeekBytesFlash }
func (FlashCopy) requestTag() uint64      { return TagFlashCopy }

// Response is a successful device reply.
//
// Implementations: PeekResult, Poked, MagicCleared, FlashPeekResult, FlashCopied.
type Response interface {
	responseTag() uint64
}

// PeekResult answers PeekBytes and echoes its address.
type PeekResult struct {
	Addr uint
	Val  ByteView
}

// Poked answers PokeBytes and echoes its address.
type Poked struct {
	Addr uint
}

// MagicCleared answers ClearMagic.
type MagicCleared struct{}

// FlashPeekResult answers PeekBytesFlash and echoes its address.
type FlashPeekResult struct {
	Addr uint
	Val  ByteView
}

// FlashCopied answers FlashCopy.
type FlashCopied struct{}

func (PeekResult) responseTag() uint64      { return TagRespPeekBytes }
func (Poked) responseTag() uint64           { return TagRespPoked }
func (MagicCleared) responseTag() uint64    { return TagRespMagicCleared }
func (FlashPeekResult) responseTag() uint64 { return TagRespPeekBytesFlash }
func (FlashCopied) responseTag() uint64     { return TagRespFlashCopied }

// EchoAddr returns the address echoed by r, if r carries one.
func EchoAddr(r Response) (uint, bool) {
	switch v := r.(type) {
	case PeekResult:
		return v.Addr, true
	case Poked:
		return v.Addr, true
	case FlashPeekResult:
		return v.Addr, true
	default:
		return 0, false
	}
}

// Reply is what the device sends back for a request: exactly one of Response
// or Err is set.
type Reply struct {
	Response Response
	Err      DeviceError
}

// Ok wraps a successful response.
func Ok(r Response) Reply {
	return Reply{Response: r}
}

// Fail wraps a device error.
func Fail(err DeviceError) Reply {
	return Reply{Err: err}
}

// IsErr reports whether the reply carries a device error.
func (r Reply) IsErr() bool {
	return r.Err != nil
}
