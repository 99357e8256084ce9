package protocol

import "fmt"

// EncodeRequest appends the schema encoding of req to dst.
//
// Layout (all integers are varints):
//
//	PeekBytes:      [0][ADDR][LEN]
//	PokeBytes:      [1][ADDR][LEN][BYTES...]
//	ClearMagic:     [2]
//	Reboot:         [3]
//	Bootload:       [4][ADDR]
//	PeekBytesFlash: [5][ADDR][LEN]
//	FlashCopy:      [6][RAM_START][FLASH_START][LEN]
func EncodeRequest(dst []byte, req Request) ([]byte, error) {
	if req == nil {
		return dst, fmt.Errorf("request cannot be nil")
	}

	dst = appendTag(dst, req.requestTag())

	switch r := req.(type) {
	case PeekBytes:
		dst = appendUint(dst, r.Addr)
		dst = appendUint(dst, r.Len)
	case PokeBytes:
		dst = appendUint(dst, r.Addr)
		dst = appendView(dst, r.Val)
	case ClearMagic, Reboot:
	case Bootload:
		dst = appendU32(dst, r.Addr)
	case PeekBytesFlash:
		dst = appendUint(dst, r.Addr)
		dst = appendUint(dst, r.Len)
	case FlashCopy:
		dst = appendUint(dst, r.RAMStart)
		dst = appendUint(dst, r.FlashStart)
		dst = appendUint(dst, r.Len)
	default:
		return dst, fmt.Errorf("unsupported request type %T", req)
	}

	return dst, nil
}

// FrameRequest encodes req into a complete wire frame ready to send.
func FrameRequest(req Request) ([]byte, error) {
	payload, err := EncodeRequest(nil, req)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(make([]byte, 0, CobsMaxEncodedLen(len(payload))+2), payload), nil
}

// DecodeRequest decodes one schema-encoded request (already COBS-decoded).
func DecodeRequest(payload []byte, own Ownership) (Request, error) {
	d := newDecoder(payload, own)

	var req Request
	switch tag := d.tag(); tag {
	case TagPeekBytes:
		req = PeekBytes{Addr: d.uint(), Len: d.uint()}
	case TagPokeBytes:
		req = PokeBytes{Addr: d.uint(), Val: d.view()}
	case TagClearMagic:
		req = ClearMagic{}
	case TagReboot:
		req = Reboot{}
	case TagBootload:
		req = Bootload{Addr: d.u32()}
	case TagPeekBytesFlash:
		req = PeekBytesFlash{Addr: d.uint(), Len: d.uint()}
	case TagFlashCopy:
		req = FlashCopy{RAMStart: d.uint(), FlashStart: d.uint(), Len: d.uint()}
	default:
		d.unknown("request", tag)
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return req, nil
}
