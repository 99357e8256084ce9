package protocol

import "fmt"

// EncodeReply appends the schema encoding of a device reply to dst.
//
// Layout:
//
//	Ok:  [0][RESPONSE_TAG][FIELDS...]
//	Err: [1][ERROR_TAG][FIELDS...]
func EncodeReply(dst []byte, reply Reply) ([]byte, error) {
	switch {
	case reply.Err != nil:
		dst = appendTag(dst, ResultErr)
		return appendDeviceError(dst, reply.Err)
	case reply.Response != nil:
		dst = appendTag(dst, ResultOk)
		return appendResponse(dst, reply.Response)
	default:
		return dst, ErrMissingVariant
	}
}

func appendResponse(dst []byte, resp Response) ([]byte, error) {
	dst = appendTag(dst, resp.responseTag())

	switch r := resp.(type) {
	case PeekResult:
		dst = appendUint(dst, r.Addr)
		dst = appendView(dst, r.Val)
	case Poked:
		dst = appendUint(dst, r.Addr)
	case MagicCleared, FlashCopied:
	case FlashPeekResult:
		dst = appendUint(dst, r.Addr)
		dst = appendView(dst, r.Val)
	default:
		return dst, fmt.Errorf("unsupported response type %T", resp)
	}
	return dst, nil
}

func appendDeviceError(dst []byte, derr DeviceError) ([]byte, error) {
	dst = appendTag(dst, derr.errorTag())

	switch e := derr.(type) {
	case *AddressOutOfRangeError:
		dst = appendUint(dst, e.Request)
		dst = appendUint(dst, e.Len)
		dst = appendUint(dst, e.Min)
		dst = appendUint(dst, e.Max)
	case *RangeTooLargeError:
		dst = appendUint(dst, e.Request)
		dst = appendUint(dst, e.Max)
	case *UnalignedFlashAddrError:
		dst = appendUint(dst, e.Addr)
		dst = appendUint(dst, e.Align)
	case *CantOverwriteBootloaderError, *FlashCopyFailedError:
	default:
		return dst, fmt.Errorf("unsupported device error type %T", derr)
	}
	return dst, nil
}

// FrameReply encodes reply into a complete wire frame ready to send.
func FrameReply(reply Reply) ([]byte, error) {
	payload, err := EncodeReply(nil, reply)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(make([]byte, 0, CobsMaxEncodedLen(len(payload))+2), payload), nil
}

// DecodeReply decodes one schema-encoded device reply (already COBS-decoded).
func DecodeReply(payload []byte, own Ownership) (Reply, error) {
	d := newDecoder(payload, own)

	var reply Reply
	switch result := d.tag(); result {
	case ResultOk:
		reply.Response = decodeResponse(d)
	case ResultErr:
		reply.Err = decodeDeviceError(d)
	default:
		d.unknown("result", result)
	}

	if err := d.finish(); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func decodeResponse(d *decoder) Response {
	switch tag := d.tag(); tag {
	case TagRespPeekBytes:
		return PeekResult{Addr: d.uint(), Val: d.view()}
	case TagRespPoked:
		return Poked{Addr: d.uint()}
	case TagRespMagicCleared:
		return MagicCleared{}
	case TagRespPeekBytesFlash:
		return FlashPeekResult{Addr: d.uint(), Val: d.view()}
	case TagRespFlashCopied:
		return FlashCopied{}
	default:
		d.unknown("response", tag)
		return nil
	}
}

func decodeDeviceError(d *decoder) DeviceError {
	switch tag := d.tag(); tag {
	case TagErrAddressOutOfRange:
		return &AddressOutOfRangeError{Request: d.uint(), Len: d.uint(), Min: d.uint(), Max: d.uint()}
	case TagErrRangeTooLarge:
		return &RangeTooLargeError{Request: d.uint(), Max: d.uint()}
	case TagErrUnalignedFlashAddr:
		return &UnalignedFlashAddrError{Addr: d.uint(), Align: d.uint()}
	case TagErrCantOverwriteBootloader:
		return &CantOverwriteBootloaderError{}
	case TagErrFlashCopyFailed:
		return &FlashCopyFailedError{}
	default:
		d.unknown("device error", tag)
		return nil
	}
}
