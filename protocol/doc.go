// Package protocol implements the stage0 wire protocol.
//
// This package provides the frame codec and message schema shared by the
// stage0 bootloader and the host tools, plus the application ICD spoken by
// application firmware in the same serial port.
//
// # Protocol Overview
//
// Every message travels as one COBS frame between zero delimiters:
//
//	[0x00][COBS(payload)][0x00]
//
// The leading zero is a guard: a receiver that lost sync sees an empty frame
// and skips it. The payload is a tagged union where every integer and variant
// tag is an unsigned LEB128 varint and byte strings are length-prefixed:
//
//	Request:  [TAG][FIELDS...]
//	Reply:    [RESULT][TAG][FIELDS...]
//
// Requests that reference memory carry an absolute address and the matching
// response echoes it. There are no sequence numbers; hosts correlate by
// address and keep at most one request in flight.
//
// # Encoding
//
// Use the Frame* functions to build complete wire frames:
//
//	frame, err := protocol.FrameRequest(protocol.PeekBytes{Addr: 0x20008000, Len: 64})
//	frame, err := protocol.FrameReply(protocol.Ok(protocol.Poked{Addr: addr}))
//
// # Decoding
//
// Feed raw reads into an Accumulator and handle each completed frame:
//
//	acc := protocol.NewReplyAccumulator(protocol.DefaultAccumulatorSize, protocol.Own)
//	for window := chunk; len(window) > 0; {
//	    res := acc.Feed(window)
//	    window = res.Remaining
//	    if res.Status == protocol.Success {
//	        handle(res.Value)
//	    }
//	}
//
// Decoders take an Ownership. Device code uses Borrow so payloads alias the
// receive buffer; host code uses Own so payloads survive the read loop.
//
// # Error Handling
//
// Device-side failures arrive as a Reply whose Err is one of the DeviceError
// types. They implement error and can be matched with errors.As:
//
//	var oor *protocol.AddressOutOfRangeError
//	if errors.As(err, &oor) {
//	    fmt.Printf("valid range: 0x%08X-0x%08X\n", oor.Min, oor.Max)
//	}
//
// Malformed frames never surface as device errors. The accumulator reports
// them as OverFull or DeserError and resynchronises on the next delimiter.
package protocol
