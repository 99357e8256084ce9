// Package stage0 implements the device side of the stage0 bootloader: it
// decodes requests arriving on the serial port, validates and executes them
// against scratch RAM, flash and the handoff record, and writes the replies.
//
// All buffers are allocated by New. Serving a request does not allocate.
package stage0

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/moffa90/go-stage0/handoff"
	"github.com/moffa90/go-stage0/memory"
	"github.com/moffa90/go-stage0/protocol"
)

var (
	// ErrDisconnected is returned by Serve when the port fails or closes.
	ErrDisconnected = errors.New("stage0: port disconnected")

	// ErrReset is returned by Serve when a reset was requested and the
	// Resetter returned, which only happens off hardware.
	ErrReset = errors.New("stage0: reset requested")
)

// Stats counts dispatcher activity since New.
type Stats struct {
	Frames      uint64
	Replies     uint64
	OverFull    uint64
	DeserErrors uint64
}

// Device is the stage0 request dispatcher.
type Device struct {
	scratch *memory.Scratch
	flash   *memory.FlashArea
	record  *handoff.Record
	reset   Resetter
	config  Config

	acc     *protocol.Accumulator[protocol.Request]
	readBuf []byte
	peekBuf []byte
	payload []byte
	frame   []byte

	frames      atomic.Uint64
	replies     atomic.Uint64
	overFull    atomic.Uint64
	deserErrors atomic.Uint64
}

// New creates a Device. All working buffers are allocated here.
//
// Example:
//
//	scratch := memory.NewScratch(memory.Region{Base: 0x20008000, Len: 0x38000}, memory.Physical{})
//	flash, _ := memory.NewFlashArea(memory.NewBlockFlash(machine.Flash), 0x10000)
//	dev := stage0.New(scratch, flash, handoff.NewRecord(handoff.HardwareCell{}), stage0.SystemReset{})
func New(scratch *memory.Scratch, flash *memory.FlashArea, record *handoff.Record, reset Resetter, opts ...Option) *Device {
	if scratch == nil || flash == nil || record == nil || reset == nil {
		panic("stage0: scratch, flash, record and resetter are required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Largest reply: result + tag + address + length prefix + peek bytes.
	maxPayload := cfg.PeekBufferSize + 4*protocol.MaxVarintLen
	return &Device{
		scratch: scratch,
		flash:   flash,
		record:  record,
		reset:   reset,
		config:  cfg,
		acc:     protocol.NewRequestAccumulator(cfg.AccumulatorSize, protocol.Borrow),
		readBuf: make([]byte, cfg.ReadBufferSize),
		peekBuf: make([]byte, cfg.PeekBufferSize),
		payload: make([]byte, 0, maxPayload),
		frame:   make([]byte, 0, protocol.CobsMaxEncodedLen(maxPayload)+2),
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Device) Stats() Stats {
	return Stats{
		Frames:      d.frames.Load(),
		Replies:     d.replies.Load(),
		OverFull:    d.overFull.Load(),
		DeserErrors: d.deserErrors.Load(),
	}
}

// Handle executes one request. respond is false for requests that end in a
// reset, and reset is true when the caller must reset the device after
// draining. Byte views in the reply alias device buffers and are valid until
// the next Handle.
func (d *Device) Handle(req protocol.Request) (reply protocol.Reply, respond bool, reset bool) {
	switch r := req.(type) {
	case protocol.PeekBytes:
		data, err := d.scratch.Read(r.Addr, r.Len, d.peekBuf)
		if err != nil {
			return protocol.Fail(deviceError(err)), true, false
		}
		return protocol.Ok(protocol.PeekResult{Addr: r.Addr, Val: protocol.Borrowed(data)}), true, false

	case protocol.PokeBytes:
		var src []byte
		if r.Val != nil {
			src = r.Val.Bytes()
		}
		if err := d.scratch.Write(r.Addr, src); err != nil {
			return protocol.Fail(deviceError(err)), true, false
		}
		return protocol.Ok(protocol.Poked{Addr: r.Addr}), true, false

	case protocol.PeekBytesFlash:
		data, err := d.flash.Read(r.Addr, r.Len, d.peekBuf)
		if err != nil {
			return protocol.Fail(deviceError(err)), true, false
		}
		return protocol.Ok(protocol.FlashPeekResult{Addr: r.Addr, Val: protocol.Borrowed(data)}), true, false

	case protocol.FlashCopy:
		if err := d.flash.CopyFromScratch(d.scratch, r.RAMStart, r.FlashStart, r.Len); err != nil {
			return protocol.Fail(deviceError(err)), true, false
		}
		return protocol.Ok(protocol.FlashCopied{}), true, false

	case protocol.ClearMagic:
		d.record.Clear()
		return protocol.Ok(protocol.MagicCleared{}), true, false

	case protocol.Bootload:
		d.record.WriteHandoff(r.Addr)
		return protocol.Reply{}, false, true

	case protocol.Reboot:
		return protocol.Reply{}, false, true

	default:
		// Unreachable for decoded requests.
		return protocol.Reply{}, false, false
	}
}

// deviceError maps a memory layer failure onto the reply error schema.
func deviceError(err error) protocol.DeviceError {
	var de protocol.DeviceError
	if errors.As(err, &de) {
		return de
	}
	return &protocol.FlashCopyFailedError{}
}

// encodeReply renders reply into the device frame buffer.
func (d *Device) encodeReply(reply protocol.Reply) ([]byte, error) {
	payload, err := protocol.EncodeReply(d.payload[:0], reply)
	if err != nil {
		return nil, fmt.Errorf("encode reply: %w", err)
	}
	return protocol.EncodeFrame(d.frame[:0], payload), nil
}

// logDebug logs a debug message if a logger is configured.
func (d *Device) logDebug(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (d *Device) logInfo(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (d *Device) logError(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, keysAndValues...)
	}
}
