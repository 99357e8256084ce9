package bootloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/moffa90/go-stage0/image"
	"github.com/moffa90/go-stage0/memory"
	"github.com/moffa90/go-stage0/protocol"
)

// Client drives the stage0 bootloader over a serial port. It keeps at most
// one request in flight and matches replies by the address they echo.
//
// Client is not safe for concurrent use.
type Client struct {
	port    io.ReadWriter
	config  Config
	acc     *protocol.Accumulator[protocol.Reply]
	readBuf []byte
	pending []byte
}

// Layout tells Run where an image can go on the device.
type Layout struct {
	// Scratch is the RAM window the bootloader accepts pokes into
	Scratch memory.Region

	// Flash is the programmable flash range, excluding the bootloader
	Flash memory.Region
}

// New creates a new Client with the given port and options.
// The port must implement io.ReadWriter; a read that returns (0, nil) or a
// timeout error is treated as "no data yet".
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyACM0", &serial.Mode{BaudRate: 115200})
//	port.SetReadTimeout(16 * time.Millisecond)
//	client := bootloader.New(port,
//	    bootloader.WithProgressCallback(progressFunc),
//	    bootloader.WithChunkSize(256),
//	)
func New(port io.ReadWriter, opts ...Option) *Client {
	if port == nil {
		panic("port cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{
		port:    port,
		config:  cfg,
		acc:     protocol.NewReplyAccumulator(protocol.DefaultAccumulatorSize, protocol.Own),
		readBuf: make([]byte, cfg.ReadBufferSize),
	}
}

// Peek reads n bytes of scratch RAM starting at addr.
//
// Example:
//
//	data, err := client.Peek(ctx, 0x20008000, 64)
func (c *Client) Peek(ctx context.Context, addr uint, n int) ([]byte, error) {
	return c.peek(ctx, PhasePeek, addr, n, func(a uint, l int) protocol.Request {
		return protocol.PeekBytes{Addr: a, Len: uint(l)}
	})
}

// PeekFlash reads n bytes of flash starting at offset addr.
func (c *Client) PeekFlash(ctx context.Context, addr uint, n int) ([]byte, error) {
	return c.peek(ctx, PhaseFlashPeek, addr, n, func(a uint, l int) protocol.Request {
		return protocol.PeekBytesFlash{Addr: a, Len: uint(l)}
	})
}

func (c *Client) peek(ctx context.Context, phase string, addr uint, n int, build func(uint, int) protocol.Request) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("length cannot be negative")
	}

	startTime := time.Now()
	out := make([]byte, n)
	xfer := NewTransfer(addr, n, c.config.ChunkSize)

	for chunk, ok := xfer.Next(); ok; chunk, ok = xfer.Next() {
		resp, err := c.roundTrip(ctx, build(chunk.Addr, chunk.Len), func(r protocol.Response) bool {
			got, ok := protocol.EchoAddr(r)
			return ok && got == chunk.Addr && sameKind(r, phase)
		})
		if err != nil {
			return nil, fmt.Errorf("%s 0x%08X: %w", phase, chunk.Addr, err)
		}

		data := peekData(resp)
		if len(data) != chunk.Len {
			return nil, &ShortReplyError{Addr: chunk.Addr, Expected: chunk.Len, Actual: len(data)}
		}
		copy(out[chunk.Offset:], data)

		c.reportChunk(phase, chunk, xfer, startTime)
	}

	c.logDebug("peek complete", "phase", phase, "addr", fmt.Sprintf("0x%08X", addr), "bytes", n)
	return out, nil
}

// Poke writes data into scratch RAM starting at addr. Chunk N+1 is sent only
// after chunk N was acknowledged.
//
// Example:
//
//	err := client.Poke(ctx, 0x20008000, []byte{0xA0, 0x01})
func (c *Client) Poke(ctx context.Context, addr uint, data []byte) error {
	startTime := time.Now()
	xfer := NewTransfer(addr, len(data), c.config.ChunkSize)

	for chunk, ok := xfer.Next(); ok; chunk, ok = xfer.Next() {
		req := protocol.PokeBytes{
			Addr: chunk.Addr,
			Val:  protocol.Owned(data[chunk.Offset : chunk.Offset+chunk.Len]),
		}
		_, err := c.roundTrip(ctx, req, func(r protocol.Response) bool {
			p, ok := r.(protocol.Poked)
			return ok && p.Addr == chunk.Addr
		})
		if err != nil {
			return fmt.Errorf("poke 0x%08X: %w", chunk.Addr, err)
		}

		c.reportChunk(PhasePoke, chunk, xfer, startTime)
	}

	c.logDebug("poke complete", "addr", fmt.Sprintf("0x%08X", addr), "bytes", len(data))
	return nil
}

// FlashCopy asks the device to program n bytes of scratch RAM at ram into
// flash at offset flash. flash must be erase-aligned.
func (c *Client) FlashCopy(ctx context.Context, ram, flash uint, n int) error {
	req := protocol.FlashCopy{RAMStart: ram, FlashStart: flash, Len: uint(n)}
	_, err := c.roundTrip(ctx, req, func(r protocol.Response) bool {
		_, ok := r.(protocol.FlashCopied)
		return ok
	})
	if err != nil {
		return fmt.Errorf("flash copy 0x%08X -> 0x%08X: %w", ram, flash, err)
	}
	return nil
}

// FlashPoke programs data into flash at offset flashAddr by staging it
// through scratch in windows of whole erase blocks.
//
// Example:
//
//	scratch := memory.Region{Base: 0x20008000, Len: 0x38000}
//	err := client.FlashPoke(ctx, scratch, 0x10000, image)
func (c *Client) FlashPoke(ctx context.Context, scratch memory.Region, flashAddr uint, data []byte) error {
	erase := uint(c.config.EraseSize)
	if flashAddr%erase != 0 {
		return fmt.Errorf("flash address 0x%08X not aligned to %d bytes", flashAddr, erase)
	}
	window := int(scratch.Len - scratch.Len%erase)
	if window == 0 {
		return fmt.Errorf("scratch region of %d bytes smaller than one erase block", scratch.Len)
	}

	for off := 0; off < len(data); off += window {
		end := min(off+window, len(data))
		if err := c.Poke(ctx, scratch.Base, data[off:end]); err != nil {
			return err
		}
		if err := c.FlashCopy(ctx, scratch.Base, flashAddr+uint(off), end-off); err != nil {
			return err
		}

		c.reportProgress(Progress{
			Phase:      PhaseFlashCopy,
			Address:    flashAddr + uint(off),
			BytesDone:  end,
			BytesTotal: len(data),
			Percentage: float64(end) / float64(len(data)) * 100,
		})
	}
	return nil
}

// ClearMagic disarms any pending handoff on the device.
func (c *Client) ClearMagic(ctx context.Context) error {
	_, err := c.roundTrip(ctx, protocol.ClearMagic{}, func(r protocol.Response) bool {
		_, ok := r.(protocol.MagicCleared)
		return ok
	})
	if err != nil {
		return fmt.Errorf("clear magic: %w", err)
	}
	return nil
}

// Bootload arms the handoff with addr and resets the device. The device
// does not reply; it re-enumerates running the image.
func (c *Client) Bootload(ctx context.Context, addr uint32) error {
	if err := c.send(ctx, protocol.Bootload{Addr: addr}); err != nil {
		return fmt.Errorf("bootload 0x%08X: %w", addr, err)
	}
	c.logInfo("bootload sent", "addr", fmt.Sprintf("0x%08X", addr))
	return nil
}

// Reboot resets the device into stage0. The device does not reply.
func (c *Client) Reboot(ctx context.Context) error {
	if err := c.send(ctx, protocol.Reboot{}); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	c.logInfo("reboot sent")
	return nil
}

// Run loads img and starts it. Images inside scratch RAM are poked; images
// inside application flash are flash-poked. Either way the device then
// boots at the image address.
//
// Example:
//
//	img, _ := image.Parse("app.elf")
//	err := client.Run(ctx, img, layout)
func (c *Client) Run(ctx context.Context, img *image.Loadable, layout Layout) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}
	addr, n := uint(img.Addr), uint(len(img.Data))

	switch {
	case layout.Scratch.Contains(addr, n):
		c.logInfo("loading image into RAM", "addr", fmt.Sprintf("0x%08X", addr), "bytes", n)
		if err := c.Poke(ctx, addr, img.Data); err != nil {
			return err
		}
	case layout.Flash.Contains(addr, n):
		c.logInfo("loading image into flash", "addr", fmt.Sprintf("0x%08X", addr), "bytes", n)
		if err := c.FlashPoke(ctx, layout.Scratch, addr, img.Data); err != nil {
			return err
		}
	default:
		return &ImagePlacementError{Addr: addr, Len: len(img.Data)}
	}

	c.reportProgress(Progress{Phase: PhaseBootload, Address: addr, BytesDone: len(img.Data), BytesTotal: len(img.Data), Percentage: 100})
	if err := c.Bootload(ctx, img.Addr); err != nil {
		return err
	}
	c.reportProgress(Progress{Phase: PhaseComplete, Address: addr, BytesDone: len(img.Data), BytesTotal: len(img.Data), Percentage: 100})
	return nil
}

// send writes one request frame. The leading delimiter in every frame
// flushes any partial frame the device may be holding.
func (c *Client) send(ctx context.Context, req protocol.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := protocol.FrameRequest(req)
	if err != nil {
		return err
	}
	if _, err := c.port.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// roundTrip sends req and waits for the first reply accepted by match.
// Well-formed replies that do not match are discarded; a device error
// reply fails the request.
func (c *Client) roundTrip(ctx context.Context, req protocol.Request, match func(protocol.Response) bool) (protocol.Response, error) {
	if err := c.send(ctx, req); err != nil {
		return nil, err
	}

	var deadline time.Time
	if c.config.ResponseTimeout > 0 {
		deadline = time.Now().Add(c.config.ResponseTimeout)
	}

	for {
		for len(c.pending) > 0 {
			res := c.acc.Feed(c.pending)
			c.pending = res.Remaining

			switch res.Status {
			case protocol.Success:
				reply := res.Value
				if reply.Err != nil {
					return nil, reply.Err
				}
				if match(reply.Response) {
					return reply.Response, nil
				}
				c.logDebug("discarding unmatched reply", "reply", fmt.Sprintf("%T", reply.Response))
			case protocol.OverFull, protocol.DeserError:
				c.logDebug("discarding bad frame", "status", res.Status.String(), "error", res.Err)
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		n, err := c.port.Read(c.readBuf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			c.logError("read failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		c.pending = c.readBuf[:n]
	}
}

// isTimeout reports whether err is a read timeout rather than a failure.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func sameKind(r protocol.Response, phase string) bool {
	switch r.(type) {
	case protocol.PeekResult:
		return phase == PhasePeek
	case protocol.FlashPeekResult:
		return phase == PhaseFlashPeek
	default:
		return false
	}
}

func peekData(r protocol.Response) []byte {
	switch v := r.(type) {
	case protocol.PeekResult:
		if v.Val != nil {
			return v.Val.Bytes()
		}
	case protocol.FlashPeekResult:
		if v.Val != nil {
			return v.Val.Bytes()
		}
	}
	return nil
}

func (c *Client) reportChunk(phase string, chunk Chunk, xfer *Transfer, startTime time.Time) {
	c.reportProgress(Progress{
		Phase:       phase,
		Address:     chunk.Addr,
		BytesDone:   xfer.Done(),
		BytesTotal:  xfer.Total,
		Percentage:  xfer.Percentage(),
		ElapsedTime: time.Since(startTime),
	})
}

// reportProgress calls the progress callback if configured.
func (c *Client) reportProgress(progress Progress) {
	if c.config.ProgressCallback != nil {
		c.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (c *Client) logDebug(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (c *Client) logInfo(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (c *Client) logError(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Error(msg, keysAndValues...)
	}
}
