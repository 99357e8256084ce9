package stage0

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/moffa90/go-stage0/protocol"
)

// packet is one port read handed from the reader task to the dispatcher.
type packet struct {
	data []byte
	err  error
}

// Serve runs the dispatcher on port until ctx is done, the port fails, or a
// request asks for a reset.
//
// A reader task turns port reads into packets; only the dispatcher loop
// touches scratch, flash and the handoff record. Framing and decode errors
// are counted and logged and never end the session. The reader goroutine
// stays blocked in Read after ctx ends until the caller closes the port.
//
// When a reset is requested, Serve calls the Resetter after the reply path
// is drained. On hardware that does not return; otherwise Serve returns
// ErrReset.
func (d *Device) Serve(ctx context.Context, port io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	packets := make(chan packet)
	next := make(chan struct{})

	go d.readLoop(ctx, port, packets, next)

	ticker := time.NewTicker(d.config.HousekeepingInterval)
	defer ticker.Stop()

	d.acc.Reset()
	d.logInfo("serving", "peek_buffer", len(d.peekBuf), "accumulator", d.acc.Cap())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			d.housekeeping()

		case p := <-packets:
			if p.err != nil {
				d.logInfo("port closed", "error", p.err)
				return fmt.Errorf("%w: %v", ErrDisconnected, p.err)
			}

			reset, err := d.dispatch(port, p.data)
			if err != nil {
				return err
			}
			if reset {
				d.logInfo("resetting")
				d.reset.Reset()
				return ErrReset
			}

			select {
			case next <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// readLoop performs port reads one at a time; the dispatcher signals on next
// once it no longer needs the read buffer.
func (d *Device) readLoop(ctx context.Context, port io.Reader, packets chan<- packet, next <-chan struct{}) {
	for {
		n, err := port.Read(d.readBuf)
		if err == nil && n == 0 {
			continue
		}

		var p packet
		if err != nil {
			p.err = err
		} else {
			p.data = d.readBuf[:n]
		}

		select {
		case packets <- p:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}

		select {
		case <-next:
		case <-ctx.Done():
			return
		}
	}
}

// dispatch feeds one read into the accumulator and serves every completed
// frame in it. A reset request ends dispatching; bytes after it are dropped.
func (d *Device) dispatch(port io.Writer, window []byte) (reset bool, err error) {
	for len(window) > 0 {
		res := d.acc.Feed(window)
		window = res.Remaining

		switch res.Status {
		case protocol.Consumed:
		case protocol.OverFull:
			d.overFull.Add(1)
			d.logError("frame too large", "capacity", d.acc.Cap())
		case protocol.DeserError:
			d.deserErrors.Add(1)
			d.logError("bad frame", "error", res.Err)
		case protocol.Success:
			d.frames.Add(1)
			reply, respond, reset := d.Handle(res.Value)
			if respond {
				if err := d.respond(port, reply); err != nil {
					return false, err
				}
			}
			if reset {
				return true, nil
			}
		}
	}
	return false, nil
}

func (d *Device) respond(port io.Writer, reply protocol.Reply) error {
	frame, err := d.encodeReply(reply)
	if err != nil {
		// Only reachable with a malformed reply; drop it.
		d.logError("encode failed", "error", err)
		return nil
	}
	if reply.Err != nil {
		d.logDebug("request failed", "error", reply.Err)
	}
	if _, err := port.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	d.replies.Add(1)
	return nil
}

func (d *Device) housekeeping() {
	if d.config.Heartbeat != nil {
		d.config.Heartbeat()
	}
	s := d.Stats()
	d.logDebug("stats",
		"frames", s.Frames,
		"replies", s.Replies,
		"overfull", s.OverFull,
		"deser_errors", s.DeserErrors,
	)
}
