// Package console bridges a terminal to an application's stdio over the
// application protocol.
//
// Keystrokes are read on their own goroutine and handed to the session loop
// over a channel; the session loop is the only user of the serial port.
// Pressing Ctrl-] ends the session.
package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/moffa90/go-stage0/protocol"
)

// EscapeByte ends a session when typed (Ctrl-]).
const EscapeByte = 0x1D

const (
	keyChunkSize   = 64
	keyQueueLength = 16
)

// ErrDisconnected indicates the port failed or closed during a session.
var ErrDisconnected = errors.New("console: device disconnected")

// Logger is the logging interface used by Session.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Session connects Stdin, Stdout and Stderr to an application on Port.
//
// Port reads should return periodically without data, as a serial port with
// a read timeout does, so keystrokes are forwarded promptly.
type Session struct {
	Port   io.ReadWriter
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger Logger
}

// Run forwards keystrokes and output until the escape byte is typed, Stdin
// reaches EOF, or ctx is done. The first two end the session without error.
func (s *Session) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)

	keys := make(chan []byte, keyQueueLength)
	go readKeys(s.Stdin, keys, stop)

	acc := protocol.NewFromAppAccumulator(protocol.DefaultAccumulatorSize, protocol.Own)
	buf := make([]byte, 64)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-keys:
			if !ok {
				s.logDebug("stdin closed")
				return nil
			}
			done, err := s.forward(chunk)
			if err != nil || done {
				return err
			}
			continue
		default:
		}

		n, err := s.Port.Read(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}

		for window := buf[:n]; len(window) > 0; {
			res := acc.Feed(window)
			window = res.Remaining

			switch res.Status {
			case protocol.Success:
				if err := s.show(res.Value); err != nil {
					return err
				}
			case protocol.OverFull, protocol.DeserError:
				s.logDebug("dropping bad frame", "status", res.Status.String(), "error", res.Err)
			}
		}
	}
}

// forward sends typed bytes up to the escape byte. done reports that the
// escape byte was seen.
func (s *Session) forward(chunk []byte) (done bool, err error) {
	if i := bytes.IndexByte(chunk, EscapeByte); i >= 0 {
		chunk, done = chunk[:i], true
	}
	if len(chunk) > 0 {
		frame, err := protocol.FrameToApp(protocol.Stdin{Data: protocol.Owned(chunk)})
		if err != nil {
			return false, err
		}
		if _, err := s.Port.Write(frame); err != nil {
			return false, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
	}
	if done {
		s.logInfo("session ended by escape")
	}
	return done, nil
}

func (s *Session) show(msg protocol.FromApp) error {
	var err error
	switch m := msg.(type) {
	case protocol.Stdout:
		_, err = s.Stdout.Write(m.Data.Bytes())
	case protocol.Stderr:
		_, err = s.Stderr.Write(m.Data.Bytes())
	case *protocol.AppError:
		s.logError("application error", "error", m.Error())
	default:
		s.logDebug("ignoring message", "type", fmt.Sprintf("%T", msg))
	}
	return err
}

// readKeys copies Stdin into keys in small chunks. It closes keys on EOF or
// error. A blocked Stdin read outlives stop; the goroutine exits on its next
// wakeup.
func readKeys(r io.Reader, keys chan<- []byte, stop <-chan struct{}) {
	defer close(keys)
	for {
		buf := make([]byte, keyChunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case keys <- buf[:n]:
			case <-stop:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.Logger != nil {
		s.Logger.Debug(msg, keysAndValues...)
	}
}

func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.Logger != nil {
		s.Logger.Info(msg, keysAndValues...)
	}
}

func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.Logger != nil {
		s.Logger.Error(msg, keysAndValues...)
	}
}
