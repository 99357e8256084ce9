package console

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/moffa90/go-stage0/protocol"
)

// RequestAppInfo asks the application on port to describe itself. It gives
// up after timeout, or never when timeout is zero. Output the application
// prints meanwhile is discarded.
func RequestAppInfo(ctx context.Context, port io.ReadWriter, timeout time.Duration) (protocol.AppInfo, error) {
	frame, err := protocol.FrameToApp(protocol.Control{Code: protocol.ControlSendAppInfo})
	if err != nil {
		return protocol.AppInfo{}, err
	}
	if _, err := port.Write(frame); err != nil {
		return protocol.AppInfo{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	acc := protocol.NewFromAppAccumulator(protocol.DefaultAccumulatorSize, protocol.Own)
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return protocol.AppInfo{}, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return protocol.AppInfo{}, fmt.Errorf("console: no app info within %s", timeout)
		}

		n, err := port.Read(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return protocol.AppInfo{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}

		for window := buf[:n]; len(window) > 0; {
			res := acc.Feed(window)
			window = res.Remaining
			if res.Status != protocol.Success {
				continue
			}
			switch m := res.Value.(type) {
			case protocol.ControlResponse:
				return protocol.DecodeAppInfo(m.Info.Bytes())
			case *protocol.AppError:
				return protocol.AppInfo{}, m
			}
		}
	}
}
