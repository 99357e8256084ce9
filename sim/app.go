package sim

import (
	"fmt"
	"io"

	"github.com/moffa90/go-stage0/protocol"
)

// AppFirmware is a minimal application firmware speaking the application
// ICD: it echoes stdin to stdout, answers SendAppInfo, echoes application
// data, and resets on Control(Reboot).
type AppFirmware struct {
	Info   protocol.AppInfo
	Logger Logger
}

// Serve runs the application until the port fails or the host asks for a
// reboot, in which case reset is true.
func (a *AppFirmware) Serve(port io.ReadWriter) (reset bool, err error) {
	acc := protocol.NewToAppAccumulator(protocol.DefaultAccumulatorSize, protocol.Own)
	buf := make([]byte, 64)

	for {
		n, err := port.Read(buf)
		if err != nil {
			return false, err
		}

		for window := buf[:n]; len(window) > 0; {
			res := acc.Feed(window)
			window = res.Remaining

			var reply protocol.FromApp
			switch res.Status {
			case protocol.Consumed:
				continue
			case protocol.OverFull, protocol.DeserError:
				reply = &protocol.AppError{Code: protocol.AppErrInvalidMessage}
			case protocol.Success:
				var reboot bool
				reply, reboot, err = a.handle(res.Value)
				if err != nil {
					return false, err
				}
				if reboot {
					return true, nil
				}
			}

			frame, err := protocol.FrameFromApp(reply)
			if err != nil {
				return false, err
			}
			if _, err := port.Write(frame); err != nil {
				return false, err
			}
		}
	}
}

func (a *AppFirmware) handle(msg protocol.ToApp) (reply protocol.FromApp, reboot bool, err error) {
	switch m := msg.(type) {
	case protocol.Stdin:
		return protocol.Stdout{Data: m.Data}, false, nil
	case protocol.ToAppData:
		return protocol.FromAppData{Data: m.Data}, false, nil
	case protocol.Control:
		switch m.Code {
		case protocol.ControlReboot:
			a.logInfo("reboot requested")
			return nil, true, nil
		case protocol.ControlSendAppInfo:
			info, err := protocol.EncodeAppInfo(a.Info)
			if err != nil {
				return nil, false, fmt.Errorf("encode app info: %w", err)
			}
			return protocol.ControlResponse{Info: protocol.Owned(info)}, false, nil
		}
	}
	return &protocol.AppError{Code: protocol.AppErrOther, Msg: protocol.Owned("unsupported message")}, false, nil
}

func (a *AppFirmware) logInfo(msg string, keysAndValues ...interface{}) {
	if a.Logger != nil {
		a.Logger.Info(msg, keysAndValues...)
	}
}
