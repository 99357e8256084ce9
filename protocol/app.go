package protocol

import (
	"fmt"
)

// ToApp is a host-to-application message.
//
// Implementations: Stdin, Control, ToAppData.
type ToApp interface {
	toAppTag() uint64
}

// Stdin carries keystrokes for the application console.
type Stdin struct {
	Data ByteView
}

// ControlCode selects an application control action.
type ControlCode uint64

// String returns the control action name.
func (c ControlCode) String() string {
	switch c {
	case ControlReboot:
		return "Reboot"
	case ControlSendAppInfo:
		return "SendAppInfo"
	default:
		return fmt.Sprintf("ControlCode(%d)", uint64(c))
	}
}

// Control asks the application to perform a control action.
type Control struct {
	Code ControlCode
}

// ToAppData carries opaque application data.
type ToAppData struct {
	Data ByteView
}

func (Stdin) toAppTag() uint64     { return TagToAppStdin }
func (Control) toAppTag() uint64   { return TagToAppControl }
func (ToAppData) toAppTag() uint64 { return TagToAppData }

// FromApp is an application-to-host message.
//
// Implementations: Stdout, Stderr, ControlResponse, FromAppData, *AppError.
type FromApp interface {
	fromAppTag() uint64
}

// Stdout carries application console output.
type Stdout struct {
	Data ByteView
}

// Stderr carries application diagnostic output.
type Stderr struct {
	Data ByteView
}

// ControlResponse answers Control(SendAppInfo). Info holds a CBOR AppInfo;
// see DecodeAppInfo.
type ControlResponse struct {
	Info ByteView
}

// FromAppData carries opaque application data.
type FromAppData struct {
	Data ByteView
}

// AppError reports a problem on the application side. Msg is only set for
// AppErrOther.
type AppError struct {
	Code uint64
	Msg  ByteView
}

func (e *AppError) Error() string {
	switch e.Code {
	case AppErrInvalidMessage:
		return "application: invalid message"
	case AppErrOther:
		return fmt.Sprintf("application: %s", viewBytes(e.Msg))
	default:
		return fmt.Sprintf("application: error code %d", e.Code)
	}
}

func (Stdout) fromAppTag() uint64          { return TagFromAppStdout }
func (Stderr) fromAppTag() uint64          { return TagFromAppStderr }
func (ControlResponse) fromAppTag() uint64 { return TagFromAppControlResponse }
func (FromAppData) fromAppTag() uint64     { return TagFromAppData }
func (*AppError) fromAppTag() uint64       { return TagFromAppError }

// EncodeToApp appends the schema encoding of msg to dst.
//
// Layout:
//
//	Stdin:   [0][LEN][BYTES...]
//	Control: [1][CODE]
//	AppData: [2][LEN][BYTES...]
func EncodeToApp(dst []byte, msg ToApp) ([]byte, error) {
	if msg == nil {
		return dst, fmt.Errorf("message cannot be nil")
	}

	dst = appendTag(dst, msg.toAppTag())

	switch m := msg.(type) {
	case Stdin:
		dst = appendView(dst, m.Data)
	case Control:
		dst = appendTag(dst, uint64(m.Code))
	case ToAppData:
		dst = appendView(dst, m.Data)
	default:
		return dst, fmt.Errorf("unsupported application message type %T", msg)
	}
	return dst, nil
}

// FrameToApp encodes msg into a complete wire frame.
func FrameToApp(msg ToApp) ([]byte, error) {
	payload, err := EncodeToApp(nil, msg)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(make([]byte, 0, CobsMaxEncodedLen(len(payload))+2), payload), nil
}

// DecodeToApp decodes one host-to-application payload.
func DecodeToApp(payload []byte, own Ownership) (ToApp, error) {
	d := newDecoder(payload, own)

	var msg ToApp
	switch tag := d.tag(); tag {
	case TagToAppStdin:
		msg = Stdin{Data: d.view()}
	case TagToAppControl:
		code := d.tag()
		if code != ControlReboot && code != ControlSendAppInfo {
			d.unknown("control", code)
		}
		msg = Control{Code: ControlCode(code)}
	case TagToAppData:
		msg = ToAppData{Data: d.view()}
	default:
		d.unknown("to-app", tag)
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return msg, nil
}

// EncodeFromApp appends the schema encoding of msg to dst.
//
// Layout:
//
//	Stdout:          [0][LEN][BYTES...]
//	Stderr:          [1][LEN][BYTES...]
//	ControlResponse: [2][0][LEN][CBOR...]
//	AppData:         [3][LEN][BYTES...]
//	AppError:        [4][0][LEN][BYTES...] | [4][1]
func EncodeFromApp(dst []byte, msg FromApp) ([]byte, error) {
	if msg == nil {
		return dst, fmt.Errorf("message cannot be nil")
	}

	dst = appendTag(dst, msg.fromAppTag())

	switch m := msg.(type) {
	case Stdout:
		dst = appendView(dst, m.Data)
	case Stderr:
		dst = appendView(dst, m.Data)
	case ControlResponse:
		// AppInfo is the only control response variant.
		dst = appendTag(dst, 0)
		dst = appendView(dst, m.Info)
	case FromAppData:
		dst = appendView(dst, m.Data)
	case *AppError:
		dst = appendTag(dst, m.Code)
		switch m.Code {
		case AppErrOther:
			dst = appendView(dst, m.Msg)
		case AppErrInvalidMessage:
		default:
			return dst, fmt.Errorf("unsupported application error code %d", m.Code)
		}
	default:
		return dst, fmt.Errorf("unsupported application message type %T", msg)
	}
	return dst, nil
}

// FrameFromApp encodes msg into a complete wire frame.
func FrameFromApp(msg FromApp) ([]byte, error) {
	payload, err := EncodeFromApp(nil, msg)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(make([]byte, 0, CobsMaxEncodedLen(len(payload))+2), payload), nil
}

// DecodeFromApp decodes one application-to-host payload.
func DecodeFromApp(payload []byte, own Ownership) (FromApp, error) {
	d := newDecoder(payload, own)

	var msg FromApp
	switch tag := d.tag(); tag {
	case TagFromAppStdout:
		msg = Stdout{Data: d.view()}
	case TagFromAppStderr:
		msg = Stderr{Data: d.view()}
	case TagFromAppControlResponse:
		if kind := d.tag(); kind != 0 {
			d.unknown("control response", kind)
		}
		msg = ControlResponse{Info: d.view()}
	case TagFromAppData:
		msg = FromAppData{Data: d.view()}
	case TagFromAppError:
		e := &AppError{Code: d.tag()}
		switch e.Code {
		case AppErrOther:
			e.Msg = d.view()
		case AppErrInvalidMessage:
		default:
			d.unknown("application error", e.Code)
		}
		msg = e
	default:
		d.unknown("from-app", tag)
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return msg, nil
}
