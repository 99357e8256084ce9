package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppRoundTrip(t *testing.T) {
	messages := []ToApp{
		Stdin{Data: Owned("ls\r")},
		Control{Code: ControlReboot},
		Control{Code: ControlSendAppInfo},
		ToAppData{Data: Owned{0x00, 0x01}},
	}

	for _, msg := range messages {
		payload, err := EncodeToApp(nil, msg)
		require.NoError(t, err)

		got, err := DecodeToApp(payload, Own)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	}
}

func TestFromAppRoundTrip(t *testing.T) {
	info, err := EncodeAppInfo(AppInfo{Name: "Soup_App", Version: "0.1.0"})
	require.NoError(t, err)

	messages := []FromApp{
		Stdout{Data: Owned("hello\n")},
		Stderr{Data: Owned("oops\n")},
		ControlResponse{Info: Owned(info)},
		FromAppData{Data: Owned{0xFF}},
		&AppError{Code: AppErrOther, Msg: Owned("bad")},
		&AppError{Code: AppErrInvalidMessage},
	}

	for _, msg := range messages {
		frame, err := FrameFromApp(msg)
		require.NoError(t, err)

		payload, err := CobsDecode(nil, frame[1:len(frame)-1])
		require.NoError(t, err)

		got, err := DecodeFromApp(payload, Own)
		require.NoError(t, err)
		assert.Equal(t, msg, got)
	}
}

func TestDecodeToAppRejectsUnknownControl(t *testing.T) {
	_, err := DecodeToApp([]byte{TagToAppControl, 0x07}, Own)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeFromAppErrors(t *testing.T) {
	_, err := DecodeFromApp([]byte{TagFromAppError, 0x09}, Own)
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = DecodeFromApp([]byte{TagFromAppControlResponse, 0x01, 0x00}, Own)
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = DecodeFromApp([]byte{0x05}, Own)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestAppInfo(t *testing.T) {
	want := AppInfo{Name: "Soup_App", Version: "1.2.3", BuildID: "abc123"}

	data, err := EncodeAppInfo(want)
	require.NoError(t, err)

	again, err := EncodeAppInfo(want)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")

	got, err := DecodeAppInfo(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = DecodeAppInfo([]byte{0xFF})
	assert.ErrorIs(t, err, ErrDeserialize)
}

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "application: bad", (&AppError{Code: AppErrOther, Msg: Owned("bad")}).Error())
	assert.Equal(t, "application: invalid message", (&AppError{Code: AppErrInvalidMessage}).Error())
	assert.Equal(t, "SendAppInfo", ControlCode(ControlSendAppInfo).String())
}
