package sim

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-stage0/protocol"
)

func TestAppFirmwareEchoThenReboot(t *testing.T) {
	host, dev := net.Pipe()
	defer host.Close()
	defer dev.Close()

	fw := &AppFirmware{Info: appInfo("1.0.0")}
	type result struct {
		reset bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reset, err := fw.Serve(dev)
		done <- result{reset, err}
	}()

	frame, err := protocol.FrameToApp(protocol.Stdin{Data: protocol.Owned([]byte("hi"))})
	require.NoError(t, err)
	_, err = host.Write(frame)
	require.NoError(t, err)

	acc := protocol.NewFromAppAccumulator(protocol.DefaultAccumulatorSize, protocol.Own)
	buf := make([]byte, 64)
	var got protocol.FromApp
	require.NoError(t, host.SetReadDeadline(time.Now().Add(2*time.Second)))
	for got == nil {
		n, err := host.Read(buf)
		require.NoError(t, err)
		for window := buf[:n]; len(window) > 0; {
			res := acc.Feed(window)
			window = res.Remaining
			if res.Status == protocol.Success {
				got = res.Value
			}
		}
	}
	out, ok := got.(protocol.Stdout)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, []byte("hi"), out.Data.Bytes())

	frame, err = protocol.FrameToApp(protocol.Control{Code: protocol.ControlReboot})
	require.NoError(t, err)
	_, err = host.Write(frame)
	require.NoError(t, err)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.reset)
	case <-time.After(2 * time.Second):
		t.Fatal("application did not reset")
	}
}
