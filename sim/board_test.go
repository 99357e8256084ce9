package sim_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-stage0/protocol"
	"github.com/moffa90/go-stage0/sim"
)

type runningBoard struct {
	*sim.Board
	ctx context.Context
}

func startBoard(t *testing.T, opts ...sim.Option) *runningBoard {
	t.Helper()

	board, err := sim.NewBoard(sim.DefaultLayout(), opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	done := make(chan error, 1)
	go func() { done <- board.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &runningBoard{Board: board, ctx: ctx}
}

func (b *runningBoard) connect(t *testing.T) net.Conn {
	t.Helper()
	conn, err := b.Connect(b.ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn net.Conn, frame []byte, err error) {
	t.Helper()
	require.NoError(t, err)
	_, err = conn.Write(frame)
	require.NoError(t, err)
}

// receive reads frames from conn until acc yields a value.
func receive[T any](t *testing.T, conn net.Conn, acc *protocol.Accumulator[T]) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, 1)
	for {
		_, err := conn.Read(buf)
		require.NoError(t, err)
		if res := acc.Feed(buf); res.Status == protocol.Success {
			return res.Value
		}
	}
}

func TestBoardStartsInBootloader(t *testing.T) {
	board := startBoard(t, sim.WithPortName("simA"), sim.WithSerialNumber("E66038B7"))
	require.NoError(t, board.WaitMode(board.ctx, sim.Bootloader))

	ports, err := board.Ports()
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "simA", ports[0].Name)
	assert.Equal(t, sim.BootloaderProduct, ports[0].Product)
	assert.Equal(t, "E66038B7", ports[0].SerialNumber)
	assert.True(t, ports[0].IsUSB)

	_, err = board.Open("nope")
	assert.Error(t, err)
}

func TestBoardPortsWhenOff(t *testing.T) {
	board, err := sim.NewBoard(sim.DefaultLayout())
	require.NoError(t, err)

	ports, err := board.Ports()
	require.NoError(t, err)
	assert.Empty(t, ports)
	assert.Equal(t, sim.Off, board.Mode())
}

func TestNewBoardRejectsWrappingScratch(t *testing.T) {
	layout := sim.DefaultLayout()
	layout.ScratchBase = ^uint(0) - 0x10
	_, err := sim.NewBoard(layout)
	assert.Error(t, err)
}

func TestBoardCrossResetRoundTrip(t *testing.T) {
	board := startBoard(t, sim.WithAppVersion("1.2.3"))
	scratch := board.Layout().ScratchBase

	// Load a tiny image and boot it.
	conn := board.connect(t)
	replies := protocol.NewReplyAccumulator(0, protocol.Own)

	frame, err := protocol.FrameRequest(protocol.PokeBytes{Addr: scratch, Val: protocol.Owned{0xDE, 0xAD, 0xBE, 0xEF}})
	send(t, conn, frame, err)
	reply := receive(t, conn, replies)
	require.False(t, reply.IsErr())
	assert.Equal(t, protocol.Poked{Addr: scratch}, reply.Response)

	frame, err = protocol.FrameRequest(protocol.Bootload{Addr: uint32(scratch)})
	send(t, conn, frame, err)
	require.NoError(t, board.WaitMode(board.ctx, sim.Application))
	assert.Equal(t, uint32(scratch), board.Entry())

	ports, err := board.Ports()
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, sim.ApplicationProduct, ports[0].Product)

	// Talk to the application.
	app := board.connect(t)
	fromApp := protocol.NewFromAppAccumulator(0, protocol.Own)

	frame, err = protocol.FrameToApp(protocol.Control{Code: protocol.ControlSendAppInfo})
	send(t, app, frame, err)
	msg := receive(t, app, fromApp)
	resp, ok := msg.(protocol.ControlResponse)
	require.True(t, ok, "got %T", msg)
	info, err := protocol.DecodeAppInfo(resp.Info.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "20008000", info.BuildID)

	frame, err = protocol.FrameToApp(protocol.Stdin{Data: protocol.Owned("hello")})
	send(t, app, frame, err)
	msg = receive(t, app, fromApp)
	assert.Equal(t, protocol.Stdout{Data: protocol.Owned("hello")}, msg)

	// Reboot back into stage0; the handoff was consumed so it stays there.
	frame, err = protocol.FrameToApp(protocol.Control{Code: protocol.ControlReboot})
	send(t, app, frame, err)
	require.NoError(t, board.WaitMode(board.ctx, sim.Bootloader))
	assert.Equal(t, 3, board.Boots())

	conn = board.connect(t)
	frame, err = protocol.FrameRequest(protocol.PeekBytes{Addr: scratch, Len: 4})
	send(t, conn, frame, err)
	reply = receive(t, conn, protocol.NewReplyAccumulator(0, protocol.Own))
	require.False(t, reply.IsErr())
	peek := reply.Response.(protocol.PeekResult)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, peek.Val.Bytes())
}

func TestApplicationRejectsGarbage(t *testing.T) {
	board := startBoard(t)
	scratch := board.Layout().ScratchBase

	conn := board.connect(t)
	frame, err := protocol.FrameRequest(protocol.Bootload{Addr: uint32(scratch)})
	send(t, conn, frame, err)
	require.NoError(t, board.WaitMode(board.ctx, sim.Application))

	app := board.connect(t)
	send(t, app, []byte{0x00, 0x02, 0x7F, 0x00}, nil)

	msg := receive(t, app, protocol.NewFromAppAccumulator(0, protocol.Own))
	appErr, ok := msg.(*protocol.AppError)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, uint64(protocol.AppErrInvalidMessage), appErr.Code)
}
