package bootloader_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-stage0/bootloader"
	"github.com/moffa90/go-stage0/image"
	"github.com/moffa90/go-stage0/memory"
	"github.com/moffa90/go-stage0/protocol"
	"github.com/moffa90/go-stage0/sim"
)

// startBoard runs a simulated board for the duration of the test and
// returns a client connected to its bootloader.
func startBoard(t *testing.T) (*sim.Board, *bootloader.Client, bootloader.Layout) {
	t.Helper()

	board, err := sim.NewBoard(sim.DefaultLayout())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- board.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	connCtx, connCancel := context.WithTimeout(ctx, 2*time.Second)
	defer connCancel()
	conn, err := board.Connect(connCtx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	l := board.Layout()
	layout := bootloader.Layout{
		Scratch: memory.Region{Base: l.ScratchBase, Len: l.ScratchLen},
		Flash:   memory.Region{Base: uint(l.Protected), Len: uint(l.Flash.Size - l.Protected)},
	}
	return board, bootloader.New(conn), layout
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSimPokePeek(t *testing.T) {
	board, client, layout := startBoard(t)
	ctx := testContext(t)

	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, client.Poke(ctx, layout.Scratch.Base+0x40, data))

	got, err := client.Peek(ctx, layout.Scratch.Base+0x40, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, data, board.RAM().Bytes()[0x40:0x40+1000])
}

func TestSimDeviceErrors(t *testing.T) {
	_, client, layout := startBoard(t)
	ctx := testContext(t)

	_, err := client.Peek(ctx, 0, 4)
	var oor *protocol.AddressOutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, layout.Scratch.Base, oor.Min)
	assert.Equal(t, layout.Scratch.End(), oor.Max)

	err = client.FlashCopy(ctx, layout.Scratch.Base, 0, 4096)
	var cant *protocol.CantOverwriteBootloaderError
	assert.ErrorAs(t, err, &cant)

	err = client.FlashCopy(ctx, layout.Scratch.Base, layout.Flash.Base+4, 4096)
	var unaligned *protocol.UnalignedFlashAddrError
	assert.ErrorAs(t, err, &unaligned)

	// the link keeps working after errors
	require.NoError(t, client.ClearMagic(ctx))
}

func TestSimFlashPoke(t *testing.T) {
	board, client, layout := startBoard(t)
	ctx := testContext(t)

	data := make([]byte, 0x1800)
	for i := range data {
		data[i] = byte(i * 3)
	}
	require.NoError(t, client.FlashPoke(ctx, layout.Scratch, 0x20000, data))

	got, err := client.PeekFlash(ctx, 0x20000, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// the tail of the last erase block is left erased
	tail := board.Flash().Snapshot(0x20000+0x1800, 0x800)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 0x800), tail)
}

func TestSimRunRAMImage(t *testing.T) {
	board, client, layout := startBoard(t)
	ctx := testContext(t)

	img := &image.Loadable{Addr: uint32(layout.Scratch.Base), Data: bytes.Repeat([]byte{0xE7}, 512)}
	require.NoError(t, client.Run(ctx, img, layout))

	require.NoError(t, board.WaitMode(ctx, sim.Application))
	assert.Equal(t, img.Addr, board.Entry())
	assert.Equal(t, 2, board.Boots())
}
