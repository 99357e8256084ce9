package discovery_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/moffa90/go-stage0/bootloader"
	"github.com/moffa90/go-stage0/discovery"
	"github.com/moffa90/go-stage0/sim"
)

func startBoard(t *testing.T) (*sim.Board, context.Context) {
	t.Helper()

	board, err := sim.NewBoard(sim.DefaultLayout())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	done := make(chan error, 1)
	go func() { done <- board.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.NoError(t, board.WaitMode(ctx, sim.Bootloader))
	return board, ctx
}

func connector(board *sim.Board) *discovery.Connector {
	return &discovery.Connector{
		Enum:         board,
		Ident:        discovery.DefaultIdentity(),
		Open:         func(name string) (discovery.Conn, error) { return board.Open(name) },
		PollInterval: 5 * time.Millisecond,
		RebootGrace:  50 * time.Millisecond,
	}
}

func TestConnectBootloader(t *testing.T) {
	board, ctx := startBoard(t)

	conn, err := connector(board).Connect(ctx, discovery.KindBootloader)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, bootloader.New(conn).ClearMagic(ctx))
}

func TestConnectRebootsApplication(t *testing.T) {
	board, ctx := startBoard(t)

	// Start the application.
	conn, err := connector(board).Connect(ctx, discovery.KindBootloader)
	require.NoError(t, err)
	require.NoError(t, bootloader.New(conn).Bootload(ctx, uint32(board.Layout().ScratchBase)))
	require.NoError(t, board.WaitMode(ctx, sim.Application))

	conn, err = connector(board).Connect(ctx, discovery.KindBootloader)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, sim.Bootloader, board.Mode())
	assert.Equal(t, 3, board.Boots())
	require.NoError(t, bootloader.New(conn).ClearMagic(ctx))
}

func TestConnectApplicationWhileInBootloader(t *testing.T) {
	board, ctx := startBoard(t)

	_, err := connector(board).Connect(ctx, discovery.KindApplication)
	assert.ErrorIs(t, err, discovery.ErrNoApplication)
}

func TestConnectWaitsForDevice(t *testing.T) {
	board, ctx := startBoard(t)

	var calls atomic.Int32
	c := connector(board)
	c.Enum = discovery.EnumeratorFunc(func() ([]*enumerator.PortDetails, error) {
		if calls.Add(1) < 4 {
			return nil, nil
		}
		return board.Ports()
	})

	conn, err := c.Connect(ctx, discovery.KindBootloader)
	require.NoError(t, err)
	defer conn.Close()
	assert.GreaterOrEqual(t, calls.Load(), int32(4))
}

func TestConnectCancelled(t *testing.T) {
	c := &discovery.Connector{
		Enum:         discovery.EnumeratorFunc(func() ([]*enumerator.PortDetails, error) { return nil, nil }),
		Ident:        discovery.DefaultIdentity(),
		PollInterval: time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Connect(ctx, discovery.KindBootloader)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectRefusesToGuess(t *testing.T) {
	c := &discovery.Connector{
		Enum: discovery.EnumeratorFunc(func() ([]*enumerator.PortDetails, error) {
			return []*enumerator.PortDetails{
				{Name: "simA", IsUSB: true, Product: sim.BootloaderProduct},
				{Name: "simB", IsUSB: true, Product: sim.BootloaderProduct},
			}, nil
		}),
		Ident: discovery.DefaultIdentity(),
	}

	_, err := c.Connect(context.Background(), discovery.KindBootloader)
	var tooMany *discovery.TooManyFoundError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, []string{"simA", "simB"}, tooMany.Ports)
}
