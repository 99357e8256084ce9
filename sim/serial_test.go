package sim

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialConnIdleReadReturnsNothing(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	conn := &SerialConn{Conn: a, ReadTimeout: 5 * time.Millisecond}
	buf := make([]byte, 8)

	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	go b.Write([]byte{1, 2, 3})
	deadline := time.Now().Add(time.Second)
	for n == 0 && time.Now().Before(deadline) {
		n, err = conn.Read(buf)
		require.NoError(t, err)
	}
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestSerialConnReportsClose(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()

	conn := &SerialConn{Conn: a, ReadTimeout: 5 * time.Millisecond}
	require.NoError(t, b.Close())

	_, err := conn.Read(make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)
}
