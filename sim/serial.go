package sim

import (
	"errors"
	"net"
	"os"
	"time"
)

// SerialConn makes a board connection behave like a serial port opened with
// a read timeout: a read that sees no data within ReadTimeout returns (0, nil).
type SerialConn struct {
	net.Conn
	ReadTimeout time.Duration
}

// Read implements io.Reader. A closed link is reported by the read itself,
// not by the deadline call.
func (c *SerialConn) Read(p []byte) (int, error) {
	if c.ReadTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(c.ReadTimeout))
	}
	n, err := c.Conn.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}
