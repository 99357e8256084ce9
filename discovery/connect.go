package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/moffa90/go-stage0/protocol"
)

// Conn is an open link to a device.
type Conn interface {
	io.ReadWriteCloser
}

// Opener opens the port with the given name.
type Opener func(name string) (Conn, error)

// SerialOpener opens real serial ports. Reads return (0, nil) after
// readTimeout without data, which the host tools treat as "no data yet".
func SerialOpener(baud int, readTimeout time.Duration) Opener {
	return func(name string) (Conn, error) {
		port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		if err := port.SetReadTimeout(readTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
		}
		return port, nil
	}
}

// Logger is the logging interface used by Connector.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Default Connector timings.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultRebootGrace  = 500 * time.Millisecond
)

// Connector waits for a device and connects to the wanted firmware.
type Connector struct {
	Enum   Enumerator
	Ident  Identity
	Open   Opener
	Logger Logger

	// PollInterval is the delay between enumerations while searching
	PollInterval time.Duration

	// RebootGrace is how long to wait after asking an application to reboot
	RebootGrace time.Duration
}

// Connect searches until a port running want is found and returns it open.
// A missing device is waited for; an ambiguous match is an error.
func (c *Connector) Connect(ctx context.Context, want Kind) (Conn, error) {
	poll := c.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	grace := c.RebootGrace
	if grace <= 0 {
		grace = DefaultRebootGrace
	}

	waiting := false
	for {
		port, err := Find(c.Enum, c.Ident)
		switch {
		case errors.Is(err, ErrNoneFound):
			if !waiting {
				c.logInfo("no device found, waiting", "want", want.String())
				waiting = true
			}
			if err := sleep(ctx, poll); err != nil {
				return nil, err
			}
			continue
		case err != nil:
			return nil, err
		}
		waiting = false
		c.logInfo("found device", "port", port.Name, "kind", port.Kind.String())

		switch {
		case port.Kind == want:
			conn, err := c.Open(port.Name)
			if err != nil {
				return nil, err
			}
			return conn, nil

		case port.Kind == KindApplication && want == KindBootloader:
			c.logInfo("commanding reset to return to the bootloader", "port", port.Name)
			if err := c.reboot(port.Name); err != nil {
				return nil, err
			}
			if err := sleep(ctx, grace); err != nil {
				return nil, err
			}

		default:
			return nil, ErrNoApplication
		}
	}
}

// reboot asks the application on name to reset into the bootloader.
func (c *Connector) reboot(name string) error {
	conn, err := c.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	frame, err := protocol.FrameToApp(protocol.Control{Code: protocol.ControlReboot})
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		c.logError("reboot request failed", "port", name, "error", err)
		return fmt.Errorf("send reboot to %s: %w", name, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connector) logInfo(msg string, keysAndValues ...interface{}) {
	if c.Logger != nil {
		c.Logger.Info(msg, keysAndValues...)
	}
}

func (c *Connector) logError(msg string, keysAndValues ...interface{}) {
	if c.Logger != nil {
		c.Logger.Error(msg, keysAndValues...)
	}
}
