// Package sim simulates a stage0 board: scratch RAM, NOR flash, handoff words
// that survive a warm reset, the stage0 dispatcher and a tiny application
// firmware. The host side reaches it through Connect or through the
// enumeration and open hooks used by discovery.
package sim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.bug.st/serial/enumerator"

	"github.com/moffa90/go-stage0/handoff"
	"github.com/moffa90/go-stage0/memory"
	"github.com/moffa90/go-stage0/protocol"
	"github.com/moffa90/go-stage0/stage0"
)

// Logger is the logging interface shared with the other packages.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Mode is the firmware a board is running.
type Mode int

const (
	// Off means the board is not running.
	Off Mode = iota

	// Bootloader means stage0 is serving requests.
	Bootloader

	// Application means the board jumped to a loaded image.
	Application
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Off:
		return "Off"
	case Bootloader:
		return "Bootloader"
	case Application:
		return "Application"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// USB product strings reported while enumerated.
const (
	BootloaderProduct  = "Stage0 Loader"
	ApplicationProduct = "Soup App Demo"
)

// Layout is the memory map of the simulated part.
type Layout struct {
	ScratchBase uint
	ScratchLen  uint
	Flash       memory.Geometry
	Protected   uint32
}

// DefaultLayout mirrors an nRF52840: 224 KiB scratch at the top of RAM and
// 1 MiB of flash with the first 64 KiB reserved for stage0.
func DefaultLayout() Layout {
	return Layout{
		ScratchBase: 0x20008000,
		ScratchLen:  0x38000,
		Flash: memory.Geometry{
			Size:      0x100000,
			EraseSize: 4096,
			WriteSize: 4,
			Erased:    0xFF,
		},
		Protected: 0x10000,
	}
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger for the board and its firmware.
func WithLogger(logger Logger) Option {
	return func(b *Board) {
		b.logger = logger
	}
}

// WithPortName sets the name the board enumerates under.
func WithPortName(name string) Option {
	return func(b *Board) {
		b.portName = name
	}
}

// WithSerialNumber sets the USB serial number the board reports.
func WithSerialNumber(serial string) Option {
	return func(b *Board) {
		b.serial = serial
	}
}

// WithAppVersion sets the version the application reports in AppInfo.
func WithAppVersion(version string) Option {
	return func(b *Board) {
		b.app.Info.Version = version
	}
}

// Board is a simulated stage0 target.
type Board struct {
	layout Layout
	ram    *memory.RAM
	flash  *NORFlash
	cell   *handoff.WordCell
	record *handoff.Record
	device *stage0.Device
	app    *AppFirmware
	logger Logger

	portName string
	serial   string
	conns    chan net.Conn

	mu      sync.Mutex
	mode    Mode
	entry   uint32
	boots   int
	changed chan struct{}
}

// NewBoard builds a board with the given layout.
func NewBoard(layout Layout, opts ...Option) (*Board, error) {
	scratch := memory.Region{Base: layout.ScratchBase, Len: layout.ScratchLen}
	if !scratch.Valid() {
		return nil, fmt.Errorf("scratch region 0x%X+0x%X wraps the address space", layout.ScratchBase, layout.ScratchLen)
	}

	b := &Board{
		layout:   layout,
		ram:      memory.NewRAM(layout.ScratchBase, layout.ScratchLen),
		flash:    NewNORFlash(layout.Flash),
		cell:     &handoff.WordCell{},
		app:      &AppFirmware{Info: appInfo("0.1.0")},
		portName: "sim0",
		conns:    make(chan net.Conn, 1),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.app.Logger = b.logger
	b.record = handoff.NewRecord(b.cell)

	area, err := memory.NewFlashArea(b.flash, layout.Protected)
	if err != nil {
		return nil, fmt.Errorf("flash: %w", err)
	}

	devOpts := []stage0.Option{stage0.WithHousekeepingInterval(time.Second)}
	if b.logger != nil {
		devOpts = append(devOpts, stage0.WithLogger(b.logger))
	}
	b.device = stage0.New(
		memory.NewScratch(scratch, b.ram),
		area,
		b.record,
		stage0.ResetterFunc(func() {}),
		devOpts...,
	)
	return b, nil
}

// Run powers the board on and runs it until ctx is done. Every boot starts
// with handoff.Boot; a reset re-runs it. Each boot enumerates a fresh
// connection, and a host disconnect re-enumerates without resetting.
func (b *Board) Run(ctx context.Context) error {
	defer b.setMode(Off, 0)

	for {
		var entry uint32
		mode := Bootloader
		if handoff.Boot(b.record, handoff.JumperFunc(func(target uint32) { entry = target })) {
			mode = Application
		}
		b.boot(mode, entry)

		for {
			reset, err := b.session(ctx, mode)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if reset {
				b.logInfo("reset", "mode", mode.String())
				break
			}
			b.logDebug("host disconnected", "mode", mode.String(), "error", err)
		}
	}
}

// session publishes a new connection and serves it with the active firmware.
func (b *Board) session(ctx context.Context, mode Mode) (reset bool, err error) {
	devEnd, hostEnd := net.Pipe()
	defer devEnd.Close()

	stop := context.AfterFunc(ctx, func() { devEnd.Close() })
	defer stop()

	b.publish(hostEnd)

	switch mode {
	case Application:
		reset, err = b.app.Serve(devEnd)
	default:
		err = b.device.Serve(ctx, devEnd)
		reset = errors.Is(err, stage0.ErrReset)
	}

	if reset {
		// Resetting drops the USB connection.
		hostEnd.Close()
	}
	return reset, err
}

// publish replaces any unclaimed connection with conn.
func (b *Board) publish(conn net.Conn) {
	select {
	case stale := <-b.conns:
		stale.Close()
	default:
	}
	b.conns <- conn
}

// Connect waits for the board to enumerate and returns the host end of its
// serial link.
func (b *Board) Connect(ctx context.Context) (net.Conn, error) {
	select {
	case conn := <-b.conns:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Open connects to the board by port name, waiting up to a second for it to
// enumerate. It matches discovery's open hook.
func (b *Board) Open(name string) (net.Conn, error) {
	if name != b.portName {
		return nil, fmt.Errorf("sim: no such port %q", name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return b.Connect(ctx)
}

// Ports lists the board as a USB serial port while it runs. It matches
// discovery's enumerator hook.
func (b *Board) Ports() ([]*enumerator.PortDetails, error) {
	var product string
	switch b.Mode() {
	case Bootloader:
		product = BootloaderProduct
	case Application:
		product = ApplicationProduct
	default:
		return nil, nil
	}
	return []*enumerator.PortDetails{{
		Name:         b.portName,
		IsUSB:        true,
		VID:          "C0DE",
		PID:          "CAFE",
		SerialNumber: b.serial,
		Product:      product,
	}}, nil
}

// Mode returns the running firmware.
func (b *Board) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Entry returns the address the application was started from.
func (b *Board) Entry() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entry
}

// Boots returns how many times the board has booted.
func (b *Board) Boots() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.boots
}

// WaitMode blocks until the board runs mode or ctx is done.
func (b *Board) WaitMode(ctx context.Context, mode Mode) error {
	for {
		b.mu.Lock()
		current, changed := b.mode, b.changed
		b.mu.Unlock()

		if current == mode {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s (board is %s): %w", mode, current, ctx.Err())
		}
	}
}

// RAM returns the scratch memory.
func (b *Board) RAM() *memory.RAM {
	return b.ram
}

// Flash returns the NOR part.
func (b *Board) Flash() *NORFlash {
	return b.flash
}

// Handoff returns the warm-reset-surviving handoff words.
func (b *Board) Handoff() *handoff.WordCell {
	return b.cell
}

// Stats returns the stage0 dispatcher counters.
func (b *Board) Stats() stage0.Stats {
	return b.device.Stats()
}

// Layout returns the board memory map.
func (b *Board) Layout() Layout {
	return b.layout
}

func (b *Board) boot(mode Mode, entry uint32) {
	b.mu.Lock()
	b.boots++
	b.mu.Unlock()

	b.app.Info = appInfo(b.app.Info.Version)
	if mode == Application {
		b.app.Info.BuildID = fmt.Sprintf("%08x", entry)
	}
	b.setMode(mode, entry)
	b.logInfo("boot", "mode", mode.String(), "entry", fmt.Sprintf("0x%08X", entry))
}

func (b *Board) setMode(mode Mode, entry uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
	b.entry = entry
	close(b.changed)
	b.changed = make(chan struct{})
}

func appInfo(version string) protocol.AppInfo {
	return protocol.AppInfo{Name: "Soup_App", Version: version}
}

func (b *Board) logDebug(msg string, keysAndValues ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *Board) logInfo(msg string, keysAndValues ...interface{}) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}
