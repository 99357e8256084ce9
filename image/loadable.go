package image

import "errors"

// Loadable is a contiguous memory image and the address it belongs at.
type Loadable struct {
	// Addr is the device address of Data[0]
	Addr uint32

	// Data is the flattened image contents
	Data []byte
}

// End returns the first address past the image.
func (l *Loadable) End() uint64 {
	return uint64(l.Addr) + uint64(len(l.Data))
}

// Format identifies an image file format.
type Format int

const (
	// FormatAuto detects the format from the file contents.
	FormatAuto Format = iota
	FormatELF
	FormatHex
	FormatBinary
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatELF:
		return "elf"
	case FormatHex:
		return "ihex"
	case FormatBinary:
		return "binary"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyImage indicates a file with nothing to load.
	ErrEmptyImage = errors.New("image: nothing to load")

	// ErrUnsupportedFormat indicates a file that is not a loadable image of a
	// supported kind.
	ErrUnsupportedFormat = errors.New("image: unsupported format")
)

type config struct {
	format  Format
	addr    uint32
	hasAddr bool
}

// Option configures parsing.
type Option func(*config)

// WithFormat skips detection and parses as f.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithAddress sets the load address for raw binaries. It is ignored for
// formats that carry their own addresses.
func WithAddress(addr uint32) Option {
	return func(c *config) {
		c.addr = addr
		c.hasAddr = true
	}
}
