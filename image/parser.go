package image

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

var elfMagic = []byte("\x7fELF")

// Parse parses the image file at path.
//
// Example:
//
//	img, err := image.Parse("firmware.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Parse(path string, opts ...Option) (*Loadable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f, opts...)
}

// ParseReader parses an image from any io.Reader.
func ParseReader(r io.Reader, opts ...Option) (*Loadable, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}

	format := cfg.format
	if format == FormatAuto {
		format = Detect(raw, cfg.hasAddr)
	}

	var img *Loadable
	switch format {
	case FormatELF:
		img, err = parseELF(raw)
	case FormatHex:
		img, err = parseHex(raw)
	case FormatBinary:
		if !cfg.hasAddr {
			return nil, fmt.Errorf("%w: raw binary needs a load address", ErrUnsupportedFormat)
		}
		img = &Loadable{Addr: cfg.addr, Data: raw}
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	if len(img.Data) == 0 {
		return nil, ErrEmptyImage
	}
	if img.End() > 1<<32 {
		return nil, fmt.Errorf("%w: image at 0x%08X (%d bytes) exceeds the 32-bit address space",
			ErrUnsupportedFormat, img.Addr, len(img.Data))
	}
	return img, nil
}

// Detect guesses the format of raw. Files that are neither ELF nor Intel HEX
// are treated as raw binaries only when an address is available.
func Detect(raw []byte, haveAddr bool) Format {
	switch {
	case bytes.HasPrefix(raw, elfMagic):
		return FormatELF
	case bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), []byte(":")):
		return FormatHex
	case haveAddr:
		return FormatBinary
	default:
		return FormatAuto
	}
}
