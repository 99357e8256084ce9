package image

import (
	"bytes"
	"fmt"

	"github.com/marcinbor85/gohex"
)

// parseHex flattens the data records of an Intel HEX file from the lowest
// address, padding gaps with erased-flash 0xFF.
func parseHex(raw []byte) (*Loadable, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(bytes.TrimLeft(raw, " \t\r\n"))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	segs := mem.GetDataSegments()
	if len(segs) == 0 {
		return nil, ErrEmptyImage
	}

	low, high := uint64(segs[0].Address), uint64(0)
	for _, s := range segs {
		low = min(low, uint64(s.Address))
		high = max(high, uint64(s.Address)+uint64(len(s.Data)))
	}
	if high > 1<<32 {
		return nil, fmt.Errorf("%w: image ends at 0x%X, beyond the 32-bit address space", ErrUnsupportedFormat, high)
	}

	data := mem.ToBinary(uint32(low), uint32(high-low), 0xFF)
	return &Loadable{Addr: uint32(low), Data: data}, nil
}
