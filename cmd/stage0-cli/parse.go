package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// parseAddress parses a hex address with an optional 0x prefix.
func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(trimHex(s), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

// parseBytes parses a comma-separated list of hex bytes, e.g. "0xA0,0xAB,11".
func parseBytes(s string) ([]byte, error) {
	var out []byte
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(trimHex(part), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", part, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func trimHex(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// hexDump writes data as uppercase hex, 16 bytes per line.
func hexDump(w io.Writer, data []byte) error {
	var sb strings.Builder
	for i, b := range data {
		fmt.Fprintf(&sb, "%02X ", b)
		if i%16 == 15 || i == len(data)-1 {
			sb.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// checkLength rejects lengths the device address space cannot hold.
func checkLength(n int) error {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return fmt.Errorf("invalid length %d", n)
	}
	return nil
}
