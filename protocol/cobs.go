package protocol

import "errors"

// COBS errors.
var (
	// ErrCobsZero indicates a zero byte inside an encoded frame.
	ErrCobsZero = errors.New("cobs: unexpected zero byte")

	// ErrCobsTruncated indicates a block code that runs past the end of the frame.
	ErrCobsTruncated = errors.New("cobs: truncated block")
)

// cobsMaxRun is the longest run of non-zero bytes a single block code can describe.
const cobsMaxRun = 0xFF

// CobsEncode appends the COBS encoding of src to dst and returns the extended
// slice. The output contains no zero bytes and no trailing delimiter.
func CobsEncode(dst, src []byte) []byte {
	codeIdx := len(dst)
	dst = append(dst, 0)
	code := byte(1)

	for i, b := range src {
		if b != 0 {
			dst = append(dst, b)
			code++
			if code != cobsMaxRun {
				continue
			}
			// A full block at the very end needs no follow-up block.
			if i == len(src)-1 {
				break
			}
		}
		dst[codeIdx] = code
		codeIdx = len(dst)
		dst = append(dst, 0)
		code = 1
	}

	dst[codeIdx] = code
	return dst
}

// CobsMaxEncodedLen returns the worst-case encoded length for n payload bytes,
// excluding delimiters.
func CobsMaxEncodedLen(n int) int {
	return n + n/254 + 1
}

// CobsDecode appends the decoded form of src (without delimiters) to dst.
func CobsDecode(dst, src []byte) ([]byte, error) {
	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return dst, ErrCobsZero
		}
		i++

		end := i + int(code) - 1
		if end > len(src) {
			return dst, ErrCobsTruncated
		}
		for _, b := range src[i:end] {
			if b == 0 {
				return dst, ErrCobsZero
			}
		}
		dst = append(dst, src[i:end]...)
		i = end

		if code != cobsMaxRun && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}

// CobsDecodeInPlace decodes buf (without delimiters) over itself and returns
// the decoded length. The decoded form is never longer than the encoded one,
// so the write index never overtakes the read index.
func CobsDecodeInPlace(buf []byte) (int, error) {
	w := 0
	for r := 0; r < len(buf); {
		code := buf[r]
		if code == 0 {
			return 0, ErrCobsZero
		}
		r++

		end := r + int(code) - 1
		if end > len(buf) {
			return 0, ErrCobsTruncated
		}
		for ; r < end; r++ {
			if buf[r] == 0 {
				return 0, ErrCobsZero
			}
			buf[w] = buf[r]
			w++
		}

		if code != cobsMaxRun && r < len(buf) {
			buf[w] = 0
			w++
		}
	}
	return w, nil
}

// EncodeFrame appends a complete wire frame for payload to dst:
//
//	[0x00][COBS(payload)][0x00]
//
// The leading zero is a resynchronisation guard; receivers skip empty frames.
func EncodeFrame(dst, payload []byte) []byte {
	dst = append(dst, Delimiter)
	dst = CobsEncode(dst, payload)
	return append(dst, Delimiter)
}
