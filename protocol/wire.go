package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// The schema encoding is deliberately small: every integer and variant tag is
// an unsigned LEB128 varint, byte strings are a varint length followed by the
// raw bytes, and variant payload fields follow their tag in declaration order.
// Encoding is canonical, so independently built peers agree byte for byte.

func appendUint(b []byte, v uint) []byte {
	return protowire.AppendVarint(b, uint64(v))
}

func appendU32(b []byte, v uint32) []byte {
	return protowire.AppendVarint(b, uint64(v))
}

func appendTag(b []byte, tag uint64) []byte {
	return protowire.AppendVarint(b, tag)
}

func appendView(b []byte, v ByteView) []byte {
	return protowire.AppendBytes(b, viewBytes(v))
}

// decoder consumes one schema-encoded message. The first failure sticks and
// every later read returns a zero value, so message decoders can read all
// fields and check err once.
type decoder struct {
	buf []byte
	own Ownership
	err error
}

func newDecoder(b []byte, own Ownership) *decoder {
	return &decoder{buf: b, own: own}
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) varint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.fail(fmt.Errorf("%w: %v", ErrDeserialize, protowire.ParseError(n)))
		return 0
	}
	if n != protowire.SizeVarint(v) {
		d.fail(fmt.Errorf("%w: non-canonical varint", ErrDeserialize))
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) tag() uint64 {
	return d.varint()
}

// uint decodes a machine-word sized value and rejects anything the platform
// word cannot hold rather than truncating it.
func (d *decoder) uint() uint {
	v := d.varint()
	if v > math.MaxUint {
		d.fail(fmt.Errorf("%w: value 0x%X exceeds word size", ErrDeserialize, v))
		return 0
	}
	return uint(v)
}

func (d *decoder) u32() uint32 {
	v := d.varint()
	if v > math.MaxUint32 {
		d.fail(fmt.Errorf("%w: value 0x%X exceeds u32", ErrDeserialize, v))
		return 0
	}
	return uint32(v)
}

func (d *decoder) view() ByteView {
	if d.err != nil {
		return nil
	}
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		d.fail(fmt.Errorf("%w: %v", ErrDeserialize, protowire.ParseError(n)))
		return nil
	}
	d.buf = d.buf[n:]
	if d.own == Own {
		return Owned(append([]byte{}, v...))
	}
	return Borrowed(v)
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrDeserialize, len(d.buf))
	}
	return nil
}

func (d *decoder) unknown(kind string, tag uint64) {
	d.fail(fmt.Errorf("%w: %s tag %d", ErrUnknownTag, kind, tag))
}
