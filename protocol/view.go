package protocol

// ByteView is a read-only view of a message byte payload.
//
// Device code decodes into Borrowed views that alias the receive buffer, so no
// allocation happens per request. Host code decodes into Owned copies that
// outlive the read loop.
type ByteView interface {
	Bytes() []byte
}

// Borrowed aliases a caller-owned buffer. It is only valid until the buffer is
// reused (for the accumulator: until the next Feed).
type Borrowed []byte

// Bytes implements ByteView.
func (b Borrowed) Bytes() []byte { return b }

// Owned is a private copy of a payload.
type Owned []byte

// Bytes implements ByteView.
func (o Owned) Bytes() []byte { return o }

// ToOwned copies any view into an Owned one.
func ToOwned(v ByteView) Owned {
	if v == nil {
		return nil
	}
	if o, ok := v.(Owned); ok {
		return o
	}
	return Owned(append([]byte(nil), v.Bytes()...))
}

// Ownership selects how decoders materialise byte payloads.
type Ownership int

const (
	// Borrow makes decoded payloads alias the input buffer.
	Borrow Ownership = iota

	// Own makes decoded payloads independent copies.
	Own
)

func viewBytes(v ByteView) []byte {
	if v == nil {
		return nil
	}
	return v.Bytes()
}
