package protocol

import "bytes"

// FeedStatus is the outcome of one Accumulator.Feed call.
type FeedStatus int

const (
	// Consumed means the whole chunk was buffered and no frame completed.
	Consumed FeedStatus = iota

	// Success means a frame completed and decoded into Value.
	Success

	// OverFull means a frame exceeded the accumulator capacity and was dropped.
	OverFull

	// DeserError means a frame completed but failed COBS or schema decoding.
	DeserError
)

// String returns the human-readable feed status.
func (s FeedStatus) String() string {
	switch s {
	case Consumed:
		return "Consumed"
	case Success:
		return "Success"
	case OverFull:
		return "OverFull"
	case DeserError:
		return "DeserError"
	default:
		return "Unknown"
	}
}

// FeedResult carries the outcome of Feed. Remaining is the unconsumed tail of
// the chunk passed to Feed; callers loop until it is empty.
type FeedResult[T any] struct {
	Status    FeedStatus
	Value     T
	Err       error
	Remaining []byte
}

// DecodeFunc decodes one COBS-decoded payload.
type DecodeFunc[T any] func(payload []byte, own Ownership) (T, error)

// Accumulator reassembles delimited COBS frames from arbitrary read chunks
// into a fixed buffer. Bad input never blocks it: oversize and undecodable
// frames are dropped and the stream resynchronises on the next delimiter.
//
// With Borrow ownership, byte views in a decoded Value alias the internal
// buffer and are only valid until the next Feed.
type Accumulator[T any] struct {
	buf    []byte
	idx    int
	own    Ownership
	decode DecodeFunc[T]

	// discarding drops input up to and including the next delimiter after
	// an oversize frame.
	discarding bool
}

// NewAccumulator creates an accumulator holding at most size encoded bytes.
func NewAccumulator[T any](size int, own Ownership, decode DecodeFunc[T]) *Accumulator[T] {
	if size <= 0 {
		size = DefaultAccumulatorSize
	}
	return &Accumulator[T]{
		buf:    make([]byte, size),
		own:    own,
		decode: decode,
	}
}

// NewRequestAccumulator creates a device-side request accumulator.
func NewRequestAccumulator(size int, own Ownership) *Accumulator[Request] {
	return NewAccumulator(size, own, DecodeRequest)
}

// NewReplyAccumulator creates a host-side reply accumulator.
func NewReplyAccumulator(size int, own Ownership) *Accumulator[Reply] {
	return NewAccumulator(size, own, DecodeReply)
}

// NewToAppAccumulator creates an application-side accumulator.
func NewToAppAccumulator(size int, own Ownership) *Accumulator[ToApp] {
	return NewAccumulator(size, own, DecodeToApp)
}

// NewFromAppAccumulator creates a host-side accumulator for application output.
func NewFromAppAccumulator(size int, own Ownership) *Accumulator[FromApp] {
	return NewAccumulator(size, own, DecodeFromApp)
}

// Cap returns the accumulator capacity in encoded bytes.
func (a *Accumulator[T]) Cap() int {
	return len(a.buf)
}

// Buffered returns the number of bytes of the current partial frame.
func (a *Accumulator[T]) Buffered() int {
	return a.idx
}

// Reset drops any partial frame.
func (a *Accumulator[T]) Reset() {
	a.idx = 0
	a.discarding = false
}

// Feed appends input to the current frame. At most one frame completes per
// call; the unconsumed tail is returned in Remaining.
func (a *Accumulator[T]) Feed(input []byte) FeedResult[T] {
	if a.discarding {
		end := bytes.IndexByte(input, Delimiter)
		if end < 0 {
			return FeedResult[T]{Status: Consumed}
		}
		a.discarding = false
		return FeedResult[T]{Status: Consumed, Remaining: input[end+1:]}
	}

	// Leading delimiters between frames are empty frames.
	if a.idx == 0 {
		for len(input) > 0 && input[0] == Delimiter {
			input = input[1:]
		}
	}
	if len(input) == 0 {
		return FeedResult[T]{Status: Consumed}
	}

	end := bytes.IndexByte(input, Delimiter)
	if end < 0 {
		if a.idx+len(input) <= len(a.buf) {
			a.idx += copy(a.buf[a.idx:], input)
			return FeedResult[T]{Status: Consumed}
		}
		// The rest of this frame may arrive in later reads.
		a.idx = 0
		a.discarding = true
		return FeedResult[T]{Status: OverFull, Err: ErrFrameTooLarge}
	}

	frame, rest := input[:end], input[end+1:]
	if a.idx+len(frame) > len(a.buf) {
		a.idx = 0
		return FeedResult[T]{Status: OverFull, Err: ErrFrameTooLarge, Remaining: rest}
	}

	a.idx += copy(a.buf[a.idx:], frame)
	n, err := CobsDecodeInPlace(a.buf[:a.idx])
	a.idx = 0
	if err != nil {
		return FeedResult[T]{Status: DeserError, Err: err, Remaining: rest}
	}

	v, err := a.decode(a.buf[:n], a.own)
	if err != nil {
		return FeedResult[T]{Status: DeserError, Err: err, Remaining: rest}
	}
	return FeedResult[T]{Status: Success, Value: v, Remaining: rest}
}
