package bootloader

// Chunk is one request-sized piece of a Transfer.
type Chunk struct {
	// Addr is the device address of the chunk
	Addr uint

	// Offset is the position of the chunk within the transfer
	Offset int

	// Len is the chunk length in bytes
	Len int
}

// Transfer walks a device address range in chunks. It lives for a single
// command and is not safe for concurrent use.
type Transfer struct {
	Start     uint
	Total     int
	ChunkSize int

	offset int
}

// NewTransfer creates a cursor over total bytes starting at start.
func NewTransfer(start uint, total, chunkSize int) *Transfer {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Transfer{Start: start, Total: total, ChunkSize: chunkSize}
}

// Next returns the next chunk and advances the cursor. It returns false once
// the range is exhausted.
func (t *Transfer) Next() (Chunk, bool) {
	if t.offset >= t.Total {
		return Chunk{}, false
	}
	n := min(t.ChunkSize, t.Total-t.offset)
	c := Chunk{Addr: t.Start + uint(t.offset), Offset: t.offset, Len: n}
	t.offset += n
	return c, true
}

// Done returns the number of bytes handed out so far.
func (t *Transfer) Done() int {
	return t.offset
}

// Percentage returns the share of the range handed out so far.
func (t *Transfer) Percentage() float64 {
	if t.Total == 0 {
		return 100
	}
	return float64(t.offset) / float64(t.Total) * 100
}
