package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedAll feeds stream through acc and collects every result that is not
// Consumed.
func feedAll[T any](acc *Accumulator[T], stream []byte) []FeedResult[T] {
	var results []FeedResult[T]
	for window := stream; len(window) > 0; {
		res := acc.Feed(window)
		window = res.Remaining
		if res.Status != Consumed {
			results = append(results, res)
		}
	}
	return results
}

func mustFrameRequest(t *testing.T, req Request) []byte {
	t.Helper()
	frame, err := FrameRequest(req)
	require.NoError(t, err)
	return frame
}

func TestAccumulatorSingleFrame(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Own)
	frame := mustFrameRequest(t, PeekBytes{Addr: 0x20008000, Len: 16})

	results := feedAll(acc, frame)
	require.Len(t, results, 1)
	assert.Equal(t, Success, results[0].Status)
	assert.Equal(t, PeekBytes{Addr: 0x20008000, Len: 16}, results[0].Value)
	assert.Equal(t, 0, acc.Buffered())
}

func TestAccumulatorByteAtATime(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Own)
	frame := mustFrameRequest(t, PokeBytes{Addr: 8, Val: Owned{0x00, 0x11, 0x00}})

	var got []Request
	for i := range frame {
		res := acc.Feed(frame[i : i+1])
		assert.Empty(t, res.Remaining)
		if res.Status == Success {
			got = append(got, res.Value)
		} else {
			assert.Equal(t, Consumed, res.Status, "byte %d", i)
		}
	}

	require.Len(t, got, 1)
	assert.Equal(t, PokeBytes{Addr: 8, Val: Owned{0x00, 0x11, 0x00}}, got[0])
}

func TestAccumulatorMultipleFramesInOneChunk(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Own)
	stream := cat(
		mustFrameRequest(t, ClearMagic{}),
		mustFrameRequest(t, Reboot{}),
		mustFrameRequest(t, Bootload{Addr: 0x10000}),
	)

	results := feedAll(acc, stream)
	require.Len(t, results, 3)
	assert.Equal(t, ClearMagic{}, results[0].Value)
	assert.Equal(t, Reboot{}, results[1].Value)
	assert.Equal(t, Bootload{Addr: 0x10000}, results[2].Value)
}

func TestAccumulatorResyncAfterCorruptFrame(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Own)

	// Block code 5 with a single data byte is truncated COBS.
	corrupt := []byte{0x00, 0x05, 0x11, 0x00}
	valid := mustFrameRequest(t, PeekBytesFlash{Addr: 0x10000, Len: 4})

	results := feedAll(acc, cat(corrupt, valid))
	require.Len(t, results, 2)
	assert.Equal(t, DeserError, results[0].Status)
	assert.ErrorIs(t, results[0].Err, ErrCobsTruncated)
	assert.Equal(t, Success, results[1].Status)
	assert.Equal(t, PeekBytesFlash{Addr: 0x10000, Len: 4}, results[1].Value)
}

func TestAccumulatorResyncAfterSchemaError(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Own)

	unknown := EncodeFrame(nil, []byte{0x7F})
	valid := mustFrameRequest(t, ClearMagic{})

	results := feedAll(acc, cat(unknown, valid))
	require.Len(t, results, 2)
	assert.Equal(t, DeserError, results[0].Status)
	assert.ErrorIs(t, results[0].Err, ErrUnknownTag)
	assert.Equal(t, ClearMagic{}, results[1].Value)
}

func TestAccumulatorOverFullWithDelimiter(t *testing.T) {
	acc := NewRequestAccumulator(8, Own)

	garbage := bytes.Repeat([]byte{0x01}, 20)
	valid := mustFrameRequest(t, ClearMagic{})

	res := acc.Feed(cat(garbage, valid))
	assert.Equal(t, OverFull, res.Status)
	assert.ErrorIs(t, res.Err, ErrFrameTooLarge)
	assert.Equal(t, valid[1:], res.Remaining)

	res = acc.Feed(res.Remaining)
	assert.Equal(t, Success, res.Status)
	assert.Equal(t, ClearMagic{}, res.Value)
}

func TestAccumulatorOverFullWithoutDelimiter(t *testing.T) {
	acc := NewRequestAccumulator(8, Own)

	res := acc.Feed(bytes.Repeat([]byte{0x01}, 10))
	assert.Equal(t, OverFull, res.Status)
	assert.Empty(t, res.Remaining)
	assert.Equal(t, 0, acc.Buffered())

	// Everything up to the closing delimiter belongs to the dropped frame.
	res = acc.Feed([]byte{0x02, 0x03})
	assert.Equal(t, Consumed, res.Status)
	assert.Equal(t, 0, acc.Buffered())

	results := feedAll(acc, cat([]byte{0x00}, mustFrameRequest(t, Reboot{})))
	require.Len(t, results, 1)
	assert.Equal(t, Success, results[0].Status)
	assert.Equal(t, Reboot{}, results[0].Value)
}

func TestAccumulatorOversizeFrameAcrossReads(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Own)

	// The last piece of the oversize frame, 0x02 0x03, would decode as
	// Reboot if it started a frame of its own.
	var reads [][]byte
	for i := 0; i < DefaultAccumulatorSize/64; i++ {
		reads = append(reads, bytes.Repeat([]byte{0x01}, 64))
	}
	reads = append(reads, []byte{0x02, 0x03}, []byte{0x00}, mustFrameRequest(t, ClearMagic{}))

	var decoded []Request
	overFull := 0
	for _, read := range reads {
		for _, res := range feedAll(acc, read) {
			switch res.Status {
			case Success:
				decoded = append(decoded, res.Value)
			case OverFull:
				overFull++
			}
		}
	}

	assert.Equal(t, 1, overFull)
	assert.Equal(t, []Request{ClearMagic{}}, decoded)
}

func TestAccumulatorResetEndsDiscard(t *testing.T) {
	acc := NewRequestAccumulator(4, Own)

	res := acc.Feed(bytes.Repeat([]byte{0x01}, 6))
	require.Equal(t, OverFull, res.Status)
	acc.Reset()

	results := feedAll(acc, mustFrameRequest(t, ClearMagic{}))
	require.Len(t, results, 1)
	assert.Equal(t, ClearMagic{}, results[0].Value)
}

func TestAccumulatorSkipsEmptyFrames(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Own)

	results := feedAll(acc, []byte{0x00, 0x00, 0x00, 0x00})
	assert.Empty(t, results)
	assert.Equal(t, 0, acc.Buffered())
}

func TestAccumulatorBorrowAliasesBuffer(t *testing.T) {
	acc := NewRequestAccumulator(DefaultAccumulatorSize, Borrow)

	results := feedAll(acc, mustFrameRequest(t, PokeBytes{Addr: 1, Val: Owned{0xAA, 0xBB}}))
	require.Len(t, results, 1)

	poke, ok := results[0].Value.(PokeBytes)
	require.True(t, ok)
	_, borrowed := poke.Val.(Borrowed)
	assert.True(t, borrowed)
	assert.Equal(t, []byte{0xAA, 0xBB}, poke.Val.Bytes())
}

func TestAccumulatorReset(t *testing.T) {
	acc := NewReplyAccumulator(0, Own)
	assert.Equal(t, DefaultAccumulatorSize, acc.Cap())

	acc.Feed([]byte{0x02, 0x03})
	assert.Equal(t, 2, acc.Buffered())
	acc.Reset()
	assert.Equal(t, 0, acc.Buffered())
}

func TestFeedStatusString(t *testing.T) {
	assert.Equal(t, "Consumed", Consumed.String())
	assert.Equal(t, "Success", Success.String())
	assert.Equal(t, "OverFull", OverFull.String())
	assert.Equal(t, "DeserError", DeserError.String())
	assert.Equal(t, "Unknown", FeedStatus(42).String())
}
