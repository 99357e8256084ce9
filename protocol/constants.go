package protocol

// ProtocolVersion is the stage0 ICD revision implemented by this package.
const ProtocolVersion = "0.2"

// Frame structure constants.
const (
	// Delimiter terminates every COBS frame and is the only byte value that
	// never appears inside an encoded frame.
	Delimiter = 0x00

	// FrameOverhead is the worst-case framing overhead for a payload that fits
	// in a single COBS block: guard(1) + code(1) + delimiter(1).
	FrameOverhead = 3

	// DefaultAccumulatorSize is the bounded in-flight frame capacity used on
	// both sides of the link.
	DefaultAccumulatorSize = 512

	// MaxPeekLen is the longest peek whose reply frame, at any address,
	// still fits DefaultAccumulatorSize.
	MaxPeekLen = 448
)

// Request tags (host -> device). The numbering is part of the wire contract.
const (
	TagPeekBytes      = 0
	TagPokeBytes      = 1
	TagClearMagic     = 2
	TagReboot         = 3
	TagBootload       = 4
	TagPeekBytesFlash = 5
	TagFlashCopy      = 6
)

// Reply result tags.
const (
	ResultOk  = 0
	ResultErr = 1
)

// Response tags (device -> host, inside ResultOk).
const (
	TagRespPeekBytes      = 0
	TagRespPoked          = 1
	TagRespMagicCleared   = 2
	TagRespPeekBytesFlash = 3
	TagRespFlashCopied    = 4
)

// Device error tags (device -> host, inside ResultErr).
const (
	TagErrAddressOutOfRange       = 0
	TagErrRangeTooLarge           = 1
	TagErrUnalignedFlashAddr      = 2
	TagErrCantOverwriteBootloader = 3
	TagErrFlashCopyFailed         = 4
)

// Application ICD tags, host -> application firmware.
const (
	TagToAppStdin   = 0
	TagToAppControl = 1
	TagToAppData    = 2
)

// Application control codes carried by TagToAppControl.
const (
	ControlReboot      = 0
	ControlSendAppInfo = 1
)

// Application ICD tags, application firmware -> host.
const (
	TagFromAppStdout          = 0
	TagFromAppStderr          = 1
	TagFromAppControlResponse = 2
	TagFromAppData            = 3
	TagFromAppError           = 4
)

// Application error codes carried by TagFromAppError.
const (
	AppErrOther          = 0
	AppErrInvalidMessage = 1
)

// MaxVarintLen is the longest varint accepted by the decoder (64-bit values).
const MaxVarintLen = 10
