package wavpack

import "fmt"

// Kind classifies the error conditions of spec §7.
type Kind int

// Error kinds, spec §7.
const (
	// InvalidHeader: magic/version/size sanity failed. Non-fatal at
	// open — the reader resyncs by scanning forward up to 1 MiB.
	InvalidHeader Kind = iota
	// TruncatedBlock: payload shorter than ckSize. Fatal for that
	// block; counted as a crc-error, samples filled with zero.
	TruncatedBlock
	// MalformedMetadata: unknown required sub-block, or an impossible
	// field combination. Marks the stream MUTE for the block.
	MalformedMetadata
	// ChecksumMismatch: block CRC or BLOCK_CHECKSUM didn't match.
	ChecksumMismatch
	// WvcMismatch: correction block absent or misaligned.
	WvcMismatch
	// BufferOverflow: output buffer for a block too small (encode).
	BufferOverflow
	// WriteFailure: writer callback returned short.
	WriteFailure
	// ConfigError: SetConfiguration called with an invalid combination.
	ConfigError
)

func (k Kind) String() string {
	switch k {
	case InvalidHeader:
		return "invalid header"
	case TruncatedBlock:
		return "truncated block"
	case MalformedMetadata:
		return "malformed metadata"
	case ChecksumMismatch:
		return "checksum mismatch"
	case WvcMismatch:
		return "correction stream mismatch"
	case BufferOverflow:
		return "buffer overflow"
	case WriteFailure:
		return "write failure"
	case ConfigError:
		return "invalid configuration"
	default:
		return "unknown error"
	}
}

// Error is the error type returned across the Packer/Unpacker API. It
// carries a Kind so callers can branch on the error-kind table of
// spec §7 without string matching.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Errf builds an *Error of the given kind with a formatted message.
func Errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is supports errors.Is(err, wavpack.Errf(kind, "")) by comparing Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
