package block

import (
	"github.com/mewkiz/pkg/errutil"
	"github.com/mewkiz/wavpack"
)

// SubID identifies a metadata sub-block's function (spec §3
// "Sub-block (metadata) framing"). Only the low 6 bits of the on-wire
// id byte are the function; bits 0x80/0x40 are the LARGE/ODD-SIZE
// framing flags decoded separately into SubBlock.Large/OddSize.
type SubID byte

// Optional is the bit within the 6-bit function field that marks a
// sub-block as safe to skip when unrecognized (spec §3: "Unknown ids
// with the OPTIONAL bit set are skipped; unknown ids without it are a
// fatal error for that block").
const Optional SubID = 0x20

// Recognized sub-block function ids (spec §3). Required ids occupy the
// low range 0x00-0x0E; ids that carry the Optional bit are anything
// the core may skip without understanding.
const (
	IDDummy          SubID = 0x00
	IDEncoderInfo    SubID = 0x01
	IDDecorrTerms    SubID = 0x02
	IDDecorrWeights  SubID = 0x03
	IDDecorrSamples  SubID = 0x04
	IDEntropyVars    SubID = 0x05
	IDHybridProfile  SubID = 0x06
	IDShapingWeights SubID = 0x07
	IDFloatInfo      SubID = 0x08
	IDInt32Info      SubID = 0x09
	IDWVBitstream    SubID = 0x0A
	IDWVCBitstream   SubID = 0x0B
	IDWVXBitstream   SubID = 0x0C
	IDChannelInfo    SubID = 0x0D
	IDDSDBlock       SubID = 0x0E

	IDRIFFHeader        SubID = Optional | 0x01
	IDRIFFTrailer       SubID = Optional | 0x02
	IDAltHeader         SubID = Optional | 0x03
	IDAltTrailer        SubID = Optional | 0x04
	IDConfigBlock       SubID = Optional | 0x05
	IDMD5Checksum       SubID = Optional | 0x06
	IDSampleRate        SubID = Optional | 0x07
	IDAltExtension      SubID = Optional | 0x08
	IDAltMD5Checksum    SubID = Optional | 0x09
	IDNewConfig         SubID = Optional | 0x0A
	IDChannelIdentities SubID = Optional | 0x0B
	// IDBlockChecksum's numeric value, OPTIONAL|0xF, is spelled out
	// literally in spec §4.4 ("function id `OPTIONAL | 0xF`").
	IDBlockChecksum SubID = Optional | 0x0F
)

// IsOptional reports whether the Optional bit is set on id.
func (id SubID) IsOptional() bool { return id&Optional != 0 }

const (
	largeBit   = 0x80
	oddSizeBit = 0x40
	funcMask   = 0x3F
	// maxPayload is the largest payload EncodeSubBlock can frame:
	// a 3-byte (24-bit) word count, minus one byte for odd-size
	// padding, times two bytes per word (spec §3: "up to 2^25-2 bytes").
	maxPayload = (1<<24)*2 - 2
)

// SubBlock is one parsed metadata TLV (spec §3).
type SubBlock struct {
	ID      SubID
	Payload []byte
}

// EncodeSubBlock frames (id, payload) as it would appear inside a
// block, choosing a 1- or 3-byte length field and ODD-SIZE padding per
// spec §4.3.
func EncodeSubBlock(id SubID, payload []byte) ([]byte, error) {
	if len(payload) > maxPayload {
		return nil, errutil.Newf("block: sub-block payload %d bytes exceeds max %d", len(payload), maxPayload)
	}
	odd := len(payload)%2 != 0
	stored := payload
	if odd {
		stored = append(append([]byte(nil), payload...), 0)
	}
	wordCount := len(stored) / 2
	large := wordCount > 255

	flags := byte(id)
	if odd {
		flags |= oddSizeBit
	}
	if large {
		flags |= largeBit
	}

	var out []byte
	if large {
		out = make([]byte, 0, 4+len(stored))
		out = append(out, flags, byte(wordCount), byte(wordCount>>8), byte(wordCount>>16))
	} else {
		out = make([]byte, 0, 2+len(stored))
		out = append(out, flags, byte(wordCount))
	}
	out = append(out, stored...)
	return out, nil
}

// DecodeSubBlock parses one TLV at the start of buf, returning the
// parsed SubBlock and the number of bytes it consumed.
func DecodeSubBlock(buf []byte) (*SubBlock, int, error) {
	if len(buf) < 2 {
		return nil, 0, errutil.Newf("block: truncated sub-block framing")
	}
	flags := buf[0]
	id := SubID(flags & funcMask)
	large := flags&largeBit != 0
	odd := flags&oddSizeBit != 0

	var wordCount int
	var headerLen int
	if large {
		if len(buf) < 4 {
			return nil, 0, errutil.Newf("block: truncated large sub-block length")
		}
		wordCount = int(buf[1]) | int(buf[2])<<8 | int(buf[3])<<16
		headerLen = 4
	} else {
		wordCount = int(buf[1])
		headerLen = 2
	}

	storedLen := wordCount * 2
	if odd && wordCount == 0 {
		return nil, 0, wavpack.Errf(wavpack.MalformedMetadata, "sub-block id 0x%02x: ODD-SIZE with zero length", id)
	}
	if len(buf) < headerLen+storedLen {
		return nil, 0, wavpack.Errf(wavpack.MalformedMetadata, "sub-block id 0x%02x: truncated payload (need %d, have %d)", id, storedLen, len(buf)-headerLen)
	}

	payloadLen := storedLen
	if odd {
		payloadLen--
	}
	payload := append([]byte(nil), buf[headerLen:headerLen+payloadLen]...)

	return &SubBlock{ID: id, Payload: payload}, headerLen + storedLen, nil
}

// DecodeAllSubBlocks walks buf decoding consecutive sub-blocks until
// it is exhausted.
func DecodeAllSubBlocks(buf []byte) ([]*SubBlock, error) {
	var out []*SubBlock
	for len(buf) > 0 {
		sb, n, err := DecodeSubBlock(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
		buf = buf[n:]
	}
	return out, nil
}
