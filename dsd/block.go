package dsd

import "github.com/mewkiz/wavpack"

// BlockHeader is the two-byte prefix every DSD_BLOCK sub-block starts
// with (init_dsd_block): a dsd_power byte setting Multiplier, and the
// Mode selecting how the remaining payload is interpreted.
type BlockHeader struct {
	Power uint8
	Mode  Mode
}

// ParseBlockHeader reads the shared [dsd_power, mode] prefix and
// returns it along with the remaining payload bytes, which the
// caller dispatches to DecodeRaw, NewFastDecoder or NewHighDecoder
// according to Mode.
func ParseBlockHeader(data []byte) (BlockHeader, []byte, error) {
	if len(data) < 2 {
		return BlockHeader{}, nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: block too short for header")
	}
	h := BlockHeader{Power: data[0], Mode: Mode(data[1])}
	if h.Mode > ModeHigh {
		return BlockHeader{}, nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: unknown mode %d", h.Mode)
	}
	return h, data[2:], nil
}

// EncodeBlockHeader is ParseBlockHeader's inverse.
func EncodeBlockHeader(h BlockHeader) []byte {
	return []byte{h.Power, byte(h.Mode)}
}
