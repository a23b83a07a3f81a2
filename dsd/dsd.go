// Package dsd implements spec §4.8's DSD (1-bit Direct Stream Digital)
// audio path: the raw byte pass-through mode and the two range-coded
// modes a DSD_BLOCK sub-block can select, "fast" (history-indexed
// probability tables) and "high" (per-channel IIR-filtered adaptive
// table), plus the dsd_multiplier sample-rate scaling every DSD block
// reports.
//
// Grounded on original_source/src/unpack_dsd.c. Only the decode side
// of that file is present in the corpus; Encode* in this package are
// written as direct algebraic inverses of the matching Decode* loop
// rather than ports of a reference encoder (there is no pack_dsd.c in
// the provided original_source/ subset) — see DESIGN.md.
package dsd

import "github.com/mewkiz/wavpack/internal/crc"

// Mode selects which of the three DSD_BLOCK payload shapes a block
// uses (spec §4.8).
type Mode uint8

const (
	// ModeRaw is uncompressed 1-bit-per-byte DSD data, one byte per
	// channel per output sample, copied through verbatim.
	ModeRaw Mode = 0
	// ModeFast is the history-indexed probability-table range coder.
	ModeFast Mode = 1
	// ModeHigh is the per-channel IIR-filtered adaptive range coder.
	ModeHigh Mode = 2
)

// MaxHistoryBits bounds the fast-mode history_bits field (spec §4.8:
// "history_bits ≤ 5").
const MaxHistoryBits = 5

// Multiplier returns the dsd_multiplier spec §4.8 says scales the
// block's reported PCM sample rate up to the true DSD bit rate:
// 1<<power. power is the single byte stored at the start of every
// DSD_BLOCK sub-block regardless of mode.
func Multiplier(power uint8) uint32 {
	return uint32(1) << power
}

// DecodeRaw copies len(dst) bytes of uncompressed DSD data from src into
// dst, folding each byte into the block's running audio CRC with the
// same recurrence PCM mono samples use (unpack_dsd.c's init_dsd_block
// mode-0 path: "crc += (crc<<1) + code"). It returns the number of
// bytes copied, which is less than len(dst) if src is short.
func DecodeRaw(dst []int32, src []byte, c crc.Audio) (n int, _ crc.Audio) {
	n = len(dst)
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		code := int32(src[i])
		dst[i] = code
		c = c.UpdateMono(code)
	}
	return n, c
}

// EncodeRaw is DecodeRaw's inverse: it packs the low 8 bits of each
// sample of src into dst and returns the updated CRC.
func EncodeRaw(dst []byte, src []int32, c crc.Audio) crc.Audio {
	for i, v := range src {
		code := int32(uint8(v))
		dst[i] = uint8(code)
		c = c.UpdateMono(code)
	}
	return c
}
