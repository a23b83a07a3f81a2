package dsd

import (
	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/internal/crc"
)

// FastDecoder decodes mode-1 DSD_BLOCK payloads: a range coder over
// history_bins = 1<<history_bits probability tables, one table
// selected per output byte by the previous byte's low history_bits
// bits (unpack_dsd.c's init_dsd_block_fast/decode_fast).
type FastDecoder struct {
	historyBins   int
	probabilities [][256]byte
	summed        [][256]int32
	valueLookup   [][]byte
	state         *rangeState
	mono          bool
	p0, p1        int
}

// computeFastStats derives the cumulative probability table and the
// flattened symbol lookup decode_fast/encode both need from a raw
// 256-entry-per-bin probability table, and returns the combined
// total across all bins (init_dsd_block_fast's per-bin loop building
// summed_probabilities and value_lookup).
func computeFastStats(probabilities [][256]byte) (summed [][256]int32, valueLookup [][]byte, total int32) {
	historyBins := len(probabilities)
	summed = make([][256]int32, historyBins)
	valueLookup = make([][]byte, historyBins)
	for bin := 0; bin < historyBins; bin++ {
		var sum int32
		for i := 0; i < 256; i++ {
			sum += int32(probabilities[bin][i])
			summed[bin][i] = sum
		}
		if sum > 0 {
			total += sum
			vp := make([]byte, 0, sum)
			for i := 0; i < 256; i++ {
				for c := probabilities[bin][i]; c > 0; c-- {
					vp = append(vp, byte(i))
				}
			}
			valueLookup[bin] = vp
		}
	}
	return summed, valueLookup, total
}

// NewFastDecoder parses a mode-1 DSD_BLOCK payload starting at the
// history_bits byte (i.e. immediately after the shared
// [dsd_power, mode] prefix init_dsd_block itself consumes) and
// primes the range decoder's initial 4-byte window. mono selects
// whether each decoded byte's history bin comes from the byte just
// before it (true) or from the byte two positions back, the previous
// byte of the same interleaved stereo channel (false), per
// decode_fast's MONO_DATA branch.
func NewFastDecoder(payload []byte, mono bool) (*FastDecoder, error) {
	if len(payload) < 2 {
		return nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: fast-mode payload too short")
	}
	historyBits := payload[0]
	if historyBits > MaxHistoryBits {
		return nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: history_bits %d exceeds %d", historyBits, MaxHistoryBits)
	}
	historyBins := 1 << historyBits
	maxProbability := payload[1]
	pos := 2

	probabilities := make([][256]byte, historyBins)
	flatLen := historyBins * 256

	if maxProbability < 0xff {
		// A zero code here is a redundant end-of-table marker, valid
		// only once the flat array has already been completely filled
		// by explicit entries and zero-runs (code > max_probability);
		// a zero reached with the table still short is malformed, per
		// init_dsd_block_fast's outptr-vs-outend post-loop check.
		out := 0
		for out < flatLen && pos < len(payload) {
			code := payload[pos]
			pos++
			switch {
			case code > maxProbability:
				zcount := int(code) - int(maxProbability)
				for out < flatLen && zcount > 0 {
					out++
					zcount--
				}
			case code != 0:
				probabilities[out/256][out%256] = code
				out++
			default:
				return nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: fast-mode table terminated early")
			}
		}
		if out < flatLen {
			return nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: truncated fast-mode probability table")
		}
		if pos < len(payload) {
			b := payload[pos]
			pos++
			if b != 0 {
				return nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: missing fast-mode table terminator")
			}
		}
	} else {
		if len(payload)-pos < flatLen {
			return nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: truncated raw fast-mode probability table")
		}
		for bin := 0; bin < historyBins; bin++ {
			copy(probabilities[bin][:], payload[pos:pos+256])
			pos += 256
		}
	}

	summed, valueLookup, total := computeFastStats(probabilities)
	if len(payload)-pos < 4 || total > int32(historyBins*1280) {
		return nil, wavpack.Errf(wavpack.MalformedMetadata, "dsd: invalid fast-mode probability totals")
	}

	return &FastDecoder{
		historyBins:   historyBins,
		probabilities: probabilities,
		summed:        summed,
		valueLookup:   valueLookup,
		state:         newRangeState(payload[pos:]),
		mono:          mono,
	}, nil
}

// DecodeFast fills dst (one byte per output sample, interleaved L/R
// when mono is false) and returns the updated audio CRC. Ported from
// decode_fast.
func (d *FastDecoder) DecodeFast(dst []int32, c crc.Audio) (crc.Audio, error) {
	for i := range dst {
		bin := d.p0
		total := d.summed[bin][255]
		if total == 0 {
			return c, wavpack.Errf(wavpack.MalformedMetadata, "dsd: empty probability bin %d", bin)
		}

		rangeWidth := d.state.high - d.state.low
		mult := rangeWidth / uint32(total)

		if mult == 0 {
			if len(d.state.src)-d.state.pos >= 4 {
				for j := 0; j < 4; j++ {
					d.state.value = (d.state.value << 8) | uint32(d.state.nextByte())
				}
			}
			d.state.low = 0
			d.state.high = 0xffffffff
			mult = d.state.high / uint32(total)
			if mult == 0 {
				return c, wavpack.Errf(wavpack.MalformedMetadata, "dsd: range collapsed")
			}
		}

		index := (d.state.value - d.state.low) / mult
		if index >= uint32(total) {
			return c, wavpack.Errf(wavpack.MalformedMetadata, "dsd: range index out of bounds")
		}

		code := d.valueLookup[bin][index]
		if code != 0 {
			d.state.low += uint32(d.summed[bin][code-1]) * mult
		}
		d.state.high = d.state.low + uint32(d.probabilities[bin][code])*mult - 1

		dst[i] = int32(code)
		c = c.UpdateMono(int32(code))

		if d.mono {
			d.p0 = int(code) & (d.historyBins - 1)
		} else {
			d.p0 = d.p1
			d.p1 = int(code) & (d.historyBins - 1)
		}

		d.state.refill()
	}
	return c, nil
}

// EncodeFastTable serializes a raw (non-run-length-encoded)
// probability table in the max_probability==0xff form
// init_dsd_block_fast accepts as its "else" branch: history_bits,
// then 0xff, then the flattened history_bins*256-byte table.
func EncodeFastTable(historyBits uint8, probabilities [][256]byte) []byte {
	out := make([]byte, 0, 2+len(probabilities)*256)
	out = append(out, historyBits, 0xff)
	for _, bin := range probabilities {
		out = append(out, bin[:]...)
	}
	return out
}

// EncodeFast range-encodes codes (one byte-valued sample per entry)
// against probabilities and returns the coded byte stream to append
// after EncodeFastTable's header. There is no pack-side reference for
// DSD fast mode in the provided corpus; this is the direct algebraic
// mirror of DecodeFast's low/high update rules, which is what makes
// the pair round-trip.
func EncodeFast(codes []int32, historyBits uint8, probabilities [][256]byte, mono bool) ([]byte, error) {
	historyBins := 1 << historyBits
	if len(probabilities) != historyBins {
		return nil, wavpack.Errf(wavpack.ConfigError, "dsd: probability table size mismatch")
	}
	summed, _, total := computeFastStats(probabilities)
	if total == 0 || total > int32(historyBins*1280) {
		return nil, wavpack.Errf(wavpack.ConfigError, "dsd: invalid fast-mode probability totals")
	}

	w := newRangeWriter()
	p0, p1 := 0, 0

	for _, v := range codes {
		code := byte(uint32(v))
		bin := p0
		t := uint32(summed[bin][255])

		rangeWidth := w.high - w.low
		mult := rangeWidth / t
		if mult == 0 {
			w.low = 0
			w.high = 0xffffffff
			mult = w.high / t
			if mult == 0 {
				return nil, wavpack.Errf(wavpack.BufferOverflow, "dsd: range collapsed during encode")
			}
		}

		if code != 0 {
			w.low += uint32(summed[bin][code-1]) * mult
		}
		w.high = w.low + uint32(probabilities[bin][code])*mult - 1

		if mono {
			p0 = int(code) & (historyBins - 1)
		} else {
			p0 = p1
			p1 = int(code) & (historyBins - 1)
		}

		w.refill()
	}

	return w.flush(), nil
}
