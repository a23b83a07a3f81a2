package floatext

import "github.com/mewkiz/wavpack/internal/bitstream"

// Int32Info is the wide-integer counterpart to FloatInfo (spec §4.7:
// "integer samples wider than 24 bits use an analogous INT32_INFO
// metadata... to encode the excess bits in wvx"). No reference for
// this path is present in original_source/ (it lives alongside the
// float code in words.c/unpack_utils.c, neither provided), so this is
// built directly from spec.md's own summary: a common trailing-zero
// shift plus, for samples whose high bits don't already match the
// sign extension of their low 24 bits, an explicit high-bits residue.
type Int32Info struct {
	Shift     uint8
	ExtraBits uint8 // 0 means no sample in this block needed extra bits
}

// ScanInt32 factors out the common trailing-zero shift (the same role
// FloatInfo.Shift plays for floats) and reports how many high-order
// bits, beyond the 24-bit truncated stream, the widest outlier sample
// needs.
func ScanInt32(samples []int32) (*Int32Info, []int32) {
	n := len(samples)
	trunc := make([]int32, n)

	var orBits uint32
	for _, s := range samples {
		orBits |= uint32(s)
	}
	shift := uint8(0)
	if orBits != 0 {
		for shift < 24 && orBits&(1<<shift) == 0 {
			shift++
		}
	}

	need := false
	minHi, maxHi := int32(0), int32(0)
	for _, s := range samples {
		v := s >> shift
		lo := v & 0xFFFFFF
		hi := v >> 24
		expect := int32(0)
		if lo&(1<<23) != 0 {
			expect = -1
		}
		if hi != expect {
			need = true
		}
		if hi < minHi {
			minHi = hi
		}
		if hi > maxHi {
			maxHi = hi
		}
	}

	info := &Int32Info{Shift: shift}
	if need {
		info.ExtraBits = bitsForSignedRange(minHi, maxHi)
	}

	for i, s := range samples {
		trunc[i] = (s >> shift) & 0xFFFFFF
	}
	return info, trunc
}

func bitsForSignedRange(lo, hi int32) uint8 {
	b := uint8(1)
	for b < 32 {
		limitLo := -(int32(1) << uint(b-1))
		limitHi := (int32(1) << uint(b-1)) - 1
		if lo >= limitLo && hi <= limitHi {
			return b
		}
		b++
	}
	return 32
}

// EncodeInt32Residue writes the one-bit "matches expected sign
// extension" flag and, when it doesn't, the full high-bits value for
// one sample. original must be the same value trunc (from ScanInt32)
// was truncated from.
func EncodeInt32Residue(w *bitstream.Writer, info *Int32Info, truncValue, original int32) error {
	if info.ExtraBits == 0 {
		return nil
	}
	v := original >> info.Shift
	hi := v >> 24
	expect := int32(0)
	if truncValue&(1<<23) != 0 {
		expect = -1
	}
	if hi == expect {
		return w.PutBit(0)
	}
	if err := w.PutBit(1); err != nil {
		return err
	}
	mask := uint64(1)<<uint(info.ExtraBits) - 1
	return w.PutBits(uint64(uint32(hi))&mask, uint(info.ExtraBits))
}

// DecodeInt32Reconstruct is EncodeInt32Residue's inverse.
func DecodeInt32Reconstruct(r *bitstream.Reader, info *Int32Info, truncValue int32) (int32, error) {
	expect := int32(0)
	if truncValue&(1<<23) != 0 {
		expect = -1
	}
	hi := expect

	if info.ExtraBits != 0 {
		flag, err := r.GetBit()
		if err != nil {
			return 0, err
		}
		if flag == 1 {
			raw, err := r.GetBits(uint(info.ExtraBits))
			if err != nil {
				return 0, err
			}
			hi = signExtend(uint32(raw), info.ExtraBits)
		}
	}

	full := (hi << 24) | (truncValue & 0xFFFFFF)
	return full << info.Shift, nil
}

func signExtend(raw uint32, width uint8) int32 {
	shift := 32 - width
	return int32(raw<<shift) >> shift
}
