// Package floatext implements spec §4.7's float and wide-integer
// reconstruction path: the wvx side bitstream that lets a lossy
// integer residual stream be restored to the exact original
// floating-point or >24-bit integer samples.
//
// Grounded on original_source/src/pack_floats.c (scan_float_data,
// send_float_data); the provided original_source/ subset has no
// unpack-side counterpart, so DecodeFloatReconstruct's normalization
// is derived by hand as send_float_data's inverse rather than ported
// from a reference decoder — see DESIGN.md.
package floatext

import "math"

// Flags mirrors the handful of per-block float decisions spec §4.7
// calls FLOAT_INFO's "float_flags": which optional fields actually
// appear in the wvx stream for this block.
type Flags uint8

const (
	FlagShiftOnes Flags = 1 << iota
	FlagShiftSame
	FlagShiftSent
	FlagZerosSent
	FlagNegZeros
	FlagExceptions
)

// exceptionMarker is an out-of-band integer value scan_float_data uses
// for the exponent-255 (inf/NaN) case; no normal sample's 25-bit
// magnitude can reach it, so the decoder detects exceptions by value
// alone.
const exceptionMarker = 0x1000000

// FloatInfo is the per-block scan result (spec §4.7's FLOAT_INFO
// sub-block): the common exponent samples are normalized against, the
// common post-shift applied to every integer result, and which
// optional wvx fields this block's samples actually need.
type FloatInfo struct {
	MaxExp int
	// Shift is the common trailing-zero count ScanFloats removed from
	// every converted integer before decorrelation sees it. Whatever
	// reconstructs a sample from the decorrelated stream must left-shift
	// it back by Shift before passing it to DecodeFloatReconstruct.
	Shift   uint8
	Flags   Flags
	NormExp uint8 // 127+23: the IEEE-754 single-precision bias+mantissa-width baseline, carried for wire completeness
}

// ScanFloats converts values to the integer stream the decorrelator
// operates on (spec §4.7: "value = (mantissa | 0x800000) >>
// (max_exp-exponent)") and determines the FloatInfo a later call to
// EncodeFloatResidue needs to recover whatever didn't survive that
// conversion. Grounded on scan_float_data.
func ScanFloats(values []float32) (*FloatInfo, []int32) {
	info := &FloatInfo{NormExp: 150}
	n := len(values)
	ints := make([]int32, n)

	maxExp := 0
	for _, v := range values {
		e := exponentOf(v)
		if e > maxExp && e < 255 {
			maxExp = e
		}
	}
	info.MaxExp = maxExp

	var shiftedOnes, shiftedZeros, shiftedBoth, falseZeros, negZeros int
	var ordata uint32

	for i, v := range values {
		sign, exp, mant := decompose(v)

		var value int32
		var shiftCount int
		switch {
		case exp == 255:
			info.Flags |= FlagExceptions
			value = exceptionMarker
			shiftCount = 0
		case exp != 0:
			shiftCount = maxExp - exp
			value = 0x800000 + mant
		default:
			if maxExp != 0 {
				shiftCount = maxExp - 1
			}
			value = mant
		}

		if shiftCount < 25 {
			value >>= uint(shiftCount)
		} else {
			value = 0
		}

		switch {
		case value == 0:
			if exp != 0 || mant != 0 {
				falseZeros++
			} else if sign {
				negZeros++
			}
		case shiftCount != 0:
			mask := (int32(1) << uint(shiftCount)) - 1
			switch mant & mask {
			case 0:
				shiftedZeros++
			case mask:
				shiftedOnes++
			default:
				shiftedBoth++
			}
		}

		ordata |= uint32(value)
		if sign {
			value = -value
		}
		ints[i] = value
	}

	switch {
	case shiftedBoth > 0:
		info.Flags |= FlagShiftSent
	case shiftedOnes > 0 && shiftedZeros == 0:
		info.Flags |= FlagShiftOnes
	case shiftedOnes > 0 && shiftedZeros > 0:
		info.Flags |= FlagShiftSame
	case ordata != 0 && ordata&1 == 0:
		for ordata&1 == 0 {
			info.Shift++
			ordata >>= 1
		}
		for i := range ints {
			ints[i] >>= int32(info.Shift)
		}
	}

	if falseZeros > 0 || negZeros > 0 {
		info.Flags |= FlagZerosSent
	}
	if negZeros > 0 {
		info.Flags |= FlagNegZeros
	}

	return info, ints
}

func exponentOf(v float32) int {
	return int((math.Float32bits(v) >> 23) & 0xFF)
}

func decompose(v float32) (sign bool, exp int, mant int32) {
	bits := math.Float32bits(v)
	return bits>>31 != 0, int((bits >> 23) & 0xFF), int32(bits & 0x7FFFFF)
}
