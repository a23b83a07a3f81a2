package floatext

import (
	"math"

	"github.com/mewkiz/wavpack/internal/bitstream"
)

// EncodeFloatResidue writes original's wvx payload: whatever
// scan_float_data's integer conversion couldn't represent (shifted-out
// mantissa bits, the true zero/negative-zero distinction, exception
// payloads). Grounded on send_float_data; called once per sample in
// the same order ScanFloats saw them.
func EncodeFloatResidue(w *bitstream.Writer, info *FloatInfo, original float32) error {
	sign, exp, mant := decompose(original)
	maxExp := info.MaxExp

	if exp == 255 {
		if mant != 0 {
			if err := w.PutBit(1); err != nil {
				return err
			}
			return w.PutBits(uint64(mant), 23)
		}
		return w.PutBit(0)
	}

	var value int32
	var shiftCount int
	if exp != 0 {
		shiftCount = maxExp - exp
		value = 0x800000 + mant
	} else {
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
		if info.Flags&FlagZerosSent == 0 {
			return nil
		}
		if exp != 0 || mant != 0 {
			if err := w.PutBit(1); err != nil {
				return err
			}
			if err := w.PutBits(uint64(mant), 23); err != nil {
				return err
			}
			if maxExp >= 25 {
				if err := w.PutBits(uint64(exp), 8); err != nil {
					return err
				}
			}
			return w.PutSigned(signedZero(sign))
		}
		if err := w.PutBit(0); err != nil {
			return err
		}
		if info.Flags&FlagNegZeros != 0 {
			return w.PutSigned(signedZero(sign))
		}
		return nil

	case shiftCount != 0:
		mask := (int32(1) << uint(shiftCount)) - 1
		switch {
		case info.Flags&FlagShiftSent != 0:
			return w.PutBits(uint64(mant&mask), uint(shiftCount))
		case info.Flags&FlagShiftSame != 0:
			return w.PutBit(uint64(mant & 1))
		}
	}
	return nil
}

// signedZero turns a sign bit into the ±1 PutSigned expects a
// nonzero magnitude for; the sign is all that's meaningful here.
func signedZero(sign bool) int64 {
	if sign {
		return -1
	}
	return 1
}

// DecodeFloatReconstruct recovers the original float32 for one sample
// given its final (lossy or lossless) integer reconstruction from the
// decorrelated stream and the wvx bits EncodeFloatResidue wrote for
// it. Since the provided corpus has no unpack_floats.c, this
// normalizes sample by left-shifting until its top set bit reaches
// the implicit-one position (or the running exponent hits zero, the
// denormal case), recovering exactly the shift_count ScanFloats/
// EncodeFloatResidue derived from max_exp and the sample's own
// exponent — the inverse of their `value >>= shift_count` step.
func DecodeFloatReconstruct(r *bitstream.Reader, info *FloatInfo, sample int32) (float32, error) {
	sign := sample < 0
	value := sample
	if sign {
		value = -value
	}

	if value == exceptionMarker {
		bit, err := r.GetBit()
		if err != nil {
			return 0, err
		}
		var mant uint64
		if bit == 1 {
			mant, err = r.GetBits(23)
			if err != nil {
				return 0, err
			}
		}
		return assemble(sign, 255, uint32(mant)), nil
	}

	if value == 0 {
		if info.Flags&FlagZerosSent == 0 {
			return assemble(sign, 0, 0), nil
		}
		bit, err := r.GetBit()
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			mant, err := r.GetBits(23)
			if err != nil {
				return 0, err
			}
			exp := uint32(0)
			if info.MaxExp >= 25 {
				e, err := r.GetBits(8)
				if err != nil {
					return 0, err
				}
				exp = uint32(e)
			} else {
				exp = 1
			}
			s, err := r.GetSigned(1)
			if err != nil {
				return 0, err
			}
			return assemble(s < 0, exp, uint32(mant)), nil
		}
		negSign := false
		if info.Flags&FlagNegZeros != 0 {
			s, err := r.GetSigned(1)
			if err != nil {
				return 0, err
			}
			negSign = s < 0
		}
		return assemble(negSign, 0, 0), nil
	}

	v := uint32(value)
	exp := info.MaxExp
	for exp > 0 && v&0x800000 == 0 {
		v <<= 1
		exp--
	}
	shiftCount := info.MaxExp - exp

	if shiftCount > 0 {
		switch {
		case info.Flags&FlagShiftSent != 0:
			bits, err := r.GetBits(uint(shiftCount))
			if err != nil {
				return 0, err
			}
			v |= uint32(bits)
		case info.Flags&FlagShiftSame != 0:
			bit, err := r.GetBit()
			if err != nil {
				return 0, err
			}
			v |= uint32(bit)
		case info.Flags&FlagShiftOnes != 0:
			v |= (uint32(1) << uint(shiftCount)) - 1
		}
	}

	return assemble(sign, uint32(exp), v&0x7FFFFF), nil
}

func assemble(sign bool, exp uint32, mant uint32) float32 {
	bits := (exp << 23) | (mant & 0x7FFFFF)
	if sign {
		bits |= 1 << 31
	}
	return math.Float32frombits(bits)
}
