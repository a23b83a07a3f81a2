package entropy

import (
	"math/bits"

	"github.com/mewkiz/wavpack/internal/bitstream"
)

// encodeTruncatedBinary writes offset (0 <= offset < width) using the
// minimum-redundancy binary code for a width-symbol alphabet: the
// short (k-bit) codewords cover the first u = 2^(k+1)-width values,
// the rest use k+1 bits. This is the "plain binary refinement" spec
// §4.6 step 2 calls for, sized exactly to each band instead of always
// rounding up to a whole bit.
func encodeTruncatedBinary(w *bitstream.Writer, offset uint32, width int32) error {
	if width <= 1 {
		return nil
	}
	k := bits.Len32(uint32(width)) - 1
	u := (uint32(1) << uint(k+1)) - uint32(width)
	if offset < u {
		return w.PutBits(uint64(offset), uint(k))
	}
	return w.PutBits(uint64(offset+u), uint(k+1))
}

func decodeTruncatedBinary(r *bitstream.Reader, width int32) (uint32, error) {
	if width <= 1 {
		return 0, nil
	}
	k := bits.Len32(uint32(width)) - 1
	u := (uint32(1) << uint(k+1)) - uint32(width)
	prefix, err := r.GetBits(uint(k))
	if err != nil {
		return 0, err
	}
	if uint32(prefix) < u {
		return uint32(prefix), nil
	}
	extra, err := r.GetBits(1)
	if err != nil {
		return 0, err
	}
	v := uint32(prefix)<<1 | uint32(extra)
	return v - u, nil
}

// encodeEscape writes n (>= 0) as an Elias-gamma code: the bit length
// of n+1 in unary (as leading zeros terminated by a 1), followed by
// the low bits of n+1. This is the "follow-on Rice/Elias code" spec
// §4.6 switches to once a residual exceeds all three median bands.
func encodeEscape(w *bitstream.Writer, n uint32) error {
	v := n + 1
	nbits := bits.Len32(v)
	for i := 0; i < nbits-1; i++ {
		if err := w.PutBit(0); err != nil {
			return err
		}
	}
	return w.PutBits(uint64(v), uint(nbits))
}

func decodeEscape(r *bitstream.Reader) (uint32, error) {
	var zeros uint
	for {
		bit, err := r.GetBit()
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			break
		}
		zeros++
	}
	rest, err := r.GetBits(zeros)
	if err != nil {
		return 0, err
	}
	v := (uint64(1) << zeros) | rest
	return uint32(v - 1), nil
}
