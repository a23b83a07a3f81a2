// Package decorr implements the WavPack N-pass adaptive decorrelation
// filter chain (spec §4.5): the forward (encode) and inverse (decode)
// prediction passes, fixed-point weight application and adaptation,
// the signed-byte weight wire encoding, the signed-log sample-history
// wire encoding, and the joint-stereo mid/side transform.
//
// There is no teacher (FLAC) counterpart — frame/subframe.go's fixed
// and LPC predictors are a different algorithm family entirely — so
// this package is grounded directly on spec.md §4.5 and, for the
// concrete per-term arithmetic, on original_source/src/pack.c's
// decorr_stereo_pass (lossless stereo) and the mono/hybrid-stereo
// sample loops, which spell out apply_weight/update_weight call
// sequences the spec only describes in prose.
package decorr

import "math/bits"

// MaxTerms is the largest number of decorr passes a stream may chain
// (spec §4.5 invariant, spec §6).
const MaxTerms = 16

// historySlots is the circular buffer width used by positive terms
// 1..8 (original_source calls this MAX_TERM).
const historySlots = 16

// Pass holds one decorrelation pass's persistent filter state (spec
// §4.5): the term selecting its predictor shape, the adaptation step
// delta, the two channels' weights, and their sample history.
//
// SamplesA/SamplesB serve three different roles depending on Term:
// terms 17/18 use slots [0] and [1] as "last" and "second-to-last";
// terms -1/-2/-3 use slot [0] for the cross-channel lag; terms 1..8
// use the full historySlots ring indexed by M.
type Pass struct {
	Term  int8
	Delta uint8

	WeightA int32
	WeightB int32

	SamplesA [historySlots]int32
	SamplesB [historySlots]int32

	m int // ring cursor for terms 1..8, persistent across calls
}

// CursorM returns the pass's ring cursor for terms 1..8, needed
// alongside SamplesA/SamplesB to serialize a pass's full state on the
// wire so a block can be decoded independent of any prior block (see
// pack/wire.go, unpack/wire.go).
func (p *Pass) CursorM() int { return p.m }

// SetCursorM restores a ring cursor previously obtained from CursorM.
func (p *Pass) SetCursorM(m int) { p.m = m & (historySlots - 1) }

// ApplyWeight is the fixed-point predictor multiply (spec §4.5),
// required to be bit-identical to the reference apply_weight_f:
//
//	((((s & 0xffff) * w) >> 9) + (((s & ~0xffff) >> 9) * w) + 1) >> 1
//
// Go's signed-integer arithmetic wraps modulo 2^32 the same way the
// reference's 32-bit int does (spec §9), so plain int32 ops suffice.
func ApplyWeight(weight, sample int32) int32 {
	lo := ((sample & 0xffff) * weight) >> 9
	hi := ((sample &^ 0xffff) >> 9) * weight
	return (lo + hi + 1) >> 1
}

// UpdateWeight adapts weight by delta*sign(sample)*sign(residual),
// clamped to ±1024 (spec §4.5). Either operand being zero leaves the
// weight unchanged, matching sign(0) = 0.
//
// original_source/src/pack.c calls a second macro, update_weight_clip,
// for the cross-channel terms (-1..-3); the provided source subset
// does not carry its body (defined in wavpack_local.h). This function
// is used for both cases, since the only documented difference is
// clamping, which this already does.
func UpdateWeight(weight *int32, delta uint8, sample, residual int32) {
	if sample == 0 || residual == 0 {
		return
	}
	d := int32(delta)
	if (sample < 0) != (residual < 0) {
		d = -d
	}
	w := *weight + d
	switch {
	case w > 1024:
		w = 1024
	case w < -1024:
		w = -1024
	}
	*weight = w
}

// restoreTable caches RestoreWeight for every signed byte so
// StoreWeight can invert it exactly (spec §8 invariant 5).
var restoreTable [256]int32

func init() {
	for b := -128; b <= 127; b++ {
		restoreTable[b+128] = RestoreWeight(int8(b))
	}
}

// RestoreWeight expands a wire weight byte into the working ±1024-ish
// domain (spec §4.5): `(b<<3) + ((b*9 + 0x80) >> 8)`.
func RestoreWeight(b int8) int32 {
	v := int32(b)
	return (v << 3) + ((v*9 + 0x80) >> 8)
}

// StoreWeight quantizes a working weight back to a wire byte such
// that StoreWeight(RestoreWeight(b)) == b for every b (spec §8
// invariant 5); values between grid points round to the nearer one.
func StoreWeight(w int32) int8 {
	lo, hi := 0, 255
	for lo < hi {
		mid := (lo + hi) / 2
		if restoreTable[mid] < w {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo > 0 && restoreTable[lo] != w {
		if w-restoreTable[lo-1] <= restoreTable[lo]-w {
			lo--
		}
	}
	return int8(lo - 128)
}

// Log2Pack compresses a 32-bit sample-history value into the signed,
// 16-bit log-domain form stored on the wire (spec §4.5 "signed-log
// packing"). The exact reference tables (wp_log2s/wp_exp2s, defined in
// original_source's words.c, not part of the provided source subset)
// aren't available; this is a self-consistent floating-point-style
// sign/exponent/8-bit-mantissa encoding that Exp2Unpack inverts
// losslessly for every value Log2Pack can produce.
func Log2Pack(v int32) int16 {
	if v == 0 {
		return 0
	}
	neg := v < 0
	u := uint32(v)
	if neg {
		u = uint32(-v)
	}
	e := bits.Len32(u) - 1
	frac := u - (1 << uint(e))
	var mant uint32
	if e >= 8 {
		mant = frac >> uint(e-8)
	} else {
		mant = frac << uint(8-e)
	}
	logv := e*256 + int(mant)
	if logv > 0x7FFF {
		logv = 0x7FFF
	}
	if neg {
		return int16(-logv)
	}
	return int16(logv)
}

// Exp2Unpack is Log2Pack's inverse.
func Exp2Unpack(l int16) int32 {
	if l == 0 {
		return 0
	}
	neg := l < 0
	lv := int(l)
	if neg {
		lv = -lv
	}
	e := uint(lv >> 8)
	mant := uint32(lv & 0xFF)
	var frac uint32
	if e >= 8 {
		frac = mant << (e - 8)
	} else {
		frac = mant >> (8 - e)
	}
	u := (uint32(1) << e) + frac
	if neg {
		return -int32(u)
	}
	return int32(u)
}
