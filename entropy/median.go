// Package entropy implements the adaptive unary+binary residual coder
// of spec §4.6: three running medians per channel select a band for
// each residual magnitude, a truncated-binary refinement narrows it
// within the band, and a sign bit finishes the code. Hybrid mode adds
// hard-limited quantization (§4.6's error_limit) and dynamic noise
// shaping (shaping_acc/shaping_delta) as pre/post filters around the
// same core.
//
// The reference median/word-encoding tables live in words.c, which is
// not part of the provided original_source/ subset (see DESIGN.md):
// this package implements spec §4.6's textual algorithm directly
// rather than porting a missing reference, using round-trip
// invertibility (encode then decode recovers the original residual
// exactly) as its correctness criterion in place of reference
// bit-for-bit comparison.
package entropy

import "math/bits"

const numMedians = 3

// divisor is the per-median update denominator from spec §4.6: 128 for
// m0, 64 for m1, 32 for m2.
var divisor = [numMedians]int32{128, 64, 32}

// Medians holds one channel's three running median counters.
type Medians struct {
	m [numMedians]int32
}

// nextPow2 returns the smallest power of two >= v, or 1 if v <= 0.
func nextPow2(v int32) int32 {
	if v <= 1 {
		return 1
	}
	return int32(1) << uint(bits.Len32(uint32(v-1)))
}

// update applies spec §4.6 step 4 to median level k: the median moves
// toward x by a step proportional to its own magnitude, and is clamped
// to stay non-negative.
func (md *Medians) update(k int, x int32) {
	step := (nextPow2(md.m[k]) * 5) / divisor[k]
	if step == 0 {
		step = 1
	}
	if x >= md.m[k] {
		md.m[k] += step
	} else {
		md.m[k] -= step
		if md.m[k] < 0 {
			md.m[k] = 0
		}
	}
}

// band returns the level (0..2) whose range contains mag, or 3 if mag
// is at or beyond the end of the third band (the escape level, coded
// with a follow-on code instead of truncated binary).
//
// Bands are contiguous: level 0 covers [0, m0), level 1 covers
// [m0, m0+m1), level 2 covers [m0+m1, m0+m1+m2).
func (md *Medians) band(mag int32) (level int, start, width int32) {
	lo := int32(0)
	for k := 0; k < numMedians; k++ {
		w := md.m[k]
		if w <= 0 {
			w = 1
		}
		if mag < lo+w {
			return k, lo, w
		}
		lo += w
	}
	return numMedians, lo, 0
}

// boundsFor returns the same (start, width) band() would for a given
// level, without needing a magnitude to test — used by the decoder,
// which learns the level from the unary prefix before it knows mag.
// level == numMedians asks for the escape band's start (its width is
// unbounded, reported as 0).
func (md *Medians) boundsFor(level int) (start, width int32) {
	lo := int32(0)
	for k := 0; k < numMedians && k < level; k++ {
		w := md.m[k]
		if w <= 0 {
			w = 1
		}
		lo += w
	}
	if level >= numMedians {
		return lo, 0
	}
	w := md.m[level]
	if w <= 0 {
		w = 1
	}
	return lo, w
}
