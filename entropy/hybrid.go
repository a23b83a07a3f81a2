package entropy

import "github.com/mewkiz/wavpack/decorr"

// Quantize divides a residual by the hybrid step size derived from
// errorLimit (spec §4.6: "divides by (error_limit>>4)+1 before
// entropy coding"). It returns the quantized value to entropy-code and
// the correction (the part a wvc correction stream would carry to
// make the result lossless again).
func Quantize(residual, errorLimit int32) (quantized, correction int32) {
	step := (errorLimit >> 4) + 1
	quantized = residual / step
	correction = residual - quantized*step
	return quantized, correction
}

// Dequantize reverses Quantize given the same errorLimit used to
// produce quantized, optionally folding in a correction value read
// from a wvc stream to recover the residual exactly.
func Dequantize(quantized, correction, errorLimit int32) int32 {
	step := (errorLimit >> 4) + 1
	return quantized*step + correction
}

// SlowLevel is the decaying average of recent residual magnitudes that
// drives error_limit (spec §4.6: "the encoder computes an allowed
// error magnitude error_limit from a target bitrate per sample"). The
// exact bitrate-control formula lives in words.c, which is not part of
// the provided original_source/ subset; this tracks the magnitude with
// a shift-based exponential moving average in the same style as the
// reference's shaping_acc/slow_level accumulators elsewhere in the
// codebase, rather than reproducing an unavailable reference formula.
type SlowLevel struct {
	level int32
}

// Observe folds one residual's magnitude into the running average.
func (s *SlowLevel) Observe(residual int32) {
	mag := residual
	if mag < 0 {
		mag = -mag
	}
	s.level += mag - (s.level >> 8)
}

// ErrorLimit derives error_limit for the next sample from the current
// average and a target bits-per-sample budget: a tighter budget (more
// bits available) yields a smaller allowed error.
func (s *SlowLevel) ErrorLimit(bitsPerSample uint) int32 {
	avg := s.level >> 8
	limit := avg >> bitsPerSample
	if limit < 0 {
		limit = 0
	}
	return limit
}

// ShapingState is the per-channel noise-shaping filter of spec §4.6:
// an accumulator driven by a fixed per-block delta, applied as a
// feedback correction derived from the previous sample's quantization
// error. Grounded on original_source/src/pack.c's hybrid mono/stereo
// loops (the HYBRID_SHAPE block): `shaping_weight = (shaping_acc +=
// shaping_delta) >> 16`, `temp = -apply_weight(shaping_weight,
// lastError)`, with the NEW_SHAPING branch nudging temp by one unit to
// avoid the degenerate case where it would otherwise exactly cancel
// the previous error.
//
// The reference interleaves this per-sample with decorrelation itself
// (both operating on the same sample loop); this package's decorr
// operates on whole buffers, so here the filter runs over the
// decorrelation residual stream immediately before quantization rather
// than over the raw samples immediately before prediction. This keeps
// the two required properties from spec §4.6 (shaping precedes
// quantization; the quantization error feeds back into the next
// sample's shaping) without threading per-sample state across package
// boundaries.
type ShapingState struct {
	Acc       int32
	Delta     int32
	lastError int32
}

// Shape applies one step of the feedback filter to value (a
// decorrelation residual, about to be quantized) and returns the
// shaped value.
func (s *ShapingState) Shape(value int32, newShaping bool) int32 {
	s.Acc += s.Delta
	weight := s.Acc >> 16
	temp := -decorr.ApplyWeight(weight, s.lastError)

	if newShaping && weight < 0 && temp != 0 {
		if temp == s.lastError {
			if temp < 0 {
				temp++
			} else {
				temp--
			}
		}
		s.lastError = -value
		value += temp
	} else {
		value += temp
		s.lastError = -value
	}
	return value
}

// Unshape is Shape's inverse: given the shaped value a decoder just
// recovered (losslessly, via a correction stream, or lossily via plain
// dequantization) it reproduces the same Acc/weight/temp the encoder
// computed from state alone (none of it depends on the unknown
// residual) and subtracts temp back out, replicating Shape's branch
// exactly so lastError ends up in the same state on both sides.
func (s *ShapingState) Unshape(shaped int32, newShaping bool) int32 {
	s.Acc += s.Delta
	weight := s.Acc >> 16
	temp := -decorr.ApplyWeight(weight, s.lastError)

	if newShaping && weight < 0 && temp != 0 {
		if temp == s.lastError {
			if temp < 0 {
				temp++
			} else {
				temp--
			}
		}
		value := shaped - temp
		s.lastError = -value
		return value
	}
	value := shaped - temp
	s.lastError = -shaped
	return value
}

// ObserveQuantizationError folds the lossy (quantized) reconstruction
// of a just-shaped residual back into the filter, per spec §4.6's
// "post-add the quantization error back into the shaping accumulator".
// Shape left lastError holding the negated shaped value, or on its
// NEW_SHAPING nudge branch the negated value before temp was added;
// adding reconstructed turns it into reconstructed minus that value.
func (s *ShapingState) ObserveQuantizationError(reconstructed int32) {
	s.lastError += reconstructed
}
