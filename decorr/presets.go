package decorr

import "github.com/mewkiz/wavpack"

// spec is one quality preset's (term, delta) vector, grounded
// verbatim on original_source/src/pack.c's fast_specs/default_specs/
// high_specs/very_high_specs tables (the only entry of each; the
// reference supports selecting among several per table via an index
// byte, but only defines one each).
type spec struct {
	delta int8
	terms []int8
}

var (
	fastSpec     = spec{delta: 2, terms: []int8{18, 17}}
	defaultSpec  = spec{delta: 2, terms: []int8{18, 18, 2, 17, 3}}
	highSpec     = spec{delta: 2, terms: []int8{18, 18, 18, -2, 2, 3, 5, -1, 17, 4}}
	veryHighSpec = spec{delta: 2, terms: []int8{18, 18, 2, 3, -2, 18, 2, 4, 7, 5, 3, 6, 8, -1, 18, 2}}
)

func presetFor(q wavpack.Quality) spec {
	switch q {
	case wavpack.QualityFast:
		return fastSpec
	case wavpack.QualityHigh:
		return highSpec
	case wavpack.QualityVeryHigh:
		return veryHighSpec
	default:
		return defaultSpec
	}
}

// NewPasses builds the Pass chain for a quality preset (spec §4.5:
// "the encoder chooses N and the (term,delta) vector from one of four
// presets"), replacing negative (cross-channel) terms as
// read_decorr_combined in original_source/src/decorr_utils.c does:
// mono streams replace every negative term with 1 (no cross-channel
// decorrelation possible); stereo streams without CROSS_DECORR replace
// them with -3 (still cross-channel, but the cheapest, always-legal
// shape) instead.
func NewPasses(q wavpack.Quality, mono, crossDecorr bool) []*Pass {
	s := presetFor(q)
	passes := make([]*Pass, len(s.terms))
	for i, t := range s.terms {
		if t < 0 {
			switch {
			case mono:
				t = 1
			case !crossDecorr:
				t = -3
			}
		}
		passes[i] = &Pass{Term: t, Delta: uint8(s.delta)}
	}
	return passes
}
