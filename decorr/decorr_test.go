package decorr

import (
	"testing"

	"github.com/mewkiz/wavpack"
)

func TestWeightWireRoundTrip(t *testing.T) {
	for b := -128; b <= 127; b++ {
		w := RestoreWeight(int8(b))
		if got := StoreWeight(w); got != int8(b) {
			t.Fatalf("StoreWeight(RestoreWeight(%d)) = %d, want %d", b, got, b)
		}
	}
}

func TestApplyWeightZeroWeightIsZero(t *testing.T) {
	for _, s := range []int32{0, 1, -1, 1 << 20, -(1 << 20)} {
		if got := ApplyWeight(0, s); got != 0 {
			t.Fatalf("ApplyWeight(0, %d) = %d, want 0", s, got)
		}
	}
}

func TestLog2PackRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2, 1000, -1000, 1 << 20, -(1 << 20), 1<<30 - 1} {
		packed := Log2Pack(v)
		back := Exp2Unpack(packed)
		if repacked := Log2Pack(back); repacked != packed {
			t.Fatalf("Log2Pack not stable for %d: %d != %d", v, repacked, packed)
		}
	}
}

func TestJointStereoInvolution(t *testing.T) {
	left := []int32{10, -5, 1000, -1000, 0}
	right := []int32{3, 7, -999, 1000, 0}
	origL := append([]int32(nil), left...)
	origR := append([]int32(nil), right...)

	JointStereo(left, right)
	InverseJointStereo(left, right)

	for i := range left {
		if left[i] != origL[i] || right[i] != origR[i] {
			t.Fatalf("joint stereo not invertible at %d: got (%d,%d), want (%d,%d)", i, left[i], right[i], origL[i], origR[i])
		}
	}
}

func TestForwardInverseMonoRoundTrip(t *testing.T) {
	samples := make([]int32, 500)
	for i := range samples {
		samples[i] = int32(i) - 250
	}
	orig := append([]int32(nil), samples...)

	passes := NewPasses(wavpack.QualityHigh, true, false)
	ForwardMono(passes, samples)

	decPasses := NewPasses(wavpack.QualityHigh, true, false)
	InverseMono(decPasses, samples)

	for i := range samples {
		if samples[i] != orig[i] {
			t.Fatalf("mono round trip mismatch at %d: got %d, want %d", i, samples[i], orig[i])
		}
	}
}

func TestForwardInverseStereoRoundTrip(t *testing.T) {
	n := 500
	left := make([]int32, n)
	right := make([]int32, n)
	for i := 0; i < n; i++ {
		left[i] = int32(i%97) - 48
		right[i] = int32((i*3)%89) - 44
	}
	origL := append([]int32(nil), left...)
	origR := append([]int32(nil), right...)

	passes := NewPasses(wavpack.QualityVeryHigh, false, true)
	ForwardStereo(passes, left, right)

	decPasses := NewPasses(wavpack.QualityVeryHigh, false, true)
	InverseStereo(decPasses, left, right)

	for i := 0; i < n; i++ {
		if left[i] != origL[i] || right[i] != origR[i] {
			t.Fatalf("stereo round trip mismatch at %d: got (%d,%d), want (%d,%d)", i, left[i], right[i], origL[i], origR[i])
		}
	}
}

func TestNewPassesMonoHasNoNegativeTerms(t *testing.T) {
	for _, q := range []wavpack.Quality{wavpack.QualityFast, wavpack.QualityNormal, wavpack.QualityHigh, wavpack.QualityVeryHigh} {
		for _, p := range NewPasses(q, true, false) {
			if p.Term < 0 {
				t.Fatalf("mono preset %v produced negative term %d", q, p.Term)
			}
		}
	}
}
