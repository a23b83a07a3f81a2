package decorr

// ForwardStereo runs an interleaved (left, right) pair of channels
// through passes in pass order, in place. Joint-stereo (spec §4.5's
// mid/side transform, see JointStereo) is applied by the caller before
// this, since it operates on the channel pair as a whole rather than
// per pass.
//
// The generic (1..8) and special (17/18) shapes are grounded on
// original_source/src/pack.c's decorr_stereo_pass (non-hybrid lossless
// stereo), generalized the same way as ForwardMono. The cross-channel
// shapes (-1, -2, -3) are grounded on that same function's negative-
// term cases, which it computes as one pass over the whole buffer;
// here they run per composite sample alongside every other pass,
// which spec §4.5 describes directly ("for each composite sample, in
// pass order") and which produces identical results since each pass's
// state only depends on its own history at the same time step.
func ForwardStereo(passes []*Pass, left, right []int32) {
	for i := range left {
		l, r := left[i], right[i]
		for _, dpp := range passes {
			switch {
			case dpp.Term == 17:
				samA := 2*dpp.SamplesA[0] - dpp.SamplesA[1]
				samB := 2*dpp.SamplesB[0] - dpp.SamplesB[1]
				dpp.SamplesA[1], dpp.SamplesA[0] = dpp.SamplesA[0], l
				dpp.SamplesB[1], dpp.SamplesB[0] = dpp.SamplesB[0], r
				l -= ApplyWeight(dpp.WeightA, samA)
				r -= ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, l)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, r)
			case dpp.Term == 18:
				samA := dpp.SamplesA[0] + ((dpp.SamplesA[0] - dpp.SamplesA[1]) >> 1)
				samB := dpp.SamplesB[0] + ((dpp.SamplesB[0] - dpp.SamplesB[1]) >> 1)
				dpp.SamplesA[1], dpp.SamplesA[0] = dpp.SamplesA[0], l
				dpp.SamplesB[1], dpp.SamplesB[0] = dpp.SamplesB[0], r
				l -= ApplyWeight(dpp.WeightA, samA)
				r -= ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, l)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, r)
			case dpp.Term > 0:
				samA := dpp.SamplesA[dpp.m]
				samB := dpp.SamplesB[dpp.m]
				k := (dpp.m + int(dpp.Term)) & (historySlots - 1)
				dpp.SamplesA[k] = l
				dpp.SamplesB[k] = r
				l -= ApplyWeight(dpp.WeightA, samA)
				r -= ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, l)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, r)
			case dpp.Term == -1:
				samA := dpp.SamplesA[0]
				lIn := l
				l -= ApplyWeight(dpp.WeightA, samA)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, l)
				samB := lIn
				rIn := r
				r -= ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, r)
				dpp.SamplesA[0] = rIn
			case dpp.Term == -2:
				samB := dpp.SamplesB[0]
				rIn := r
				r -= ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, r)
				samA := rIn
				lIn := l
				l -= ApplyWeight(dpp.WeightA, samA)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, l)
				dpp.SamplesB[0] = lIn
			case dpp.Term == -3:
				samA := dpp.SamplesA[0]
				samB := dpp.SamplesB[0]
				rIn, lIn := r, l
				dpp.SamplesA[0] = rIn
				r -= ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, r)
				dpp.SamplesB[0] = lIn
				l -= ApplyWeight(dpp.WeightA, samA)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, l)
			}
		}
		for _, dpp := range passes {
			dpp.m = (dpp.m + 1) & (historySlots - 1)
		}
		left[i], right[i] = l, r
	}
}

// InverseStereo is ForwardStereo's inverse.
func InverseStereo(passes []*Pass, left, right []int32) {
	for i := range left {
		l, r := left[i], right[i]
		for p := len(passes) - 1; p >= 0; p-- {
			dpp := passes[p]
			switch {
			case dpp.Term == 17:
				samA := 2*dpp.SamplesA[0] - dpp.SamplesA[1]
				samB := 2*dpp.SamplesB[0] - dpp.SamplesB[1]
				resL, resR := l, r
				l += ApplyWeight(dpp.WeightA, samA)
				r += ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, resL)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, resR)
				dpp.SamplesA[1], dpp.SamplesA[0] = dpp.SamplesA[0], l
				dpp.SamplesB[1], dpp.SamplesB[0] = dpp.SamplesB[0], r
			case dpp.Term == 18:
				samA := dpp.SamplesA[0] + ((dpp.SamplesA[0] - dpp.SamplesA[1]) >> 1)
				samB := dpp.SamplesB[0] + ((dpp.SamplesB[0] - dpp.SamplesB[1]) >> 1)
				resL, resR := l, r
				l += ApplyWeight(dpp.WeightA, samA)
				r += ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, resL)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, resR)
				dpp.SamplesA[1], dpp.SamplesA[0] = dpp.SamplesA[0], l
				dpp.SamplesB[1], dpp.SamplesB[0] = dpp.SamplesB[0], r
			case dpp.Term > 0:
				samA := dpp.SamplesA[dpp.m]
				samB := dpp.SamplesB[dpp.m]
				resL, resR := l, r
				l += ApplyWeight(dpp.WeightA, samA)
				r += ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, resL)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, resR)
				k := (dpp.m + int(dpp.Term)) & (historySlots - 1)
				dpp.SamplesA[k] = l
				dpp.SamplesB[k] = r
			case dpp.Term == -1:
				samA := dpp.SamplesA[0]
				resL := l
				l += ApplyWeight(dpp.WeightA, samA)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, resL)
				samB := l
				resR := r
				r += ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, resR)
				dpp.SamplesA[0] = r
			case dpp.Term == -2:
				samB := dpp.SamplesB[0]
				resR := r
				r += ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, resR)
				samA := r
				resL := l
				l += ApplyWeight(dpp.WeightA, samA)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, resL)
				dpp.SamplesB[0] = l
			case dpp.Term == -3:
				samA := dpp.SamplesA[0]
				samB := dpp.SamplesB[0]
				resR := r
				r += ApplyWeight(dpp.WeightB, samB)
				UpdateWeight(&dpp.WeightB, dpp.Delta, samB, resR)
				resL := l
				l += ApplyWeight(dpp.WeightA, samA)
				UpdateWeight(&dpp.WeightA, dpp.Delta, samA, resL)
				dpp.SamplesA[0] = r
				dpp.SamplesB[0] = l
			}
		}
		for _, dpp := range passes {
			dpp.m = (dpp.m + 1) & (historySlots - 1)
		}
		left[i], right[i] = l, r
	}
}
