package decorr

// ForwardMono runs samples through passes in pass order (spec §4.5
// "Forward pass"), replacing each value in place with its residual.
// Mono streams never carry a negative (cross-channel) term (spec §4.5
// invariant), so only the generic 1..8 and special 17/18 shapes apply.
//
// Grounded on original_source/src/pack.c's lossless-mono sample loop
// (the "handle lossless mono mode" block), generalized from one fixed
// buffer-wide m to a ring cursor carried in Pass so state survives
// across separate calls (block boundaries) without the reference's
// per-call realignment step — see DESIGN.md.
func ForwardMono(passes []*Pass, samples []int32) {
	for i, code := range samples {
		for _, dpp := range passes {
			var sam int32
			switch {
			case dpp.Term == 17:
				sam = 2*dpp.SamplesA[0] - dpp.SamplesA[1]
				dpp.SamplesA[1] = dpp.SamplesA[0]
				dpp.SamplesA[0] = code
			case dpp.Term == 18:
				sam = dpp.SamplesA[0] + ((dpp.SamplesA[0] - dpp.SamplesA[1]) >> 1)
				dpp.SamplesA[1] = dpp.SamplesA[0]
				dpp.SamplesA[0] = code
			default:
				sam = dpp.SamplesA[dpp.m]
				dpp.SamplesA[(dpp.m+int(dpp.Term))&(historySlots-1)] = code
			}
			code -= ApplyWeight(dpp.WeightA, sam)
			UpdateWeight(&dpp.WeightA, dpp.Delta, sam, code)
		}
		for _, dpp := range passes {
			dpp.m = (dpp.m + 1) & (historySlots - 1)
		}
		samples[i] = code
	}
}

// InverseMono is ForwardMono's inverse: passes run last-to-first (spec
// §4.5 "Inverse pass"), each recovering its input from the residual it
// produced during encoding.
func InverseMono(passes []*Pass, residuals []int32) {
	for i, code := range residuals {
		for p := len(passes) - 1; p >= 0; p-- {
			dpp := passes[p]
			var sam int32
			switch {
			case dpp.Term == 17:
				sam = 2*dpp.SamplesA[0] - dpp.SamplesA[1]
			case dpp.Term == 18:
				sam = dpp.SamplesA[0] + ((dpp.SamplesA[0] - dpp.SamplesA[1]) >> 1)
			default:
				sam = dpp.SamplesA[dpp.m]
			}
			residual := code
			code += ApplyWeight(dpp.WeightA, sam)
			UpdateWeight(&dpp.WeightA, dpp.Delta, sam, residual)
			switch {
			case dpp.Term == 17 || dpp.Term == 18:
				dpp.SamplesA[1] = dpp.SamplesA[0]
				dpp.SamplesA[0] = code
			default:
				dpp.SamplesA[(dpp.m+int(dpp.Term))&(historySlots-1)] = code
			}
		}
		for _, dpp := range passes {
			dpp.m = (dpp.m + 1) & (historySlots - 1)
		}
		residuals[i] = code
	}
}
