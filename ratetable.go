package wavpack

// SampleRates is the 15-entry sample-rate table indexed by a block's
// SampleRateIndex (spec §6). Index 0xF means "read SAMPLE_RATE
// metadata instead".
var SampleRates = [15]uint32{
	6000, 8000, 9600, 11025, 12000,
	16000, 22050, 24000, 32000, 44100,
	48000, 64000, 88200, 96000, 192000,
}

// SampleRateIndexFor returns the table index for rate, and ok=false if
// rate isn't one of the 15 canned values (the caller must then emit an
// explicit SAMPLE_RATE metadata sub-block and use index 0xF).
func SampleRateIndexFor(rate uint32) (idx uint, ok bool) {
	for i, r := range SampleRates {
		if r == rate {
			return uint(i), true
		}
	}
	return 0xF, false
}
