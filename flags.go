package wavpack

// Flags is the 32-bit per-block parameter field at header offset 24
// (spec §6).
type Flags uint32

// Flags bitfield layout (spec §6).
const (
	BytesStoredMask Flags = 0x3 // bits 0..1: (bytes_per_sample-1)

	MonoFlag      Flags = 1 << 2
	HybridFlag    Flags = 1 << 3
	JointStereo   Flags = 1 << 4
	CrossDecorr   Flags = 1 << 5
	HybridShape   Flags = 1 << 6
	FloatData     Flags = 1 << 7
	Int32Data     Flags = 1 << 8
	HybridBitrate Flags = 1 << 9
	HybridBalance Flags = 1 << 10
	InitialBlock  Flags = 1 << 11
	FinalBlock    Flags = 1 << 12

	ShiftMask Flags = 0x1F << 13 // bits 13..17
	MagMask   Flags = 0x1F << 18 // bits 18..22
	SrateMask Flags = 0xF << 23  // bits 23..26

	IgnoredFlags Flags = 1 << 27

	HasChecksum Flags = 1 << 28
	NewShaping  Flags = 1 << 29
	FalseStereo Flags = 1 << 30
	DSDFlag     Flags = 1 << 31
)

// BytesPerSample returns the per-sample byte count encoded in bits 0..1.
func (f Flags) BytesPerSample() int {
	return int(f&BytesStoredMask) + 1
}

// WithBytesPerSample returns f with BytesStoredMask set to encode n
// (1..4) bytes per sample.
func (f Flags) WithBytesPerSample(n int) Flags {
	return (f &^ BytesStoredMask) | Flags(n-1)&BytesStoredMask
}

// Shift returns the right-shift applied to decoded samples (0..31).
func (f Flags) Shift() uint {
	return uint((f & ShiftMask) >> 13)
}

// WithShift returns f with ShiftMask set to shift (0..31).
func (f Flags) WithShift(shift uint) Flags {
	return (f &^ ShiftMask) | (Flags(shift)<<13)&ShiftMask
}

// Magnitude returns the sample magnitude in bits, minus one, stored in
// bits 18..22.
func (f Flags) Magnitude() uint {
	return uint((f & MagMask) >> 18)
}

// WithMagnitude returns f with MagMask set to mag (0..31).
func (f Flags) WithMagnitude(mag uint) Flags {
	return (f &^ MagMask) | (Flags(mag)<<18)&MagMask
}

// SampleRateIndex returns the index into SampleRates, or 0xF if the
// rate must be read from a SAMPLE_RATE metadata sub-block.
func (f Flags) SampleRateIndex() uint {
	return uint((f & SrateMask) >> 23)
}

// WithSampleRateIndex returns f with SrateMask set to idx (0..15).
func (f Flags) WithSampleRateIndex(idx uint) Flags {
	return (f &^ SrateMask) | (Flags(idx)<<23)&SrateMask
}
