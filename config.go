package wavpack

// Quality selects one of the four decorrelation-pass presets used by
// the packer when Config.DecorrTerms/DecorrDeltas are left nil (spec
// §4.5).
type Quality int

// Quality presets (spec §4.5).
const (
	QualityFast Quality = iota
	QualityNormal
	QualityHigh
	QualityVeryHigh
)

// Config configures a Packer (spec §4.9 set_configuration). It is
// validated once by pack.SetConfiguration.
type Config struct {
	// NumChannels is the number of interleaved PCM channels the caller
	// will feed via PackSamples. Must be <= 2*MaxStreams.
	NumChannels int
	// ChannelMask is the Microsoft WAVEFORMATEX channel mask used to
	// populate CHANNEL_INFO. 0 lets the packer derive a default mask
	// from NumChannels.
	ChannelMask uint32
	// SampleRate in Hz. If it is not one of the 15 canned SampleRates
	// entries, a SAMPLE_RATE metadata sub-block is emitted instead.
	SampleRate uint32
	// BitsPerSample is the significant bit width of each sample, 1..32.
	BitsPerSample int
	// BytesPerSample is the on-wire container width, 1..4. Must be
	// large enough to hold BitsPerSample bits.
	BytesPerSample int

	// Quality selects decorrelation-pass presets when DecorrTerms is
	// nil.
	Quality Quality
	// DecorrTerms/DecorrDeltas override the preset with an explicit
	// pass vector (len <= MaxTerms, terms/deltas 1:1).
	DecorrTerms  []int8
	DecorrDeltas []uint8

	// Hybrid enables lossy hybrid mode (HYBRID_FLAG).
	Hybrid bool
	// HybridBitrate is the target bits-per-sample (or kbps, if
	// HybridBitrateIsKbps is set) used to derive entropy.ErrorLimit.
	HybridBitrate float64
	// HybridBitrateIsKbps selects HYBRID_BITRATE semantics.
	HybridBitrateIsKbps bool
	// HybridBalance enables HYBRID_BALANCE per-channel bitrate split.
	HybridBalance bool
	// HybridShaping enables noise shaping (HYBRID_SHAPE).
	HybridShaping bool
	// NewShaping selects the refined IIR shaping formulation
	// (NEW_SHAPING) rather than the legacy rule. Only meaningful when
	// HybridShaping is set.
	NewShaping bool

	// FloatData marks the incoming samples as IEEE-754 float32 values
	// that must round-trip bit-exactly via the wvx bitstream.
	FloatData bool

	// JointStereo enables the L/R -> (L-R, R+((L-R)>>1)) transform for
	// 2-channel streams.
	JointStereo bool

	// ChecksumBlocks emits a BLOCK_CHECKSUM sub-block and sets
	// HAS_CHECKSUM on every block.
	ChecksumBlocks bool
}

// Validate checks the combination-of-fields rules spec §4.9 lists for
// set_configuration, returning a *Error{Kind: ConfigError} describing
// the first violation found.
func (c *Config) Validate() error {
	switch {
	case c.NumChannels <= 0 || c.NumChannels > 2*MaxStreams:
		return Errf(ConfigError, "num_channels %d out of range", c.NumChannels)
	case c.BitsPerSample < 1 || c.BitsPerSample > 32:
		return Errf(ConfigError, "bits_per_sample %d out of range 1..32", c.BitsPerSample)
	case c.BytesPerSample < 1 || c.BytesPerSample > 4:
		return Errf(ConfigError, "bytes_per_sample %d out of range 1..4", c.BytesPerSample)
	case c.BitsPerSample > c.BytesPerSample*8:
		return Errf(ConfigError, "bits_per_sample %d does not fit in %d bytes_per_sample", c.BitsPerSample, c.BytesPerSample)
	case c.SampleRate == 0:
		return Errf(ConfigError, "sample_rate must be nonzero")
	case len(c.DecorrTerms) != len(c.DecorrDeltas):
		return Errf(ConfigError, "decorr_terms and decorr_deltas length mismatch")
	case len(c.DecorrTerms) > MaxTerms:
		return Errf(ConfigError, "decorr pass count %d exceeds MaxTerms", len(c.DecorrTerms))
	case c.HybridBitrate < 0:
		return Errf(ConfigError, "hybrid_bitrate must be non-negative")
	}
	return nil
}
