package wavpack

// Hard limits from spec §6.
const (
	// MinStreamVers is the lowest stream format version the core
	// accepts; versions below this are the legacy v3 format and are
	// rejected with an InvalidHeader error.
	MinStreamVers = 0x402
	// MaxStreamVers is the highest stream format version this core
	// understands.
	MaxStreamVers = 0x410

	// MaxTerms is the maximum number of decorrelation passes per block.
	MaxTerms = 16

	// MaxWavpackSamples is the largest composite sample count a stream
	// may declare (2^40 - 257).
	MaxWavpackSamples = (1 << 40) - 257

	// MaxWrapperBytes bounds the append-only wrapper-byte buffer a
	// Context accumulates via AddWrapper.
	MaxWrapperBytes = 16 * 1024 * 1024

	// MaxHistoryBits bounds the DSD fast-mode history index width.
	MaxHistoryBits = 5
	// MaxHistoryBins is 1<<MaxHistoryBits.
	MaxHistoryBins = 1 << MaxHistoryBits

	// resyncWindow is the maximum number of bytes ReadNextHeader scans
	// forward before giving up (spec §4.4, §8 invariant 7).
	resyncWindow = 1 << 20
)

// MaxChannelsPerStream is the channel count of a single WavPack
// stream (mono or stereo).
const MaxChannelsPerStream = 2

// MaxStreams bounds configured channels: configured channels must be
// <= 2*MaxStreams (spec §4.9). The core itself does not hard-code a
// multichannel fan-out limit beyond what a caller configures; this is
// the ceiling used by SetConfiguration's validation.
const MaxStreams = 256
