package unpack

import (
	"math"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/block"
	"github.com/mewkiz/wavpack/decorr"
	"github.com/mewkiz/wavpack/entropy"
	"github.com/mewkiz/wavpack/floatext"
	"github.com/mewkiz/wavpack/internal/bitstream"
	"github.com/mewkiz/wavpack/internal/crc"
)

// blockState names the per-stream states of spec §4.10. Only
// stateSamplesAvailable is ever assigned (by decodeBlock and mute);
// the other states are declared but no code enters them, and a muted
// block is recorded in stream.muted rather than as stateMute.
type blockState int

const (
	stateStart blockState = iota
	stateHeaderRead
	statePayloadRead
	stateMetadataParsed
	stateWvcRead
	stateDecodeInit
	stateSamplesAvailable
	stateBlockDone
	stateEnd
	stateMute
)

// channelDecodeState is a channel's per-block decoded scratch state:
// the residual coder (restored from IDEntropyVars every block) and,
// in hybrid mode, the shaping filter (restored from IDShapingWeights).
type channelDecodeState struct {
	coder *entropy.Coder
	shape entropy.ShapingState
}

// stream is one WavPack stream's decode-side state. Unlike pack's
// stream, almost nothing here persists meaningfully across blocks on
// its own: every block rebuilds passes/coders/shape from that block's
// own metadata sub-blocks (see unpack/wire.go). SeekSample does not
// rely on this: it replays the stream from the first block.
type stream struct {
	mono        bool
	numChannels int

	state blockState
	muted bool

	header block.Header

	passes []*decorr.Pass
	ch     [2]*channelDecodeState

	floatInfo  [2]*floatext.FloatInfo
	int32Info  [2]*floatext.Int32Info
	hybrid     bool
	hybridShp  bool
	newShaping bool
	limitA     int32
	limitB     int32

	outA, outB []int32 // this block's reconstructed composite samples
	cursor     int     // read cursor into outA/outB for UnpackSamples

	lossyBlocks int
	crcErrors   int
}

func newDecodeStream(mono bool) *stream {
	s := &stream{mono: mono, numChannels: 1}
	if !mono {
		s.numChannels = 2
	}
	s.ch[0] = &channelDecodeState{}
	if !mono {
		s.ch[1] = &channelDecodeState{}
	}
	return s
}

// decodeBlock parses fullBlockBytes (the complete on-wire block: the
// 32-byte header followed by its metadata payload, exactly as it
// appeared in the file) and reconstructs this block's samples.
// wvcPayload, if non-nil, is the paired correction block's
// IDWVCBitstream sub-block payload (spec §4.4 "correction file
// pairing"); nil means no matching wvc block was available for this
// block_index, and hybrid blocks decode lossily. On any fatal metadata
// error it mutes: fills zeros for blockSamples and records a crc
// error, per spec §4.10 "Any fatal metadata error transitions to MUTE".
func (s *stream) decodeBlock(h *block.Header, fullBlockBytes []byte, wvcPayload []byte, verifyChecksum bool) error {
	s.header = *h
	s.mono = h.Flags&wavpack.MonoFlag != 0
	s.hybrid = h.Flags&wavpack.HybridFlag != 0
	s.hybridShp = h.Flags&wavpack.HybridShape != 0
	s.newShaping = h.Flags&wavpack.NewShaping != 0
	stereo := !s.mono

	buf := fullBlockBytes[block.HeaderSize:]
	subs, err := block.DecodeAllSubBlocks(buf)
	if err != nil {
		return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "decode sub-blocks: %v", err))
	}

	if verifyChecksum {
		if err := block.VerifyBlock(h, fullBlockBytes, subs); err != nil {
			return s.mute(h.BlockSamples, err)
		}
	}

	var termsPayload, weightsPayload, samplesPayload, entropyPayload []byte
	var hybridPayload, shapingPayload []byte
	var wvPayload, wvxPayload []byte
	var floatPayloads, int32Payloads [][]byte

	for _, sb := range subs {
		switch sb.ID {
		case block.IDDecorrTerms:
			termsPayload = sb.Payload
		case block.IDDecorrWeights:
			weightsPayload = sb.Payload
		case block.IDDecorrSamples:
			samplesPayload = sb.Payload
		case block.IDEntropyVars:
			entropyPayload = sb.Payload
		case block.IDHybridProfile:
			hybridPayload = sb.Payload
		case block.IDShapingWeights:
			shapingPayload = sb.Payload
		case block.IDWVBitstream:
			wvPayload = sb.Payload
		case block.IDWVXBitstream:
			wvxPayload = sb.Payload
		case block.IDFloatInfo:
			floatPayloads = append(floatPayloads, sb.Payload)
		case block.IDInt32Info:
			int32Payloads = append(int32Payloads, sb.Payload)
		default:
			if !sb.ID.IsOptional() && sb.ID != block.IDChannelInfo {
				return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "unrecognized required sub-block id 0x%02x", sb.ID))
			}
		}
	}

	if termsPayload == nil || weightsPayload == nil || samplesPayload == nil || entropyPayload == nil || wvPayload == nil {
		return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "block missing required decorr/entropy/bitstream sub-block"))
	}

	passes, err := decodeDecorrTerms(termsPayload)
	if err != nil {
		return s.mute(h.BlockSamples, err)
	}
	if err := decodeDecorrWeights(weightsPayload, passes, stereo); err != nil {
		return s.mute(h.BlockSamples, err)
	}
	if err := decodeDecorrSamples(samplesPayload, passes, stereo); err != nil {
		return s.mute(h.BlockSamples, err)
	}
	s.passes = passes

	stateA, stateB, err := decodeEntropyVars(entropyPayload, stereo)
	if err != nil {
		return s.mute(h.BlockSamples, err)
	}
	s.ch[0].coder = entropy.NewCoder()
	s.ch[0].coder.SetState(stateA)
	if stereo {
		s.ch[1].coder = entropy.NewCoder()
		s.ch[1].coder.SetState(stateB)
	}

	if s.hybrid {
		if hybridPayload == nil {
			return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "hybrid block missing IDHybridProfile"))
		}
		limitA, limitB, err := decodeHybridProfile(hybridPayload, stereo)
		if err != nil {
			return s.mute(h.BlockSamples, err)
		}
		s.limitA, s.limitB = limitA, limitB
		if s.hybridShp {
			if shapingPayload == nil {
				return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "shaped hybrid block missing IDShapingWeights"))
			}
			accA, deltaA, accB, deltaB, err := decodeShapingWeights(shapingPayload, stereo)
			if err != nil {
				return s.mute(h.BlockSamples, err)
			}
			s.ch[0].shape = entropy.ShapingState{Acc: accA, Delta: deltaA}
			if stereo {
				s.ch[1].shape = entropy.ShapingState{Acc: accB, Delta: deltaB}
			}
		}
	}

	n := int(h.BlockSamples)
	bitsA := make([]int32, n)
	var bitsB []int32
	if stereo {
		bitsB = make([]int32, n)
	}
	br := bitstream.NewReader(wvPayload)
	for i := 0; i < n; i++ {
		v, err := s.ch[0].coder.DecodeResidual(br)
		if err != nil {
			return s.mute(h.BlockSamples, wavpack.Errf(wavpack.TruncatedBlock, "decode residual: %v", err))
		}
		bitsA[i] = v
		if stereo {
			v, err := s.ch[1].coder.DecodeResidual(br)
			if err != nil {
				return s.mute(h.BlockSamples, wavpack.Errf(wavpack.TruncatedBlock, "decode residual: %v", err))
			}
			bitsB[i] = v
		}
	}

	if s.hybrid {
		corrA, corrB := decodeCorrection(wvcPayload, n, stereo)
		if corrA == nil {
			s.lossyBlocks++
		}
		for i := 0; i < n; i++ {
			var cA, cB int32
			if corrA != nil {
				cA = corrA[i]
			}
			if stereo && corrB != nil {
				cB = corrB[i]
			}
			// Mirrors encode's Shape-then-Quantize order (pack/stream.go):
			// dequantize first to recover the shaped value (exactly, if a
			// correction stream supplied cA/cB; lossily otherwise), then
			// invert the shaping filter to recover the decorrelation
			// residual.
			shapedA := entropy.Dequantize(bitsA[i], cA, s.limitA)
			if s.hybridShp {
				shapedA = s.ch[0].shape.Unshape(shapedA, s.newShaping)
			}
			bitsA[i] = shapedA
			if stereo {
				shapedB := entropy.Dequantize(bitsB[i], cB, s.limitB)
				if s.hybridShp {
					shapedB = s.ch[1].shape.Unshape(shapedB, s.newShaping)
				}
				bitsB[i] = shapedB
			}
		}
	}

	if stereo {
		decorr.InverseStereo(passes, bitsA, bitsB)
	} else {
		decorr.InverseMono(passes, bitsA)
	}

	if stereo && h.Flags&wavpack.JointStereo != 0 {
		decorr.InverseJointStereo(bitsA, bitsB)
	}

	outA := bitsA
	var outB []int32
	if stereo {
		outB = bitsB
	}

	switch {
	case h.Flags&wavpack.FloatData != 0:
		if len(floatPayloads) == 0 {
			return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "float block missing IDFloatInfo"))
		}
		infoA, err := buildFloatInfo(floatPayloads[0])
		if err != nil {
			return s.mute(h.BlockSamples, err)
		}
		s.floatInfo[0] = infoA
		var infoB *floatext.FloatInfo
		if stereo {
			if len(floatPayloads) < 2 {
				return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "stereo float block missing second IDFloatInfo"))
			}
			infoB, err = buildFloatInfo(floatPayloads[1])
			if err != nil {
				return s.mute(h.BlockSamples, err)
			}
			s.floatInfo[1] = infoB
		}
		floatA := make([]int32, n)
		var floatB []int32
		if stereo {
			floatB = make([]int32, n)
		}
		if wvxPayload != nil {
			body, ok := verifyWvx(wvxPayload)
			if !ok {
				s.crcErrors++
			} else {
				wr := bitstream.NewReader(body)
				for i := 0; i < n; i++ {
					fa, err := floatext.DecodeFloatReconstruct(wr, infoA, outA[i])
					if err == nil {
						floatA[i] = int32(math.Float32bits(fa))
					}
					if stereo {
						fb, err := floatext.DecodeFloatReconstruct(wr, infoB, outB[i])
						if err == nil {
							floatB[i] = int32(math.Float32bits(fb))
						}
					}
				}
			}
		}
		outA, outB = floatA, floatB
	case h.Flags&wavpack.Int32Data != 0:
		if len(int32Payloads) == 0 {
			return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "int32 block missing IDInt32Info"))
		}
		infoA, _, err := buildInt32Info(int32Payloads[0])
		if err != nil {
			return s.mute(h.BlockSamples, err)
		}
		s.int32Info[0] = infoA
		var infoB *floatext.Int32Info
		if stereo {
			if len(int32Payloads) < 2 {
				return s.mute(h.BlockSamples, wavpack.Errf(wavpack.MalformedMetadata, "stereo int32 block missing second IDInt32Info"))
			}
			infoB, _, err = buildInt32Info(int32Payloads[1])
			if err != nil {
				return s.mute(h.BlockSamples, err)
			}
			s.int32Info[1] = infoB
		}
		fullA := make([]int32, n)
		var fullB []int32
		if stereo {
			fullB = make([]int32, n)
		}
		if wvxPayload != nil {
			body, ok := verifyWvx(wvxPayload)
			if !ok {
				s.crcErrors++
			} else {
				wr := bitstream.NewReader(body)
				for i := 0; i < n; i++ {
					v, _ := floatext.DecodeInt32Reconstruct(wr, infoA, outA[i])
					fullA[i] = v
					if stereo {
						v, _ := floatext.DecodeInt32Reconstruct(wr, infoB, outB[i])
						fullB[i] = v
					}
				}
			}
		} else {
			for i := 0; i < n; i++ {
				fullA[i] = outA[i] << infoA.Shift
				if stereo {
					fullB[i] = outB[i] << infoB.Shift
				}
			}
		}
		outA, outB = fullA, fullB
	}

	if h.Flags&wavpack.FalseStereo != 0 && stereo {
		outB = append([]int32(nil), outA...)
	}

	wantCRC := crc.NewAudio()
	if stereo {
		for i := range outA {
			wantCRC = wantCRC.UpdateStereo(outA[i], outB[i])
		}
	} else {
		for i := range outA {
			wantCRC = wantCRC.UpdateMono(outA[i])
		}
	}
	if uint32(wantCRC) != h.CRC {
		s.crcErrors++
	}

	s.outA, s.outB = outA, outB
	s.cursor = 0
	s.state = stateSamplesAvailable
	s.muted = false
	return nil
}

func buildFloatInfo(payload []byte) (*floatext.FloatInfo, error) {
	maxExp, shift, flags, normExp, err := decodeFloatInfoChan(payload)
	if err != nil {
		return nil, err
	}
	return &floatext.FloatInfo{MaxExp: maxExp, Shift: shift, Flags: floatext.Flags(flags), NormExp: normExp}, nil
}

func buildInt32Info(payload []byte) (*floatext.Int32Info, bool, error) {
	shift, extraBits, err := decodeInt32InfoChan(payload)
	if err != nil {
		return nil, false, err
	}
	return &floatext.Int32Info{Shift: shift, ExtraBits: extraBits}, extraBits != 0, nil
}

// decodeCorrection decodes a paired wvc block's IDWVCBitstream payload
// into n correction values per channel, using a fresh entropy.Coder
// per call to match pack/stream.go's fresh-per-block corrCoderA/B
// (the correction stream's coder state is never serialized, so it
// never persists across blocks on either side). Returns nil, nil if
// payload is nil (no correction data for this block).
func decodeCorrection(payload []byte, n int, stereo bool) (corrA, corrB []int32) {
	if payload == nil {
		return nil, nil
	}
	corrA = make([]int32, n)
	if stereo {
		corrB = make([]int32, n)
	}
	coderA, coderB := entropy.NewCoder(), entropy.NewCoder()
	br := bitstream.NewReader(payload)
	for i := 0; i < n; i++ {
		v, err := coderA.DecodeResidual(br)
		if err != nil {
			return nil, nil
		}
		corrA[i] = v
		if stereo {
			v, err := coderB.DecodeResidual(br)
			if err != nil {
				return nil, nil
			}
			corrB[i] = v
		}
	}
	return corrA, corrB
}

func verifyWvx(payload []byte) ([]byte, bool) {
	if len(payload) < 4 {
		return nil, false
	}
	sum := uint32(getInt32(payload))
	body := payload[4:]
	return body, floatext.VerifyWvxCRC(body, sum)
}

// mute fills this block with n zero samples and marks it crc-errored,
// per spec §4.10's MUTE transition on a fatal metadata error. It
// always returns nil: muting recovers the stream rather than
// propagating the error to the caller, matching the state machine
// (the stream stays usable for the next block).
func (s *stream) mute(n uint32, cause error) error {
	s.crcErrors++
	s.muted = true
	s.outA = make([]int32, n)
	if !s.mono {
		s.outB = make([]int32, n)
	}
	s.cursor = 0
	s.state = stateSamplesAvailable
	_ = cause
	return nil
}
