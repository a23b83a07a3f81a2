package pack

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

// channelState is one channel's persistent encode state: the entropy
// coder driving its residual stream, and, in hybrid mode, the noise
// shaping filter. The correction stream's coder is deliberately NOT
// held here: it is rebuilt fresh (entropy.NewCoder()) for every block
// on both the encode and decode sides, so a wvc block never needs its
// own serialized entropy state to be decoded independently — see
// DESIGN.md.
type channelState struct {
	coder *entropy.Coder
	shape entropy.ShapingState
	slow  entropy.SlowLevel
}

func newChannelState() *channelState {
	return &channelState{coder: entropy.NewCoder()}
}

// stream is one WavPack stream (mono, or a stereo pair) within a
// possibly multichannel Packer. Its decorrelation passes and both
// channelStates persist across blocks the same way the teacher's
// Encoder carries its running md5sum.Hash across Write calls; unlike
// md5sum, this state is also re-serialized into every block's own
// metadata (pack/wire.go) so a cold decoder can pick up at any block.
type stream struct {
	mono        bool
	numChannels int

	passes []*decorr.Pass
	ch     [2]*channelState

	accA, accB []int32 // accumulated composite samples for the in-progress block
}

func newStream(cfg *wavpack.Config, mono bool) *stream {
	s := &stream{mono: mono, numChannels: 1}
	if !mono {
		s.numChannels = 2
	}
	s.passes = decorr.NewPasses(cfg.Quality, mono, cfg.JointStereo == false)
	if len(cfg.DecorrTerms) > 0 {
		s.passes = make([]*decorr.Pass, len(cfg.DecorrTerms))
		for i, t := range cfg.DecorrTerms {
			s.passes[i] = &decorr.Pass{Term: t, Delta: cfg.DecorrDeltas[i]}
		}
	}
	s.ch[0] = newChannelState()
	if !mono {
		s.ch[1] = newChannelState()
	}
	if cfg.Hybrid && cfg.HybridShaping {
		delta := hybridShapingDelta(cfg)
		s.ch[0].shape.Delta = delta
		if !mono {
			s.ch[1].shape.Delta = delta
		}
	}
	return s
}

// hybridShapingDelta derives shaping_delta from the configured
// bitrate: a steeper target (fewer bits) shapes more aggressively.
// original_source/src/pack.c computes this from the same bitrate
// figure used for error_limit; the exact formula lives in words.c,
// not part of the provided subset, so this uses a monotone
// approximation in its place (see DESIGN.md).
func hybridShapingDelta(cfg *wavpack.Config) int32 {
	bits := cfg.HybridBitrate
	if bits <= 0 {
		bits = 8
	}
	d := int32(float64(1<<16) / (bits + 1))
	if d == 0 {
		d = 1
	}
	return d
}

// errorLimitFor derives this block's error_limit from the channel's
// slow-moving magnitude average and the configured target bitrate
// (spec §4.6 "computes an allowed error magnitude error_limit from a
// target bitrate per sample").
func errorLimitFor(cfg *wavpack.Config, slow *entropy.SlowLevel) int32 {
	bitsPerSample := uint(cfg.HybridBitrate)
	if cfg.HybridBitrateIsKbps {
		// Convert an approximate kbps target to bits/sample using the
		// configured sample rate; guards against a zero rate so the
		// shift below never runs away.
		rate := cfg.SampleRate
		if rate == 0 {
			rate = 44100
		}
		bitsPerSample = uint(cfg.HybridBitrate * 1000 / float64(rate))
	}
	if bitsPerSample > 24 {
		bitsPerSample = 24
	}
	return slow.ErrorLimit(bitsPerSample)
}

// floatBitsToSample/sampleToFloatBits are the convention this package
// uses to carry IEEE-754 float32 PCM through audio.IntBuffer's []int
// samples (go-audio/audio has no float32 PCM container that matches
// the Packer/Unpacker's shared buffer type) — see DESIGN.md.
func floatBitsToSample(bits uint32) int32 { return int32(bits) }
func sampleToFloatBits(v int32) uint32    { return uint32(v) }

// encodeBlock runs one block's worth of accumulated samples through
// joint stereo, float/int32 scanning, decorrelation, optional hybrid
// quantization and noise shaping, and entropy coding, then assembles
// the on-wire block (and, if wvcOut is configured, its correction
// twin). It resets the stream's accumulation buffers before returning.
func (s *stream) encodeBlock(p *Packer, blockIndex uint32, initial, final bool) (wv []byte, wvc []byte, err error) {
	n := len(s.accA)
	stereo := !s.mono
	cfg := &p.cfg

	origA := append([]int32(nil), s.accA...)
	var origB []int32
	if stereo {
		origB = append([]int32(nil), s.accB...)
	}

	sampleCRC := crc.NewAudio()
	if stereo {
		for i := 0; i < n; i++ {
			sampleCRC = sampleCRC.UpdateStereo(origA[i], origB[i])
		}
	} else {
		for i := 0; i < n; i++ {
			sampleCRC = sampleCRC.UpdateMono(origA[i])
		}
	}

	flags := wavpack.Flags(0)
	if s.mono {
		flags |= wavpack.MonoFlag
	}
	if cfg.ChecksumBlocks {
		flags |= wavpack.HasChecksum
	}
	if initial {
		flags |= wavpack.InitialBlock
	}
	if final {
		flags |= wavpack.FinalBlock
	}
	flags = flags.WithBytesPerSample(cfg.BytesPerSample)
	flags = flags.WithMagnitude(uint(cfg.BitsPerSample - 1))
	if idx, ok := wavpack.SampleRateIndexFor(cfg.SampleRate); ok {
		flags = flags.WithSampleRateIndex(idx)
	} else {
		flags = flags.WithSampleRateIndex(0xF)
	}

	var subBlocks [][]byte
	addSub := func(id block.SubID, payload []byte) error {
		wire, err := block.EncodeSubBlock(id, payload)
		if err != nil {
			return err
		}
		subBlocks = append(subBlocks, wire)
		return nil
	}

	if initial {
		if err := addSub(block.IDChannelInfo, encodeChannelInfo(cfg.NumChannels, cfg.ChannelMask)); err != nil {
			return nil, nil, err
		}
	}

	workA := origA
	workB := origB

	var floatInfoA, floatInfoB *floatext.FloatInfo
	var int32InfoA, int32InfoB *floatext.Int32Info

	switch {
	case cfg.FloatData:
		flags |= wavpack.FloatData
		fa := make([]float32, n)
		for i, v := range origA {
			fa[i] = math.Float32frombits(sampleToFloatBits(v))
		}
		floatInfoA, workA = floatext.ScanFloats(fa)
		if err := addSub(block.IDFloatInfo, encodeFloatInfoChan(floatInfoA.MaxExp, floatInfoA.Shift, uint8(floatInfoA.Flags), floatInfoA.NormExp)); err != nil {
			return nil, nil, err
		}
		if stereo {
			fb := make([]float32, n)
			for i, v := range origB {
				fb[i] = math.Float32frombits(sampleToFloatBits(v))
			}
			floatInfoB, workB = floatext.ScanFloats(fb)
			if err := addSub(block.IDFloatInfo, encodeFloatInfoChan(floatInfoB.MaxExp, floatInfoB.Shift, uint8(floatInfoB.Flags), floatInfoB.NormExp)); err != nil {
				return nil, nil, err
			}
		}
	case cfg.BitsPerSample > 24:
		flags |= wavpack.Int32Data
		int32InfoA, workA = floatext.ScanInt32(origA)
		if err := addSub(block.IDInt32Info, encodeInt32InfoChan(int32InfoA.Shift, int32InfoA.ExtraBits)); err != nil {
			return nil, nil, err
		}
		if stereo {
			int32InfoB, workB = floatext.ScanInt32(origB)
			if err := addSub(block.IDInt32Info, encodeInt32InfoChan(int32InfoB.Shift, int32InfoB.ExtraBits)); err != nil {
				return nil, nil, err
			}
		}
	}

	workA = append([]int32(nil), workA...)
	if stereo {
		workB = append([]int32(nil), workB...)
	}

	if stereo && cfg.JointStereo {
		flags |= wavpack.JointStereo
		decorr.JointStereo(workA, workB)
	}
	if stereo && !cfg.JointStereo {
		flags |= wavpack.CrossDecorr
	}

	if err := addSub(block.IDDecorrTerms, encodeDecorrTerms(s.passes)); err != nil {
		return nil, nil, err
	}
	if err := addSub(block.IDDecorrWeights, encodeDecorrWeights(s.passes, stereo)); err != nil {
		return nil, nil, err
	}
	if err := addSub(block.IDDecorrSamples, encodeDecorrSamples(s.passes, stereo)); err != nil {
		return nil, nil, err
	}

	if stereo {
		decorr.ForwardStereo(s.passes, workA, workB)
	} else {
		decorr.ForwardMono(s.passes, workA)
	}

	var corrA, corrB []int32
	if cfg.Hybrid {
		flags |= wavpack.HybridFlag
		if cfg.HybridBitrateIsKbps {
			flags |= wavpack.HybridBitrate
		}
		if cfg.HybridBalance && stereo {
			flags |= wavpack.HybridBalance
		}
		limitA := errorLimitFor(cfg, &s.ch[0].slow)
		limitB := limitA
		if stereo && cfg.HybridBalance {
			limitB = errorLimitFor(cfg, &s.ch[1].slow)
		}
		corrA = make([]int32, n)
		if stereo {
			corrB = make([]int32, n)
		}
		if cfg.HybridShaping {
			flags |= wavpack.HybridShape
		}
		if cfg.NewShaping {
			flags |= wavpack.NewShaping
		}
		for i := 0; i < n; i++ {
			s.ch[0].slow.Observe(workA[i])
			shapedA := workA[i]
			if cfg.HybridShaping {
				shapedA = s.ch[0].shape.Shape(workA[i], cfg.NewShaping)
			}
			qA, cA := entropy.Quantize(shapedA, limitA)
			corrA[i] = cA
			workA[i] = qA
			if cfg.HybridShaping {
				s.ch[0].shape.ObserveQuantizationError(entropy.Dequantize(qA, 0, limitA))
			}
			if stereo {
				s.ch[1].slow.Observe(workB[i])
				shapedB := workB[i]
				if cfg.HybridShaping {
					shapedB = s.ch[1].shape.Shape(workB[i], cfg.NewShaping)
				}
				qB, cB := entropy.Quantize(shapedB, limitB)
				corrB[i] = cB
				workB[i] = qB
				if cfg.HybridShaping {
					s.ch[1].shape.ObserveQuantizationError(entropy.Dequantize(qB, 0, limitB))
				}
			}
		}
		if err := addSub(block.IDHybridProfile, encodeHybridProfile(limitA, limitB, stereo)); err != nil {
			return nil, nil, err
		}
		if cfg.HybridShaping {
			accB, deltaB := int32(0), int32(0)
			if stereo {
				accB, deltaB = s.ch[1].shape.Acc, s.ch[1].shape.Delta
			}
			if err := addSub(block.IDShapingWeights, encodeShapingWeights(s.ch[0].shape.Acc, s.ch[0].shape.Delta, accB, deltaB, stereo)); err != nil {
				return nil, nil, err
			}
		}
	}

	stateB := [3]int32{}
	if stereo {
		stateB = s.ch[1].coder.State()
	}
	if err := addSub(block.IDEntropyVars, encodeEntropyVars(s.ch[0].coder.State(), stateB, stereo)); err != nil {
		return nil, nil, err
	}

	bw := bitstream.NewWriter()
	for i := 0; i < n; i++ {
		if err := s.ch[0].coder.EncodeResidual(bw, workA[i]); err != nil {
			return nil, nil, err
		}
		if stereo {
			if err := s.ch[1].coder.EncodeResidual(bw, workB[i]); err != nil {
				return nil, nil, err
			}
		}
	}
	if _, err := bw.Close(); err != nil {
		return nil, nil, err
	}
	if err := addSub(block.IDWVBitstream, bw.Bytes()); err != nil {
		return nil, nil, err
	}

	if floatInfoA != nil || int32InfoA != nil {
		wvx := bitstream.NewWriter()
		for i := 0; i < n; i++ {
			if floatInfoA != nil {
				fa := math.Float32frombits(sampleToFloatBits(origA[i]))
				if err := floatext.EncodeFloatResidue(wvx, floatInfoA, fa); err != nil {
					return nil, nil, err
				}
				if stereo {
					fb := math.Float32frombits(sampleToFloatBits(origB[i]))
					if err := floatext.EncodeFloatResidue(wvx, floatInfoB, fb); err != nil {
						return nil, nil, err
					}
				}
			} else {
				if err := floatext.EncodeInt32Residue(wvx, int32InfoA, workA[i], origA[i]); err != nil {
					return nil, nil, err
				}
				if stereo {
					if err := floatext.EncodeInt32Residue(wvx, int32InfoB, workB[i], origB[i]); err != nil {
						return nil, nil, err
					}
				}
			}
		}
		if _, err := wvx.Close(); err != nil {
			return nil, nil, err
		}
		wvxBody := wvx.Bytes()
		wvxSum := crc32Checksum(wvxBody)
		payload := make([]byte, 4+len(wvxBody))
		putInt32(payload, int32(wvxSum))
		copy(payload[4:], wvxBody)
		if err := addSub(block.IDWVXBitstream, payload); err != nil {
			return nil, nil, err
		}
	}

	wv, err = assembleBlock(p.version, p.trackNo, p.indexNo, p.totalSamples, blockIndex, uint32(n), flags, sampleCRC, subBlocks, cfg.ChecksumBlocks)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Hybrid && p.wvcOut != nil {
		var corrSub [][]byte
		cbw := bitstream.NewWriter()
		corrCoderA, corrCoderB := entropy.NewCoder(), entropy.NewCoder()
		for i := 0; i < n; i++ {
			if err := corrCoderA.EncodeResidual(cbw, corrA[i]); err != nil {
				return nil, nil, err
			}
			if stereo {
				if err := corrCoderB.EncodeResidual(cbw, corrB[i]); err != nil {
					return nil, nil, err
				}
			}
		}
		if _, err := cbw.Close(); err != nil {
			return nil, nil, err
		}
		wire, err := block.EncodeSubBlock(block.IDWVCBitstream, cbw.Bytes())
		if err != nil {
			return nil, nil, err
		}
		corrSub = append(corrSub, wire)
		wvc, err = assembleBlock(p.version, p.trackNo, p.indexNo, p.totalSamples, blockIndex, uint32(n), flags, sampleCRC, corrSub, false)
		if err != nil {
			return nil, nil, err
		}
	}

	s.accA = s.accA[:0]
	s.accB = s.accB[:0]
	return wv, wvc, nil
}
