package unpack

import (
	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/decorr"
)

// These mirror pack/wire.go's encoders byte-for-byte; see that file's
// doc comment for why the layouts are self-invented rather than ported
// from a reference (words.c is not part of the provided source subset).

func decodeDecorrTerms(payload []byte) ([]*decorr.Pass, error) {
	if len(payload)%2 != 0 {
		return nil, wavpack.Errf(wavpack.MalformedMetadata, "decorr_terms: odd payload length %d", len(payload))
	}
	n := len(payload) / 2
	if n > decorr.MaxTerms {
		return nil, wavpack.Errf(wavpack.MalformedMetadata, "decorr_terms: %d passes exceeds MaxTerms", n)
	}
	passes := make([]*decorr.Pass, n)
	for i := 0; i < n; i++ {
		passes[i] = &decorr.Pass{Term: int8(payload[2*i]), Delta: payload[2*i+1]}
	}
	return passes, nil
}

func decodeDecorrWeights(payload []byte, passes []*decorr.Pass, stereo bool) error {
	n := 1
	if stereo {
		n = 2
	}
	if len(payload) != n*len(passes) {
		return wavpack.Errf(wavpack.MalformedMetadata, "decorr_weights: want %d bytes, got %d", n*len(passes), len(payload))
	}
	off := 0
	for _, p := range passes {
		p.WeightA = decorr.RestoreWeight(int8(payload[off]))
		off++
		if stereo {
			p.WeightB = decorr.RestoreWeight(int8(payload[off]))
			off++
		}
	}
	return nil
}

func getInt16(src []byte) int16 {
	return int16(uint16(src[0]) | uint16(src[1])<<8)
}

func getInt32(src []byte) int32 {
	return int32(uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24)
}

func decodeDecorrSamples(payload []byte, passes []*decorr.Pass, stereo bool) error {
	perChan := 32
	perPass := 1 + perChan
	if stereo {
		perPass += perChan
	}
	if len(payload) != perPass*len(passes) {
		return wavpack.Errf(wavpack.MalformedMetadata, "decorr_samples: want %d bytes, got %d", perPass*len(passes), len(payload))
	}
	off := 0
	for _, p := range passes {
		p.SetCursorM(int(payload[off]))
		off++
		for i := 0; i < 16; i++ {
			p.SamplesA[i] = decorr.Exp2Unpack(getInt16(payload[off+2*i:]))
		}
		off += perChan
		if stereo {
			for i := 0; i < 16; i++ {
				p.SamplesB[i] = decorr.Exp2Unpack(getInt16(payload[off+2*i:]))
			}
			off += perChan
		}
	}
	return nil
}

func decodeEntropyVars(payload []byte, stereo bool) (stateA, stateB [3]int32, err error) {
	want := 12
	if stereo {
		want = 24
	}
	if len(payload) != want {
		return stateA, stateB, wavpack.Errf(wavpack.MalformedMetadata, "entropy_vars: want %d bytes, got %d", want, len(payload))
	}
	for i := 0; i < 3; i++ {
		stateA[i] = getInt32(payload[4*i:])
	}
	if stereo {
		for i := 0; i < 3; i++ {
			stateB[i] = getInt32(payload[12+4*i:])
		}
	}
	return stateA, stateB, nil
}

func decodeHybridProfile(payload []byte, stereo bool) (limitA, limitB int32, err error) {
	want := 4
	if stereo {
		want = 8
	}
	if len(payload) != want {
		return 0, 0, wavpack.Errf(wavpack.MalformedMetadata, "hybrid_profile: want %d bytes, got %d", want, len(payload))
	}
	limitA = getInt32(payload)
	limitB = limitA
	if stereo {
		limitB = getInt32(payload[4:])
	}
	return limitA, limitB, nil
}

func decodeShapingWeights(payload []byte, stereo bool) (accA, deltaA, accB, deltaB int32, err error) {
	want := 8
	if stereo {
		want = 16
	}
	if len(payload) != want {
		return 0, 0, 0, 0, wavpack.Errf(wavpack.MalformedMetadata, "shaping_weights: want %d bytes, got %d", want, len(payload))
	}
	accA = getInt32(payload[0:])
	deltaA = getInt32(payload[4:])
	if stereo {
		accB = getInt32(payload[8:])
		deltaB = getInt32(payload[12:])
	}
	return accA, deltaA, accB, deltaB, nil
}

func decodeChannelInfo(payload []byte) (numChannels int, channelMask uint32, err error) {
	if len(payload) != 5 {
		return 0, 0, wavpack.Errf(wavpack.MalformedMetadata, "channel_info: want 5 bytes, got %d", len(payload))
	}
	return int(payload[0]), uint32(getInt32(payload[1:])), nil
}

func decodeFloatInfoChan(payload []byte) (maxExp int, shift, flags, normExp uint8, err error) {
	if len(payload) != 4 {
		return 0, 0, 0, 0, wavpack.Errf(wavpack.MalformedMetadata, "float_info: want 4 bytes, got %d", len(payload))
	}
	return int(payload[0]), payload[1], payload[2], payload[3], nil
}

func decodeInt32InfoChan(payload []byte) (shift, extraBits uint8, err error) {
	if len(payload) != 2 {
		return 0, 0, wavpack.Errf(wavpack.MalformedMetadata, "int32_info: want 2 bytes, got %d", len(payload))
	}
	return payload[0], payload[1], nil
}
