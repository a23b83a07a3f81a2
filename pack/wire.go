package pack

import (
	"hash/crc32"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/block"
	"github.com/mewkiz/wavpack/decorr"
	"github.com/mewkiz/wavpack/internal/crc"
)

// Every per-block metadata sub-block this package emits packs enough
// state (decorrelation weights/history, entropy medians, shaping
// accumulators) that a block can be decoded starting cold from its own
// bytes alone, independent of any previous block. unpack.SeekSample
// does not use this; it always replays from the first block.
//
// There is no original_source/ reference for any of these layouts
// (words.c, which would define them, is not part of the provided
// subset); each is a self-consistent encoding this package and
// unpack agree on, not a port of the real WavPack wire format.

func encodeDecorrTerms(passes []*decorr.Pass) []byte {
	out := make([]byte, 0, 2*len(passes))
	for _, p := range passes {
		out = append(out, byte(p.Term), p.Delta)
	}
	return out
}

func encodeDecorrWeights(passes []*decorr.Pass, stereo bool) []byte {
	n := 1
	if stereo {
		n = 2
	}
	out := make([]byte, 0, n*len(passes))
	for _, p := range passes {
		out = append(out, byte(decorr.StoreWeight(p.WeightA)))
		if stereo {
			out = append(out, byte(decorr.StoreWeight(p.WeightB)))
		}
	}
	return out
}

func putInt16(dst []byte, v int16) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}

func putInt32(dst []byte, v int32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func encodeDecorrSamples(passes []*decorr.Pass, stereo bool) []byte {
	perChan := 32 // 16 int16 values
	perPass := 1 + perChan
	if stereo {
		perPass += perChan
	}
	out := make([]byte, perPass*len(passes))
	off := 0
	for _, p := range passes {
		out[off] = byte(p.CursorM())
		off++
		for i, s := range p.SamplesA {
			putInt16(out[off+2*i:], decorr.Log2Pack(s))
		}
		off += perChan
		if stereo {
			for i, s := range p.SamplesB {
				putInt16(out[off+2*i:], decorr.Log2Pack(s))
			}
			off += perChan
		}
	}
	return out
}

func encodeEntropyVars(stateA, stateB [3]int32, stereo bool) []byte {
	out := make([]byte, 0, 24)
	for _, v := range stateA {
		var b [4]byte
		putInt32(b[:], v)
		out = append(out, b[:]...)
	}
	if stereo {
		for _, v := range stateB {
			var b [4]byte
			putInt32(b[:], v)
			out = append(out, b[:]...)
		}
	}
	return out
}

func encodeHybridProfile(limitA, limitB int32, stereo bool) []byte {
	out := make([]byte, 4, 8)
	putInt32(out, limitA)
	if stereo {
		var b [4]byte
		putInt32(b[:], limitB)
		out = append(out, b[:]...)
	}
	return out
}

func encodeShapingWeights(accA, deltaA, accB, deltaB int32, stereo bool) []byte {
	out := make([]byte, 8, 16)
	putInt32(out[0:4], accA)
	putInt32(out[4:8], deltaA)
	if stereo {
		var b [8]byte
		putInt32(b[0:4], accB)
		putInt32(b[4:8], deltaB)
		out = append(out, b[:]...)
	}
	return out
}

func encodeChannelInfo(numChannels int, channelMask uint32) []byte {
	out := make([]byte, 5)
	out[0] = byte(numChannels)
	putInt32(out[1:], int32(channelMask))
	return out
}

func encodeFloatInfoChan(maxExp int, shift, flags, normExp uint8) []byte {
	return []byte{byte(maxExp), shift, flags, normExp}
}

func encodeInt32InfoChan(shift, extraBits uint8) []byte {
	return []byte{shift, extraBits}
}

// crc32Checksum is the ordinary CRC-32 (IEEE) used to guard the wvx
// bitstream payload (spec §4.7), matching floatext.VerifyWvxCRC's
// convention on the decode side.
func crc32Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// assembleBlock concatenates a block header with its already-encoded
// sub-block wire bytes, patching in CkSize and, last, the checksum
// sub-block and header CRC. version/trackNo/indexNo/totalSamples come
// from the owning Packer; a totalSamples that is unknown or does not
// fit in 32 bits is written as 0xFFFFFFFF, which
// Packer.UpdateNumSamples later patches in the first block.
func assembleBlock(version uint16, trackNo, indexNo uint8, totalSamples uint64, blockIndex, blockSamples uint32, flags wavpack.Flags, sampleCRC crc.Audio, subBlocks [][]byte, addChecksum bool) ([]byte, error) {
	total := uint32(0xFFFFFFFF)
	if totalSamples < 0xFFFFFFFF {
		total = uint32(totalSamples)
	}

	payload := make([]byte, 0, 256)
	for _, sb := range subBlocks {
		payload = append(payload, sb...)
	}

	var checksumWire []byte
	if addChecksum {
		var err error
		checksumWire, err = block.EncodeSubBlock(block.IDBlockChecksum, make([]byte, 4))
		if err != nil {
			return nil, err
		}
	}

	h := &block.Header{
		Version:      version,
		TrackNo:      trackNo,
		IndexNo:      indexNo,
		TotalSamples: total,
		BlockIndex:   blockIndex,
		BlockSamples: blockSamples,
		Flags:        flags,
		CRC:          uint32(sampleCRC),
	}
	h.CkSize = uint32(block.HeaderSize-8) + uint32(len(payload)+len(checksumWire))

	buf := make([]byte, block.HeaderSize+len(payload)+len(checksumWire))
	if err := h.Encode(buf); err != nil {
		return nil, err
	}
	copy(buf[block.HeaderSize:], payload)

	if addChecksum {
		// VerifyBlock (and UpdateNumSamples) recompute this over the
		// full on-wire block up to, but excluding, the checksum
		// sub-block's own bytes — match that here rather than covering
		// only the metadata payload.
		sum := crc.Block(buf[:block.HeaderSize+len(payload)])
		checksumPayload := []byte{byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24)}
		wire, err := block.EncodeSubBlock(block.IDBlockChecksum, checksumPayload)
		if err != nil {
			return nil, err
		}
		copy(buf[block.HeaderSize+len(payload):], wire)
	}
	return buf, nil
}
