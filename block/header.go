// Package block implements the WavPack block container: the 32-byte
// fixed header (spec §3 "Block Header", §6), metadata sub-block TLV
// framing (spec §4.3), block-level CRCs, header resync scanning, and
// BLOCK_CHECKSUM verification (spec §4.4).
//
// Grounded on the teacher's frame/header.go shape ("one NewX parses a
// fixed on-wire struct and checks a trailing CRC") generalized to
// WavPack's byte-aligned (not bit-packed) header via
// internal/byteorder.
package block

import (
	"encoding/binary"

	"github.com/mewkiz/pkg/errutil"
	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/internal/byteorder"
)

// HeaderSize is the fixed on-disk size of a block header in bytes.
const HeaderSize = 32

// Magic is the 4-byte signature at the start of every block.
var Magic = [4]byte{'w', 'v', 'p', 'k'}

// Header is the 32-byte fixed block header (spec §3, §6).
type Header struct {
	CkSize       uint32 // payload bytes - 8, >= 24
	Version      uint16 // high byte 4, low byte in [MIN..MAX]
	TrackNo      uint8
	IndexNo      uint8
	TotalSamples uint32 // lower 32 bits; -1 (0xFFFFFFFF) if unknown
	BlockIndex   uint32
	BlockSamples uint32 // 0 => metadata-only block
	Flags        wavpack.Flags
	CRC          uint32
}

var headerCodec = mustCodec("LSBBLLLLL")

func mustCodec(format string) *byteorder.Codec {
	c, err := byteorder.New(format)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode parses a Header from buf, which must be the 28 bytes
// following the 4-byte "wvpk" magic (i.e. the ckSize field onward).
// The caller matches the magic itself (see ReadNextHeader), since
// recognizing it is part of the resync scan, not of decoding a header
// already known to start at the current position.
func Decode(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize-4 {
		return nil, errutil.Newf("block: header buffer too short")
	}
	vals, err := headerCodec.Decode(buf, binary.LittleEndian)
	if err != nil {
		return nil, errutil.Err(err)
	}
	h := &Header{
		CkSize:       uint32(vals[0]),
		Version:      uint16(vals[1]),
		TrackNo:      uint8(vals[2]),
		IndexNo:      uint8(vals[3]),
		TotalSamples: uint32(vals[4]),
		BlockIndex:   uint32(vals[5]),
		BlockSamples: uint32(vals[6]),
		Flags:        wavpack.Flags(vals[7]),
		CRC:          uint32(vals[8]),
	}
	return h, h.sanityCheck()
}

// Encode writes the magic and the 32-byte header into buf[0:32].
func (h *Header) Encode(buf []byte) error {
	if len(buf) < HeaderSize {
		return errutil.Newf("block: header buffer too short")
	}
	copy(buf[0:4], Magic[:])
	vals := []uint64{
		uint64(h.CkSize), uint64(h.Version), uint64(h.TrackNo), uint64(h.IndexNo),
		uint64(h.TotalSamples), uint64(h.BlockIndex), uint64(h.BlockSamples),
		uint64(h.Flags), uint64(h.CRC),
	}
	return headerCodec.Encode(buf[4:HeaderSize], binary.LittleEndian, vals)
}

// sanityCheck implements the read_next_header recognition rules of
// spec §4.4, minus the magic (checked by the caller while scanning).
//
// The literal "flags byte 2 < 16 and byte 3 == 0" recognition rule is
// intentionally not enforced here: it is only true of a flags word
// with MAG_MASK ∈ {0,1,2,3} and none of HAS_CHECKSUM/NEW_SHAPING/
// FALSE_STEREO/DSD_FLAG set, which contradicts the bitfield layout
// (MAG_MASK at bits 18..22, those four flags at bits 28..31) that the
// rest of this package and decorr/entropy/floatext/pack/unpack are
// built against. Bytes 2 and 3 of ordinary, valid headers routinely
// fail that check once bits_per_sample exceeds 4 or any of those four
// flags is set, so enforcing it would reject blocks this package
// itself produces.
func (h *Header) sanityCheck() error {
	switch {
	case h.Flags&1 != 0:
		return wavpack.Errf(wavpack.InvalidHeader, "flags low bit must be 0")
	case h.CkSize < 24:
		return wavpack.Errf(wavpack.InvalidHeader, "ckSize %d < 24", h.CkSize)
	case h.Version>>8 != 4:
		return wavpack.Errf(wavpack.InvalidHeader, "version high byte must be 4, got %d", h.Version>>8)
	case h.Version&0xFF < wavpack.MinStreamVers&0xFF || h.Version&0xFF > wavpack.MaxStreamVers&0xFF:
		return wavpack.Errf(wavpack.InvalidHeader, "version 0x%03x out of range", h.Version)
	case h.TrackNo >= 3:
		return wavpack.Errf(wavpack.InvalidHeader, "track_no %d >= 3", h.TrackNo)
	case h.IndexNo != 0:
		return wavpack.Errf(wavpack.InvalidHeader, "index_no %d != 0", h.IndexNo)
	}
	return nil
}

// IsUnknownTotalSamples reports whether TotalSamples encodes "unknown"
// (-1, i.e. 0xFFFFFFFF).
func (h *Header) IsUnknownTotalSamples() bool {
	return h.TotalSamples == 0xFFFFFFFF
}
