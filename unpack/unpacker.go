// Package unpack implements the WavPack decoder of spec §4.10:
// Unpacker reads blocks from a caller-supplied io.ReadSeeker (and,
// optionally, a paired correction-file reader), reassembles composite
// interleaved PCM via decorr/entropy/floatext, and exposes it through
// an audio.IntBuffer the same shape pack.Packer consumes.
//
// Grounded on the teacher's flac.Stream/NewStream (_examples/mewkiz-flac/
// flac.go): open reads just enough of the container to populate
// queryable metadata, then each subsequent read pulls one more unit
// (there, a frame; here, a composite block of blocks) from the same
// buffered reader.
package unpack

import (
	"io"

	"github.com/go-audio/audio"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/block"
	"github.com/mewkiz/wavpack/internal/bufseekio"
)

// OpenFlags mirror the open_input flags of spec §4.10.
type OpenFlags uint32

const (
	// OpenWrapper exposes RIFF_HEADER wrapper bytes via Wrapper()
	// instead of discarding them; RIFF_TRAILER sub-blocks are not
	// collected.
	OpenWrapper OpenFlags = 1 << iota
	// OpenTwoChannelsOnly is accepted but not read by any code:
	// UnpackSamples lays out channels by out.Format.NumChannels alone.
	OpenTwoChannelsOnly
	// OpenNormalizeFloats is accepted but not read by any code:
	// decoded floats are returned unscaled.
	OpenNormalizeFloats
	// OpenStreaming makes SeekSample return a ConfigError (spec §4.10
	// "Streaming mode"); block_index is not rebased and decoding is
	// otherwise unchanged.
	OpenStreaming
	// OpenSkipChecksum skips BLOCK_CHECKSUM verification.
	OpenSkipChecksum
	// OpenDSDAsPCM is accepted but not read by any code.
	OpenDSDAsPCM
)

// Unpacker is the decode-side context of spec §4.10.
type Unpacker struct {
	rs    *bufseekio.ReadSeeker
	wvcRs *bufseekio.ReadSeeker
	wvID  string
	wvcID string
	flags OpenFlags

	numChannels   int
	channelMask   uint32
	sampleRate    uint32
	bitsPerSample int

	streams      []*stream
	blockIndex   uint32
	blockSamples uint32

	totalSamples    uint64
	samplesUnpacked uint64

	wrapper []byte
	md5sum  [16]byte
	haveMD5 bool

	atEOF bool

	blockOffsets []int64 // absolute file offset of each composite frame seen so far; SeekSample does not read it

	wvcPending *pendingWvc // buffered, not-yet-consumed wvc block read ahead of the primary stream
}

// pendingWvc buffers one wvc block read from wvcRs whose block_index
// has not yet been matched (or ruled out) against a primary block
// (spec §4.4 "correction file pairing").
type pendingWvc struct {
	header block.Header
	full   []byte
}

// OpenInput opens r (and, if wvc is non-nil, its paired correction
// stream) and reads the first frame's headers far enough to populate
// the query accessors (spec §4.10 open_input). wvID/wvcID are opaque
// caller labels, as with pack.OpenOutput.
func OpenInput(r io.ReadSeeker, wvID string, wvc io.ReadSeeker, wvcID string, flags OpenFlags) (*Unpacker, error) {
	u := &Unpacker{
		rs:    bufseekio.NewReadSeeker(r),
		wvID:  wvID,
		wvcID: wvcID,
		flags: flags,
	}
	if wvc != nil {
		u.wvcRs = bufseekio.NewReadSeeker(wvc)
	}
	if err := u.fillFrame(); err != nil && err != io.EOF {
		return nil, err
	}
	return u, nil
}

// checksumEnabled reports whether BLOCK_CHECKSUM verification should
// run for this session (spec §4.10 OpenSkipChecksum flag).
func (u *Unpacker) checksumEnabled() bool {
	return u.flags&OpenSkipChecksum == 0
}

// fillFrame reads the next composite frame (one block per stream,
// INITIAL_BLOCK..FINAL_BLOCK) and decodes it into each stream's
// outA/outB, growing u.streams on the first call. Returns io.EOF once
// the underlying reader is exhausted with no further frame found.
func (u *Unpacker) fillFrame() error {
	frameOffset := u.rs.Position()
	idx := 0
	for {
		h, magicPos, err := block.ReadNextHeader(u.rs)
		if err != nil {
			if idx == 0 {
				return io.EOF
			}
			return wavpack.Errf(wavpack.TruncatedBlock, "frame ended mid-stream: %v", err)
		}
		if idx == 0 {
			frameOffset = magicPos
		}

		payloadLen := int(h.CkSize) - (block.HeaderSize - 8)
		if payloadLen < 0 {
			return wavpack.Errf(wavpack.TruncatedBlock, "negative payload length")
		}
		full := make([]byte, block.HeaderSize+payloadLen)
		if err := h.Encode(full); err != nil {
			return err
		}
		if _, err := io.ReadFull(u.rs, full[block.HeaderSize:]); err != nil {
			return wavpack.Errf(wavpack.TruncatedBlock, "short block payload: %v", err)
		}

		mono := h.Flags&wavpack.MonoFlag != 0
		var s *stream
		if idx < len(u.streams) {
			s = u.streams[idx]
		} else {
			s = newDecodeStream(mono)
			u.streams = append(u.streams, s)
		}

		wvcPayload, err := u.wvcPayloadFor(h.BlockIndex)
		if err != nil {
			return err
		}
		if err := s.decodeBlock(h, full, wvcPayload, u.checksumEnabled()); err != nil {
			return err
		}

		if idx == 0 {
			if n, mask, err := findChannelInfo(full[block.HeaderSize:]); err == nil {
				u.numChannels, u.channelMask = n, mask
			}
			if sum, ok := findMD5(full[block.HeaderSize:]); ok {
				u.md5sum, u.haveMD5 = sum, true
			}
			if u.flags&OpenWrapper != 0 {
				if w, ok := findWrapper(full[block.HeaderSize:]); ok {
					u.wrapper = append(u.wrapper, w...)
				}
			}
			u.sampleRate = sampleRateFromFlags(h.Flags)
			u.bitsPerSample = int(h.Flags.Magnitude()) + 1
			if !h.IsUnknownTotalSamples() {
				u.totalSamples = uint64(h.TotalSamples)
			}
			u.blockIndex = h.BlockIndex
			u.blockSamples = h.BlockSamples
		}

		idx++
		if h.Flags&wavpack.FinalBlock != 0 {
			break
		}
	}
	u.blockOffsets = append(u.blockOffsets, frameOffset)
	u.samplesUnpacked += uint64(u.blockSamples)
	return nil
}

// wvcPayloadFor returns the IDWVCBitstream payload of the next wvc
// block whose block_index equals wantIndex, consuming it from wvcRs
// (buffering at most one block read-ahead). Per spec §4.4: if the
// buffered wvc block is ahead of wantIndex, this wv block has no
// correction data (returns nil, nil, matching a wv block the wvc file
// never covered); if it is behind, it is discarded and reading
// advances until the wvc stream catches up or passes. Returns nil, nil
// once wvcRs is nil or exhausted.
func (u *Unpacker) wvcPayloadFor(wantIndex uint32) ([]byte, error) {
	if u.wvcRs == nil {
		return nil, nil
	}
	for {
		if u.wvcPending == nil {
			h, _, err := block.ReadNextHeader(u.wvcRs)
			if err != nil {
				return nil, nil
			}
			payloadLen := int(h.CkSize) - (block.HeaderSize - 8)
			if payloadLen < 0 {
				return nil, wavpack.Errf(wavpack.TruncatedBlock, "wvc: negative payload length")
			}
			full := make([]byte, block.HeaderSize+payloadLen)
			if err := h.Encode(full); err != nil {
				return nil, err
			}
			if _, err := io.ReadFull(u.wvcRs, full[block.HeaderSize:]); err != nil {
				return nil, wavpack.Errf(wavpack.TruncatedBlock, "wvc: short block payload: %v", err)
			}
			u.wvcPending = &pendingWvc{header: *h, full: full}
		}

		switch {
		case u.wvcPending.header.BlockIndex == wantIndex:
			payload, _ := findSubBlockPayload(u.wvcPending.full[block.HeaderSize:], block.IDWVCBitstream)
			u.wvcPending = nil
			return payload, nil
		case u.wvcPending.header.BlockIndex < wantIndex:
			u.wvcPending = nil
			continue
		default:
			return nil, nil
		}
	}
}

func findSubBlockPayload(payload []byte, id block.SubID) ([]byte, bool) {
	for len(payload) > 0 {
		sb, n, err := block.DecodeSubBlock(payload)
		if err != nil {
			return nil, false
		}
		if sb.ID == id {
			return sb.Payload, true
		}
		payload = payload[n:]
	}
	return nil, false
}

func sampleRateFromFlags(flags wavpack.Flags) uint32 {
	idx := flags.SampleRateIndex()
	if idx < 15 {
		return wavpack.SampleRates[idx]
	}
	return 44100
}

// UnpackSamples drives the decode pipeline until compositeCount
// samples (in out, sized out.Format.NumChannels wide) have been
// produced or end-of-stream is reached (spec §4.10 unpack_samples).
func (u *Unpacker) UnpackSamples(out *audio.IntBuffer, compositeCount int) (int, error) {
	if out == nil || out.Format == nil {
		return 0, wavpack.Errf(wavpack.ConfigError, "unpack_samples: nil buffer or format")
	}
	nch := out.Format.NumChannels
	if cap(out.Data) < compositeCount*nch {
		out.Data = make([]int, compositeCount*nch)
	} else {
		out.Data = out.Data[:compositeCount*nch]
	}

	produced := 0
	for produced < compositeCount {
		if len(u.streams) == 0 || u.streams[0].cursor >= len(u.streams[0].outA) {
			if u.atEOF {
				break
			}
			if err := u.fillFrame(); err != nil {
				if err == io.EOF {
					u.atEOF = true
					break
				}
				return produced, err
			}
		}

		avail := len(u.streams[0].outA) - u.streams[0].cursor
		take := compositeCount - produced
		if take > avail {
			take = avail
		}

		for f := 0; f < take; f++ {
			base := (produced + f) * nch
			ci := 0
			for _, s := range u.streams {
				i := s.cursor + f
				out.Data[base+ci] = int(s.outA[i])
				ci++
				if !s.mono && ci < nch {
					out.Data[base+ci] = int(s.outB[i])
					ci++
				}
			}
		}
		for _, s := range u.streams {
			s.cursor += take
		}
		produced += take
	}

	out.Data = out.Data[:produced*nch]
	out.SourceBitDepth = u.bitsPerSample
	return produced, nil
}

// CloseInput releases no resources of its own (the caller owns the
// io.ReadSeeker); it exists for API symmetry with OpenInput and to
// mirror the teacher's explicit Close on its Encoder.
func (u *Unpacker) CloseInput() error { return nil }

// Query accessors, spec §4.10.

func (u *Unpacker) SampleRate() uint32  { return u.sampleRate }
func (u *Unpacker) BitsPerSample() int  { return u.bitsPerSample }
func (u *Unpacker) BytesPerSample() int { return (u.bitsPerSample + 7) / 8 }
func (u *Unpacker) NumSamples() uint64  { return u.totalSamples }
func (u *Unpacker) NumChannels() int    { return u.numChannels }
func (u *Unpacker) ChannelMask() uint32 { return u.channelMask }

func (u *Unpacker) MD5() ([16]byte, bool) { return u.md5sum, u.haveMD5 }

func (u *Unpacker) Wrapper() []byte { return u.wrapper }

func (u *Unpacker) SampleIndex() uint64 {
	if len(u.streams) == 0 {
		return 0
	}
	return u.samplesUnpacked - uint64(len(u.streams[0].outA)-u.streams[0].cursor)
}

func (u *Unpacker) LossyBlockCount() int {
	total := 0
	for _, s := range u.streams {
		total += s.lossyBlocks
	}
	return total
}

func (u *Unpacker) CRCErrorCount() int {
	total := 0
	for _, s := range u.streams {
		total += s.crcErrors
	}
	return total
}

// AverageBitrate estimates bits/second from bytes consumed so far
// relative to samples decoded; callers needing a precise figure
// should track byte counts themselves via a counting io.Reader.
func (u *Unpacker) AverageBitrate() float64 {
	if u.samplesUnpacked == 0 || u.sampleRate == 0 {
		return 0
	}
	pos := u.rs.Position()
	seconds := float64(u.samplesUnpacked) / float64(u.sampleRate)
	return float64(pos) * 8 / seconds
}

// Ratio reports the compressed-to-uncompressed size ratio so far.
func (u *Unpacker) Ratio() float64 {
	if u.samplesUnpacked == 0 {
		return 0
	}
	uncompressed := u.samplesUnpacked * uint64(u.numChannels) * uint64(u.BytesPerSample())
	if uncompressed == 0 {
		return 0
	}
	return float64(u.rs.Position()) / float64(uncompressed)
}

func findChannelInfo(payload []byte) (numChannels int, mask uint32, err error) {
	for len(payload) > 0 {
		sb, n, derr := block.DecodeSubBlock(payload)
		if derr != nil {
			return 0, 0, derr
		}
		if sb.ID == block.IDChannelInfo {
			return decodeChannelInfo(sb.Payload)
		}
		payload = payload[n:]
	}
	return 0, 0, wavpack.Errf(wavpack.MalformedMetadata, "no IDChannelInfo sub-block")
}

func findMD5(payload []byte) ([16]byte, bool) {
	var out [16]byte
	for len(payload) > 0 {
		sb, n, err := block.DecodeSubBlock(payload)
		if err != nil {
			return out, false
		}
		if sb.ID == block.IDMD5Checksum && len(sb.Payload) == 16 {
			copy(out[:], sb.Payload)
			return out, true
		}
		payload = payload[n:]
	}
	return out, false
}

func findWrapper(payload []byte) ([]byte, bool) {
	for len(payload) > 0 {
		sb, n, err := block.DecodeSubBlock(payload)
		if err != nil {
			return nil, false
		}
		if sb.ID == block.IDRIFFHeader {
			return sb.Payload, true
		}
		payload = payload[n:]
	}
	return nil, false
}
