// Package pack implements the WavPack encoder of spec §4.9: Packer
// accumulates interleaved PCM (or float) samples into per-stream
// buffers, drives them through decorr/entropy/floatext, and emits
// complete on-wire blocks through a caller-supplied callback.
//
// Grounded on the teacher's flac.Encoder (_examples/mewkiz-flac/enc.go,
// encode.go): a constructor that validates configuration and opens the
// output, a per-sample accumulation/flush loop, and a final patch-up
// pass over the already-written first block once the true sample count
// is known (Encoder.Close rewrites StreamInfo; Packer.UpdateNumSamples
// rewrites the WavPack header the same way, just without needing a
// seekable writer since the caller re-supplies the bytes directly).
package pack

import (
	"github.com/go-audio/audio"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/block"
	"github.com/mewkiz/wavpack/internal/crc"
)

// BlockOutputFunc receives one fully formed WavPack block per call
// (spec §4.9); returning false aborts the encode, mirroring the
// reference's block_output_fn.
type BlockOutputFunc func(blk []byte) bool

// Packer is the encode-side context of spec §4.9. One Packer drives
// one logical audio stream (which may internally fan out into several
// 1- or 2-channel wavpack streams for >2 channel configurations).
type Packer struct {
	wvOut  BlockOutputFunc
	wvcOut BlockOutputFunc
	wvID   string
	wvcID  string

	cfg          wavpack.Config
	configured   bool
	totalSamples uint64 // 0xFFFFFFFFFFFFFFFF means "unknown until UpdateNumSamples"
	haveTotal    bool

	wrapper []byte

	version          uint16
	trackNo, indexNo uint8

	blockSamples   uint32
	blockIndex     uint32
	samplesWritten uint64

	streams []*stream

	firstBlockBytes []byte
}

// OpenOutput returns a Packer that will hand finished blocks to wvOut
// (and, if non-nil, hybrid correction blocks to wvcOut). wvID/wvcID
// are opaque labels a caller may use in its own logging; the core
// never inspects them (spec §4.9 open_output).
func OpenOutput(wvOut BlockOutputFunc, wvID string, wvcOut BlockOutputFunc, wvcID string) *Packer {
	return &Packer{
		wvOut:   wvOut,
		wvcOut:  wvcOut,
		wvID:    wvID,
		wvcID:   wvcID,
		version: wavpack.MaxStreamVers,
	}
}

// SetConfiguration validates cfg (wavpack.Config.Validate, plus the
// ≤2×MaxStreams channel ceiling it already enforces) and records
// totalSamples for the eventual header; 0 means "unknown at open,
// patched later via UpdateNumSamples" (spec §4.9 set_configuration).
func (p *Packer) SetConfiguration(cfg wavpack.Config, totalSamples uint64) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if totalSamples > wavpack.MaxWavpackSamples {
		return wavpack.Errf(wavpack.ConfigError, "total_samples %d exceeds MaxWavpackSamples", totalSamples)
	}
	p.cfg = cfg
	p.haveTotal = totalSamples != 0
	if p.haveTotal {
		p.totalSamples = totalSamples
	} else {
		p.totalSamples = 0xFFFFFFFFFFFFFFFF // unknown, patched later by UpdateNumSamples
	}
	p.configured = true
	return nil
}

// AddWrapper stashes opaque wrapper bytes (e.g. a RIFF header or
// trailer) to be emitted as a RIFF_HEADER metadata sub-block on the
// next emitted block; no RIFF_TRAILER sub-block is ever written, so
// trailer bytes also go out as RIFF_HEADER. Capped at MaxWrapperBytes
// (spec §4.9 add_wrapper, §5 "grow append-only up to a cap").
func (p *Packer) AddWrapper(data []byte) error {
	if len(p.wrapper)+len(data) > wavpack.MaxWrapperBytes {
		return wavpack.Errf(wavpack.BufferOverflow, "wrapper buffer would exceed %d bytes", wavpack.MaxWrapperBytes)
	}
	p.wrapper = append(p.wrapper, data...)
	return nil
}

// PackInit computes block_samples (spec §4.9: default sample_rate/2,
// adjusted so the composite per-block sample count stays within
// [40000, 150000]) and allocates the per-stream encode state.
func (p *Packer) PackInit() error {
	if !p.configured {
		return wavpack.Errf(wavpack.ConfigError, "pack_init called before set_configuration")
	}

	const minComposite = 40000
	const maxComposite = 150000

	bs := p.cfg.SampleRate / 2
	if bs == 0 {
		bs = 1
	}
	for uint64(bs) > maxComposite {
		bs /= 2
		if bs == 0 {
			bs = 1
			break
		}
	}
	for uint64(bs) < minComposite {
		next := bs * 2
		if next == bs || uint64(next) > maxComposite {
			break
		}
		bs = next
	}
	p.blockSamples = bs

	n := p.cfg.NumChannels
	p.streams = p.streams[:0]
	for i := 0; i < n; i += 2 {
		mono := i+1 >= n
		p.streams = append(p.streams, newStream(&p.cfg, mono))
	}
	return nil
}

// PackSamples accumulates buf's interleaved samples into per-stream
// buffers, flushing full blocks to wvOut (and wvcOut) as they fill
// (spec §4.9 pack_samples). buf.Format.NumChannels must equal the
// configured channel count; buf.Data holds one int per sample, with
// Config.FloatData samples carried as math.Float32bits bit patterns
// rather than numeric values (audio.IntBuffer has no float32 field).
func (p *Packer) PackSamples(buf *audio.IntBuffer) (int, error) {
	if buf == nil || buf.Format == nil {
		return 0, wavpack.Errf(wavpack.ConfigError, "pack_samples: nil buffer or format")
	}
	if buf.Format.NumChannels != p.cfg.NumChannels {
		return 0, wavpack.Errf(wavpack.ConfigError, "pack_samples: buffer has %d channels, configured for %d", buf.Format.NumChannels, p.cfg.NumChannels)
	}

	frames := buf.NumFrames()
	nch := p.cfg.NumChannels
	for f := 0; f < frames; f++ {
		base := f * nch
		for si, s := range p.streams {
			ca := base + 2*si
			s.accA = append(s.accA, int32(buf.Data[ca]))
			if !s.mono {
				s.accB = append(s.accB, int32(buf.Data[ca+1]))
			}
		}
		p.samplesWritten++

		if uint32(len(p.streams[0].accA)) >= p.blockSamples {
			if err := p.emitFrame(false); err != nil {
				return f + 1, err
			}
		}
	}
	return frames, nil
}

// FlushSamples emits any partially accumulated block (spec §4.9
// flush_samples), padding is unnecessary since encodeBlock derives
// BlockSamples from the buffer length actually accumulated.
func (p *Packer) FlushSamples() error {
	if len(p.streams) == 0 || len(p.streams[0].accA) == 0 {
		return nil
	}
	return p.emitFrame(true)
}

// emitFrame encodes one block per stream (sharing block_index and
// block_samples per spec §4.4/§5) and delivers them in channel order.
func (p *Packer) emitFrame(final bool) error {
	n := len(p.streams)
	for i, s := range p.streams {
		initial := i == 0
		isLast := final && i == n-1
		wv, wvc, err := s.encodeBlock(p, p.blockIndex, initial, isLast)
		if err != nil {
			return err
		}
		if len(p.wrapper) > 0 && initial {
			wv, err = prependWrapper(wv, p.wrapper)
			if err != nil {
				return err
			}
			p.wrapper = nil
		}
		if i == 0 {
			p.firstBlockBytes = append([]byte(nil), wv...)
		}
		if !p.wvOut(wv) {
			return wavpack.Errf(wavpack.WriteFailure, "block_output_fn aborted encode")
		}
		if wvc != nil && p.wvcOut != nil {
			if !p.wvcOut(wvc) {
				return wavpack.Errf(wavpack.WriteFailure, "wvc block_output_fn aborted encode")
			}
		}
	}
	p.blockIndex += uint32(len(p.streams[0].accA))
	return nil
}

// prependWrapper re-encodes blk with an extra RIFF_HEADER sub-block
// carrying wrapper in front of the existing payload, adjusting CkSize.
func prependWrapper(blk []byte, wrapper []byte) ([]byte, error) {
	wire, err := block.EncodeSubBlock(block.IDRIFFHeader, wrapper)
	if err != nil {
		return nil, err
	}
	h, err := block.Decode(blk[4:block.HeaderSize])
	if err != nil {
		return nil, err
	}
	h.CkSize += uint32(len(wire))

	out := make([]byte, block.HeaderSize+len(wire)+len(blk)-block.HeaderSize)
	if err := h.Encode(out); err != nil {
		return nil, err
	}
	copy(out[block.HeaderSize:], wire)
	copy(out[block.HeaderSize+len(wire):], blk[block.HeaderSize:])
	return out, nil
}

// UpdateNumSamples patches firstBlockBytes in place with the final
// total_samples count and recomputes the block checksum (spec §4.9
// update_num_samples), mirroring how the teacher's Encoder.Close
// rewrites the StreamInfo block once the true MD5/sample-count is
// known — except here the caller owns the bytes directly (no
// io.WriteSeeker involved) so the rewrite happens in memory and the
// caller is responsible for re-delivering them to storage.
func (p *Packer) UpdateNumSamples(firstBlockBytes []byte) error {
	if len(firstBlockBytes) < block.HeaderSize {
		return wavpack.Errf(wavpack.TruncatedBlock, "update_num_samples: block shorter than header")
	}
	h, err := block.Decode(firstBlockBytes[4:block.HeaderSize])
	if err != nil {
		return err
	}
	total := p.samplesWritten
	if total > 0xFFFFFFFF {
		total = 0xFFFFFFFF
	}
	h.TotalSamples = uint32(total)
	if err := h.Encode(firstBlockBytes); err != nil {
		return err
	}

	if h.Flags&wavpack.HasChecksum != 0 {
		payload := firstBlockBytes[block.HeaderSize:]
		off := block.HeaderSize
		for len(payload) > 0 {
			sb, n, err := block.DecodeSubBlock(payload)
			if err != nil {
				return err
			}
			if sb.ID == block.IDBlockChecksum {
				sum := crc.Block(firstBlockBytes[:off])
				headerLen := 2
				if payload[0]&0x80 != 0 {
					headerLen = 4
				}
				po := off + headerLen
				if len(sb.Payload) == 2 {
					b16 := crc.Block16(sum)
					firstBlockBytes[po+0] = byte(b16)
					firstBlockBytes[po+1] = byte(b16 >> 8)
				} else {
					firstBlockBytes[po+0] = byte(sum)
					firstBlockBytes[po+1] = byte(sum >> 8)
					firstBlockBytes[po+2] = byte(sum >> 16)
					firstBlockBytes[po+3] = byte(sum >> 24)
				}
				break
			}
			payload = payload[n:]
			off += n
		}
	}
	return nil
}
