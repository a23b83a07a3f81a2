package unpack

import (
	"bytes"
	"io"
	"testing"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/block"
)

func TestOpenInputOnEmptyStreamYieldsNoChannels(t *testing.T) {
	// A stream too short to contain even one header looks like a
	// cleanly empty file to open_input rather than a fatal error
	// (fillFrame treats an immediate io.EOF on the first block as "no
	// data", not malformed input).
	u, err := OpenInput(bytes.NewReader([]byte("wvpk\x00\x00")), "t.wv", nil, "", 0)
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	if got := u.NumChannels(); got != 0 {
		t.Fatalf("NumChannels() = %d, want 0 on an empty stream", got)
	}
}

func TestChecksumEnabledDefaultsOn(t *testing.T) {
	u := &Unpacker{}
	if !u.checksumEnabled() {
		t.Fatalf("checksumEnabled() = false by default, want true")
	}
	u.flags = OpenSkipChecksum
	if u.checksumEnabled() {
		t.Fatalf("checksumEnabled() = true with OpenSkipChecksum set, want false")
	}
}

func TestSeekSampleStreamingModeRejected(t *testing.T) {
	u := &Unpacker{flags: OpenStreaming}
	err := u.SeekSample(0)
	if err == nil {
		t.Fatalf("expected an error seeking in streaming mode, got nil")
	}
	werr, ok := err.(*wavpack.Error)
	if !ok {
		t.Fatalf("err is %T, want *wavpack.Error", err)
	}
	if werr.Kind != wavpack.ConfigError {
		t.Fatalf("err.Kind = %v, want ConfigError", werr.Kind)
	}
}

func TestDecodeCorrectionNilPayload(t *testing.T) {
	corrA, corrB := decodeCorrection(nil, 10, true)
	if corrA != nil || corrB != nil {
		t.Fatalf("decodeCorrection(nil, ...) = %v, %v, want nil, nil", corrA, corrB)
	}
}

func TestMuteFillsZerosAndCountsCRCError(t *testing.T) {
	s := newDecodeStream(false)
	if err := s.mute(128, io.ErrUnexpectedEOF); err != nil {
		t.Fatalf("mute returned an error: %v", err)
	}
	if len(s.outA) != 128 || len(s.outB) != 128 {
		t.Fatalf("mute filled %d/%d samples, want 128/128", len(s.outA), len(s.outB))
	}
	for i, v := range s.outA {
		if v != 0 {
			t.Fatalf("outA[%d] = %d, want 0", i, v)
		}
	}
	if s.crcErrors != 1 {
		t.Fatalf("crcErrors = %d, want 1", s.crcErrors)
	}
	if !s.muted {
		t.Fatalf("muted = false, want true")
	}
	if s.state != stateSamplesAvailable {
		t.Fatalf("state = %v, want stateSamplesAvailable", s.state)
	}
}

func TestDecodeBlockMutesOnCorruptMetadata(t *testing.T) {
	s := newDecodeStream(true)
	h := &block.Header{
		Version:      wavpack.MaxStreamVers,
		BlockIndex:   0,
		BlockSamples: 8,
		Flags:        wavpack.Flags(0).WithBytesPerSample(2).WithMagnitude(15),
	}
	// An empty payload is missing every required sub-block, which must
	// mute rather than propagate an error (spec §4.10 MUTE transition).
	full := make([]byte, 32)
	if err := h.Encode(full); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := s.decodeBlock(h, full, nil, false); err != nil {
		t.Fatalf("decodeBlock returned an error instead of muting: %v", err)
	}
	if !s.muted {
		t.Fatalf("muted = false, want true after corrupt metadata")
	}
	if len(s.outA) != 8 {
		t.Fatalf("outA length = %d, want 8", len(s.outA))
	}
}
