package block

import (
	"bytes"
	"testing"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/internal/bufseekio"
	"github.com/mewkiz/wavpack/internal/crc"
)

// crcBlockFold returns the 2-byte on-wire BLOCK_CHECKSUM payload for
// data, matching the fold VerifyBlock expects.
func crcBlockFold(data []byte) []byte {
	c := crc.Block16(crc.Block(data))
	return []byte{byte(c), byte(c >> 8)}
}

func sampleHeader() *Header {
	return &Header{
		CkSize:       24 + 4,
		Version:      0x0410,
		BlockSamples: 100,
		Flags:        wavpack.InitialBlock | wavpack.FinalBlock,
	}
}

func encodeBlock(t *testing.T, h *Header, extra []byte) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize)
	if err := h.Encode(buf); err != nil {
		t.Fatal(err)
	}
	return append(buf, extra...)
}

func TestReadNextHeaderFindsImmediateBlock(t *testing.T) {
	h := sampleHeader()
	raw := encodeBlock(t, h, nil)
	rs := bufseekio.NewReadSeeker(bytes.NewReader(raw))
	got, pos, err := ReadNextHeader(rs)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Fatalf("pos = %d, want 0", pos)
	}
	if got.BlockSamples != h.BlockSamples || got.Flags != h.Flags {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestReadNextHeaderSkipsLeadingGarbage(t *testing.T) {
	h := sampleHeader()
	garbage := bytes.Repeat([]byte{0xAA}, 777)
	raw := append(garbage, encodeBlock(t, h, nil)...)
	rs := bufseekio.NewReadSeeker(bytes.NewReader(raw))
	got, pos, err := ReadNextHeader(rs)
	if err != nil {
		t.Fatal(err)
	}
	if pos != int64(len(garbage)) {
		t.Fatalf("pos = %d, want %d", pos, len(garbage))
	}
	if got.BlockSamples != h.BlockSamples {
		t.Fatalf("got %+v", got)
	}
}

func TestReadNextHeaderSkipsFalsePositiveMagic(t *testing.T) {
	h := sampleHeader()
	// Plant a bogus "wvpk" followed by garbage that fails sanityCheck,
	// before the real block.
	fake := append([]byte("wvpk"), bytes.Repeat([]byte{0xFF}, 28)...)
	raw := append(fake, encodeBlock(t, h, nil)...)
	rs := bufseekio.NewReadSeeker(bytes.NewReader(raw))
	got, pos, err := ReadNextHeader(rs)
	if err != nil {
		t.Fatal(err)
	}
	if pos != int64(len(fake)) {
		t.Fatalf("pos = %d, want %d", pos, len(fake))
	}
	if got.BlockSamples != h.BlockSamples {
		t.Fatalf("got %+v", got)
	}
}

func TestReadNextHeaderGivesUpPastResyncWindow(t *testing.T) {
	garbage := bytes.Repeat([]byte{0x00}, ResyncWindow+2)
	rs := bufseekio.NewReadSeeker(bytes.NewReader(garbage))
	if _, _, err := ReadNextHeader(rs); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestVerifyBlockAcceptsValidChecksum(t *testing.T) {
	h := sampleHeader()
	h.Flags |= wavpack.HasChecksum
	headerBuf := make([]byte, HeaderSize)
	if err := h.Encode(headerBuf); err != nil {
		t.Fatal(err)
	}
	other, _ := EncodeSubBlock(IDDecorrTerms, []byte{1, 2, 3})
	covered := append(append([]byte(nil), headerBuf...), other...)
	csum := crcBlockFold(covered)
	checksumSub, _ := EncodeSubBlock(IDBlockChecksum, csum)
	full := append(append([]byte(nil), covered...), checksumSub...)

	subBlocks, err := DecodeAllSubBlocks(full[HeaderSize:])
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyBlock(h, full, subBlocks); err != nil {
		t.Fatalf("VerifyBlock: %v", err)
	}
}

func TestVerifyBlockRejectsTamperedBytes(t *testing.T) {
	h := sampleHeader()
	h.Flags |= wavpack.HasChecksum
	headerBuf := make([]byte, HeaderSize)
	if err := h.Encode(headerBuf); err != nil {
		t.Fatal(err)
	}
	other, _ := EncodeSubBlock(IDDecorrTerms, []byte{1, 2, 3})
	covered := append(append([]byte(nil), headerBuf...), other...)
	csum := crcBlockFold(covered)
	checksumSub, _ := EncodeSubBlock(IDBlockChecksum, csum)
	full := append(append([]byte(nil), covered...), checksumSub...)
	full[HeaderSize+2] ^= 0xFF

	subBlocks, err := DecodeAllSubBlocks(full[HeaderSize:])
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyBlock(h, full, subBlocks); err == nil {
		t.Fatal("expected checksum mismatch")
	}
}

func TestVerifyBlockRequiresSubBlockWhenFlagSet(t *testing.T) {
	h := sampleHeader()
	h.Flags |= wavpack.HasChecksum
	full := encodeBlock(t, h, nil)
	if err := VerifyBlock(h, full, nil); err == nil {
		t.Fatal("expected mismatch when HasChecksum set but no sub-block present")
	}
}
