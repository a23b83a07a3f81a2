package block

import (
	"bytes"
	"testing"
)

func TestSubBlockRoundTripEvenPayload(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	buf, err := EncodeSubBlock(IDDecorrTerms, payload)
	if err != nil {
		t.Fatal(err)
	}
	sb, n, err := DecodeSubBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if sb.ID != IDDecorrTerms || !bytes.Equal(sb.Payload, payload) {
		t.Fatalf("got %+v", sb)
	}
}

func TestSubBlockRoundTripOddPayload(t *testing.T) {
	payload := []byte{1, 2, 3}
	buf, err := EncodeSubBlock(IDEncoderInfo, payload)
	if err != nil {
		t.Fatal(err)
	}
	if buf[0]&oddSizeBit == 0 {
		t.Fatal("expected ODD-SIZE bit set")
	}
	sb, n, err := DecodeSubBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !bytes.Equal(sb.Payload, payload) {
		t.Fatalf("got %v, want %v", sb.Payload, payload)
	}
}

func TestSubBlockRoundTripLargePayload(t *testing.T) {
	payload := make([]byte, 600)
	for i := range payload {
		payload[i] = byte(i)
	}
	buf, err := EncodeSubBlock(IDWVBitstream, payload)
	if err != nil {
		t.Fatal(err)
	}
	if buf[0]&largeBit == 0 {
		t.Fatal("expected LARGE bit set")
	}
	sb, n, err := DecodeSubBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !bytes.Equal(sb.Payload, payload) {
		t.Fatal("large payload mismatch")
	}
}

func TestSubBlockZeroLengthOddSizeRejected(t *testing.T) {
	buf := []byte{byte(IDDummy) | oddSizeBit, 0}
	if _, _, err := DecodeSubBlock(buf); err == nil {
		t.Fatal("expected error for zero-length ODD-SIZE sub-block")
	}
}

func TestSubBlockTruncatedPayloadRejected(t *testing.T) {
	buf := []byte{byte(IDDecorrWeights), 5, 1, 2}
	if _, _, err := DecodeSubBlock(buf); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestDecodeAllSubBlocksConcatenates(t *testing.T) {
	a, _ := EncodeSubBlock(IDDecorrTerms, []byte{1, 2})
	b, _ := EncodeSubBlock(IDEntropyVars, []byte{3})
	buf := append(append([]byte(nil), a...), b...)
	sbs, err := DecodeAllSubBlocks(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(sbs) != 2 || sbs[0].ID != IDDecorrTerms || sbs[1].ID != IDEntropyVars {
		t.Fatalf("got %+v", sbs)
	}
}

func TestOptionalBitDistinguishesBlockChecksum(t *testing.T) {
	if !IDBlockChecksum.IsOptional() {
		t.Fatal("IDBlockChecksum must carry the OPTIONAL bit")
	}
	if IDDecorrTerms.IsOptional() {
		t.Fatal("IDDecorrTerms must not carry the OPTIONAL bit")
	}
}
