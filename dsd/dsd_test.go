package dsd

import (
	"testing"

	"github.com/mewkiz/wavpack/internal/crc"
)

func TestMultiplier(t *testing.T) {
	cases := []struct {
		power uint8
		want  uint32
	}{{0, 1}, {1, 2}, {3, 8}, {6, 64}}
	for _, c := range cases {
		if got := Multiplier(c.power); got != c.want {
			t.Fatalf("Multiplier(%d) = %d, want %d", c.power, got, c.want)
		}
	}
}

func TestRawRoundTrip(t *testing.T) {
	samples := []int32{0, 1, 0x55, 0xaa, 255, 128, 3, 7}
	packed := make([]byte, len(samples))
	EncodeRaw(packed, samples, crc.NewAudio())

	dst := make([]int32, len(samples))
	n, _ := DecodeRaw(dst, packed, crc.NewAudio())
	if n != len(samples) {
		t.Fatalf("DecodeRaw consumed %d bytes, want %d", n, len(samples))
	}
	for i, want := range samples {
		if dst[i] != want {
			t.Fatalf("sample %d: got %d, want %d", i, dst[i], want)
		}
	}
}

func TestRawCRCMatchesBothDirections(t *testing.T) {
	samples := []int32{10, 20, 30, 40, 50}
	packed := make([]byte, len(samples))
	encCRC := EncodeRaw(packed, samples, crc.NewAudio())

	dst := make([]int32, len(samples))
	_, decCRC := DecodeRaw(dst, packed, crc.NewAudio())
	if encCRC != decCRC {
		t.Fatalf("CRC mismatch: encode %x, decode %x", uint32(encCRC), uint32(decCRC))
	}
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	h := BlockHeader{Power: 3, Mode: ModeFast}
	data := append(EncodeBlockHeader(h), 1, 2, 3)

	got, rest, err := ParseBlockHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
	if len(rest) != 3 || rest[0] != 1 {
		t.Fatalf("unexpected remaining payload %v", rest)
	}
}

func TestParseBlockHeaderRejectsUnknownMode(t *testing.T) {
	if _, _, err := ParseBlockHeader([]byte{0, 3}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

// uniformFastTable builds a small, fully-used probability table
// shared by every history bin: four symbols (0..3) each equally
// likely. Encode/decode both alternate bins via code&(historyBins-1),
// and every symbol present is nonzero in every bin, so any sequence
// of 0..3 round-trips.
func uniformFastTable(historyBins int) [][256]byte {
	table := make([][256]byte, historyBins)
	for bin := range table {
		table[bin][0] = 100
		table[bin][1] = 100
		table[bin][2] = 100
		table[bin][3] = 100
	}
	return table
}

func TestFastModeRoundTripMono(t *testing.T) {
	const historyBits = 1
	table := uniformFastTable(1 << historyBits)
	codes := []int32{0, 1, 2, 3, 3, 2, 1, 0, 0, 0, 3, 1, 2, 2, 1, 3, 0, 2, 1, 3}

	body, err := EncodeFast(codes, historyBits, table, true)
	if err != nil {
		t.Fatalf("EncodeFast: %v", err)
	}
	payload := append(EncodeFastTable(historyBits, table), body...)

	dec, err := NewFastDecoder(payload, true)
	if err != nil {
		t.Fatalf("NewFastDecoder: %v", err)
	}

	dst := make([]int32, len(codes))
	if _, err := dec.DecodeFast(dst, crc.NewAudio()); err != nil {
		t.Fatalf("DecodeFast: %v", err)
	}
	for i, want := range codes {
		if dst[i] != want {
			t.Fatalf("sample %d: got %d, want %d", i, dst[i], want)
		}
	}
}

func TestFastModeRoundTripStereo(t *testing.T) {
	const historyBits = 2
	table := uniformFastTable(1 << historyBits)
	// Interleaved L,R,L,R,...
	codes := []int32{0, 1, 1, 2, 2, 3, 3, 0, 0, 0, 1, 1, 2, 3, 3, 2}

	body, err := EncodeFast(codes, historyBits, table, false)
	if err != nil {
		t.Fatalf("EncodeFast: %v", err)
	}
	payload := append(EncodeFastTable(historyBits, table), body...)

	dec, err := NewFastDecoder(payload, false)
	if err != nil {
		t.Fatalf("NewFastDecoder: %v", err)
	}

	dst := make([]int32, len(codes))
	if _, err := dec.DecodeFast(dst, crc.NewAudio()); err != nil {
		t.Fatalf("DecodeFast: %v", err)
	}
	for i, want := range codes {
		if dst[i] != want {
			t.Fatalf("sample %d: got %d, want %d", i, dst[i], want)
		}
	}
}

func TestHighModeRoundTripMono(t *testing.T) {
	filters := []Filters{newFiltersFromHeader([]byte{10, 20, 30, 40, 50, 0, 0})}
	codes := []int32{0x00, 0xff, 0x55, 0xaa, 0x3c, 0xc3, 0x01, 0x80}

	// EncodeFiltersHeader must capture the preset before EncodeHigh
	// adapts filters in place.
	header := append([]byte{20, rateS}, EncodeFiltersHeader(filters)...)

	body, err := EncodeHigh(codes, 20, rateS, filters, true)
	if err != nil {
		t.Fatalf("EncodeHigh: %v", err)
	}

	payload := append(header, body...)

	dec, err := NewHighDecoder(payload, true)
	if err != nil {
		t.Fatalf("NewHighDecoder: %v", err)
	}

	dst := make([]int32, len(codes))
	if _, err := dec.DecodeHigh(dst, crc.NewAudio()); err != nil {
		t.Fatalf("DecodeHigh: %v", err)
	}
	for i, want := range codes {
		if dst[i] != want {
			t.Fatalf("sample %d: got 0x%02x, want 0x%02x", i, dst[i], want)
		}
	}
}

func TestHighModeRoundTripStereo(t *testing.T) {
	filters := []Filters{
		newFiltersFromHeader([]byte{5, 10, 15, 20, 25, 0, 0}),
		newFiltersFromHeader([]byte{6, 11, 16, 21, 26, 0, 0}),
	}
	codes := []int32{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}

	header := append([]byte{15, rateS}, EncodeFiltersHeader(filters)...)

	body, err := EncodeHigh(codes, 15, rateS, filters, false)
	if err != nil {
		t.Fatalf("EncodeHigh: %v", err)
	}

	payload := append(header, body...)

	dec, err := NewHighDecoder(payload, false)
	if err != nil {
		t.Fatalf("NewHighDecoder: %v", err)
	}

	dst := make([]int32, len(codes))
	if _, err := dec.DecodeHigh(dst, crc.NewAudio()); err != nil {
		t.Fatalf("DecodeHigh: %v", err)
	}
	for i, want := range codes {
		if dst[i] != want {
			t.Fatalf("sample %d: got 0x%02x, want 0x%02x", i, dst[i], want)
		}
	}
}
