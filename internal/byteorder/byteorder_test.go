package byteorder

import (
	"encoding/binary"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	c, err := New("4LLSS2")
	if err != nil {
		t.Fatal(err)
	}
	if c.Size() != 4+4+4+2+2+2 {
		t.Fatalf("unexpected size %d", c.Size())
	}
	buf := make([]byte, c.Size())
	in := []uint64{0x61626364, 1234, 5678, 9, 10}
	if err := c.Encode(buf, binary.LittleEndian, in); err != nil {
		t.Fatal(err)
	}
	out, err := c.Decode(buf, binary.LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d values, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("field %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestCodecShortBuffer(t *testing.T) {
	c, err := New("LL")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(make([]byte, 4), binary.LittleEndian); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestCodecInvalidFormat(t *testing.T) {
	if _, err := New("LX"); err == nil {
		t.Fatal("expected error for invalid format character")
	}
}
