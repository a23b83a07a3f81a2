package bitstream

import "testing"

func TestBitsRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.PutBits(0x3, 2); err != nil {
		t.Fatal(err)
	}
	if err := w.PutBits(0x2A, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r := NewReader(w.Bytes())
	a, err := r.GetBits(2)
	if err != nil || a != 0x3 {
		t.Fatalf("got (%d,%v), want (3,nil)", a, err)
	}
	b, err := r.GetBits(7)
	if err != nil || b != 0x2A {
		t.Fatalf("got (%d,%v), want (0x2A,nil)", b, err)
	}
}

func TestUnaryRoundTrip(t *testing.T) {
	for _, x := range []uint{0, 1, 2, 3, 5} {
		w := NewWriter()
		if err := w.PutUnary(x, 8); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Close(); err != nil {
			t.Fatal(err)
		}
		r := NewReader(w.Bytes())
		got, err := r.GetUnary(8)
		if err != nil {
			t.Fatal(err)
		}
		if got != x {
			t.Errorf("PutUnary(%d)/GetUnary: got %d", x, got)
		}
	}
}

func TestUnarySaturatesAtCeiling(t *testing.T) {
	w := NewWriter()
	if err := w.PutUnary(10, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r := NewReader(w.Bytes())
	got, err := r.GetUnary(3)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("got %d, want 3 (saturated)", got)
	}
}

func TestSignedRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.PutSigned(-1); err != nil {
		t.Fatal(err)
	}
	if err := w.PutSigned(1); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r := NewReader(w.Bytes())
	neg, err := r.GetSigned(7)
	if err != nil || neg != -7 {
		t.Fatalf("got (%d,%v), want (-7,nil)", neg, err)
	}
	pos, err := r.GetSigned(7)
	if err != nil || pos != 7 {
		t.Fatalf("got (%d,%v), want (7,nil)", pos, err)
	}
}

func TestCloseRoundsToEvenBytes(t *testing.T) {
	w := NewWriter()
	if err := w.PutBits(0x1, 1); err != nil {
		t.Fatal(err)
	}
	n, err := w.Close()
	if err != nil {
		t.Fatal(err)
	}
	if n%2 != 0 {
		t.Fatalf("Close returned odd byte count %d", n)
	}
	if len(w.Bytes()) != n {
		t.Fatalf("Bytes() len %d != Close() count %d", len(w.Bytes()), n)
	}
}
