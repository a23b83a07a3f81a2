// Package bitstream implements the bit-level I/O primitives of
// spec §4.2 with no file I/O: Reader reads a caller-supplied byte
// slice, and Writer appends to a buffer it grows itself. Bits are
// packed most-significant first within each byte (bitio's order), not
// least-significant first.
//
// The bit-packing core is github.com/icza/bitio, the same library the
// teacher wraps in internal/bits for its own Rice-coded residuals
// (enc_subframe.go, encode_subframe.go). bitio is forward-only and
// io.Reader/io.Writer-based; it has no notion of a caller-owned
// [begin,end) slice or of the WavPack close-time even-byte-padding
// rule (original_source/src/bits.c: bs_close_write pads with 1-bits,
// not zeros, until the byte count is even), so Reader here wraps it
// over a caller-owned slice and Writer adds that padding rule, instead
// of reaching for bitio.Reader/Writer directly at every call site.
package bitstream

import (
	"bytes"

	"github.com/icza/bitio"
	"github.com/mewkiz/pkg/errutil"
)

// Reader decodes a bit stream (most-significant bit of each byte
// first) from a bounded byte slice.
type Reader struct {
	br  *bitio.Reader
	src *bytes.Reader
}

// NewReader returns a Reader over buf. buf is not retained after the
// *bytes.Reader wrapping it is exhausted; Reader performs no I/O of
// its own.
func NewReader(buf []byte) *Reader {
	src := bytes.NewReader(buf)
	return &Reader{br: bitio.NewReader(src), src: src}
}

// GetBit reads a single bit.
func (r *Reader) GetBit() (uint64, error) {
	return r.br.ReadBits(1)
}

// GetBits reads n bits (n <= 64) and returns them as an unsigned
// value in 0..2^n-1, the first bit read being the most significant.
func (r *Reader) GetBits(n uint) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	return r.br.ReadBits(uint8(n))
}

// GetUnary decodes a unary code: the number of leading 1-bits before a
// terminating 0-bit, bounded by ceiling. If ceiling consecutive 1-bits
// are read without a terminator, GetUnary returns (ceiling, nil)
// without consuming a terminating bit, signalling the caller to switch
// to a follow-on code (spec §4.6, k==3 escape).
func (r *Reader) GetUnary(ceiling uint) (uint, error) {
	var count uint
	for count < ceiling {
		bit, err := r.br.ReadBits(1)
		if err != nil {
			return count, err
		}
		if bit == 0 {
			return count, nil
		}
		count++
	}
	return count, nil
}

// GetSigned reads a single sign bit and applies it to mag, per the
// sign-magnitude convention of §4.6 (the magnitude itself is decoded
// separately, by the entropy coder's median-refinement bits).
func (r *Reader) GetSigned(mag uint64) (int64, error) {
	bit, err := r.br.ReadBits(1)
	if err != nil {
		return 0, err
	}
	if bit != 0 {
		return -int64(mag), nil
	}
	return int64(mag), nil
}

// Writer encodes a bit stream (most-significant bit of each byte
// first) into an internal growable buffer.
type Writer struct {
	bw    *bitio.Writer
	buf   *bytes.Buffer
	nbits uint64
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	buf := new(bytes.Buffer)
	return &Writer{bw: bitio.NewWriter(buf), buf: buf}
}

// PutBit writes a single bit (0 or 1).
func (w *Writer) PutBit(bit uint64) error {
	if err := w.bw.WriteBits(bit&1, 1); err != nil {
		return errutil.Err(err)
	}
	w.nbits++
	return nil
}

// PutBits writes the low n bits of v.
func (w *Writer) PutBits(v uint64, n uint) error {
	if n == 0 {
		return nil
	}
	if err := w.bw.WriteBits(v, uint8(n)); err != nil {
		return errutil.Err(err)
	}
	w.nbits += uint64(n)
	return nil
}

// PutUnary encodes x as x 1-bits followed by a terminating 0-bit,
// unless x >= ceiling, in which case it writes exactly ceiling 1-bits
// with no terminator (the caller then emits a follow-on code).
func (w *Writer) PutUnary(x, ceiling uint) error {
	n := x
	if n > ceiling {
		n = ceiling
	}
	for i := uint(0); i < n; i++ {
		if err := w.PutBit(1); err != nil {
			return err
		}
	}
	if x < ceiling {
		return w.PutBit(0)
	}
	return nil
}

// PutSigned writes a single sign bit for v (1 if negative, 0
// otherwise); the magnitude is written separately by the caller.
func (w *Writer) PutSigned(v int64) error {
	if v < 0 {
		return w.PutBit(1)
	}
	return w.PutBit(0)
}

// Close flushes any partial byte by padding with 1-bits (not zeros —
// original_source/src/bits.c's bs_close_write does the same) and, if
// the resulting byte count is odd, appends one more 0xFF byte so
// downstream metadata stays aligned to an even offset. It returns the
// total number of bytes produced.
func (w *Writer) Close() (int, error) {
	if pad := (8 - int(w.nbits%8)) % 8; pad > 0 {
		if err := w.PutBits((1<<uint(pad))-1, uint(pad)); err != nil {
			return 0, err
		}
	}
	n := int(w.nbits / 8)
	if n%2 != 0 {
		if err := w.PutBits(0xFF, 8); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Bytes returns the bytes written so far. Call Close first to ensure
// the even-byte-count padding has been applied.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}
