// Package byteorder implements the tiny format-string interpreter
// spec §4.1 describes: a descriptor string where each character names
// the width of the next struct field ('S' = 16 bits, 'L' = 32 bits,
// 'D' = 64 bits, a digit = skip that many raw bytes, '4' = a 4-byte
// opaque blob), letting one pair of functions convert every packed,
// mixed-width on-disk header between host order and a target byte
// order without per-field code.
//
// It plays the role the teacher's frame/header.go fills with repeated
// binary.Read calls per field; here the field list is data, not code,
// because block.Header and the sub-block framing share the same
// little-endian layout rules across many call sites.
package byteorder

import (
	"encoding/binary"

	"github.com/mewkiz/pkg/errutil"
)

// ByteOrder selects the on-disk byte order. WavPack headers are
// little-endian; ByteOrder is exposed so a hypothetical big-endian
// variant (or test fixture) isn't hard-coded into the codec.
type ByteOrder = binary.ByteOrder

// Codec decodes and encodes a single packed struct shape described by
// a format string, caching the parsed field layout so repeated
// Encode/Decode calls (one per block header) don't re-walk the format
// string byte by byte.
type Codec struct {
	fields []field
	size   int
}

type fieldKind int

const (
	kindSkip fieldKind = iota
	kindU8
	kindU16
	kindU32
	kindU64
	kindOpaque4
)

type field struct {
	kind fieldKind
	n    int // byte count for kindSkip
}

// New parses a format descriptor and returns a reusable Codec.
//
// Format characters:
//
//	B  uint8 field
//	S  uint16 field
//	L  uint32 field
//	D  uint64 field
//	4  4-byte opaque blob (copied verbatim, no byte-swap)
//	1-3, 5-9 skip that many raw bytes (reserved/padding)
func New(format string) (*Codec, error) {
	c := &Codec{}
	for i := 0; i < len(format); i++ {
		switch ch := format[i]; {
		case ch == 'B':
			c.fields = append(c.fields, field{kind: kindU8})
			c.size++
		case ch == 'S':
			c.fields = append(c.fields, field{kind: kindU16})
			c.size += 2
		case ch == 'L':
			c.fields = append(c.fields, field{kind: kindU32})
			c.size += 4
		case ch == 'D':
			c.fields = append(c.fields, field{kind: kindU64})
			c.size += 8
		case ch == '4':
			c.fields = append(c.fields, field{kind: kindOpaque4})
			c.size += 4
		case ch >= '1' && ch <= '9':
			n := int(ch - '0')
			c.fields = append(c.fields, field{kind: kindSkip, n: n})
			c.size += n
		default:
			return nil, errutil.Newf("byteorder: invalid format character %q", ch)
		}
	}
	return c, nil
}

// Size returns the total encoded byte width of the described struct.
func (c *Codec) Size() int { return c.size }

// Decode reads c.Size() bytes from buf (which must be at least that
// long) in the given order, returning one uint64 per non-skip field in
// format order; kindOpaque4 values are returned with their 4 raw bytes
// packed low-to-high in host order (the caller reinterprets them, e.g.
// as a CRC or a block-index that callers never byte-swap across a
// network anyway).
func (c *Codec) Decode(buf []byte, order ByteOrder) ([]uint64, error) {
	if len(buf) < c.size {
		return nil, errutil.Newf("byteorder: buffer too short: need %d, got %d", c.size, len(buf))
	}
	out := make([]uint64, 0, len(c.fields))
	off := 0
	for _, f := range c.fields {
		switch f.kind {
		case kindSkip:
			off += f.n
		case kindU8:
			out = append(out, uint64(buf[off]))
			off++
		case kindU16:
			out = append(out, uint64(order.Uint16(buf[off:])))
			off += 2
		case kindU32:
			out = append(out, uint64(order.Uint32(buf[off:])))
			off += 4
		case kindU64:
			out = append(out, order.Uint64(buf[off:]))
			off += 8
		case kindOpaque4:
			out = append(out, uint64(binary.LittleEndian.Uint32(buf[off:])))
			off += 4
		}
	}
	return out, nil
}

// Encode writes values (one per non-skip field, in format order) into
// buf (which must be at least c.Size() bytes), zero-filling skipped
// bytes.
func (c *Codec) Encode(buf []byte, order ByteOrder, values []uint64) error {
	if len(buf) < c.size {
		return errutil.Newf("byteorder: buffer too short: need %d, got %d", c.size, len(buf))
	}
	want := 0
	for _, f := range c.fields {
		if f.kind != kindSkip {
			want++
		}
	}
	if len(values) != want {
		return errutil.Newf("byteorder: expected %d values, got %d", want, len(values))
	}
	off, vi := 0, 0
	for _, f := range c.fields {
		switch f.kind {
		case kindSkip:
			for i := 0; i < f.n; i++ {
				buf[off+i] = 0
			}
			off += f.n
		case kindU8:
			buf[off] = byte(values[vi])
			off++
			vi++
		case kindU16:
			order.PutUint16(buf[off:], uint16(values[vi]))
			off += 2
			vi++
		case kindU32:
			order.PutUint32(buf[off:], uint32(values[vi]))
			off += 4
			vi++
		case kindU64:
			order.PutUint64(buf[off:], values[vi])
			off += 8
			vi++
		case kindOpaque4:
			binary.LittleEndian.PutUint32(buf[off:], uint32(values[vi]))
			off += 4
			vi++
		}
	}
	return nil
}
