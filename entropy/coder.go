package entropy

import "github.com/mewkiz/wavpack/internal/bitstream"

// Coder is the per-channel adaptive residual coder of spec §4.6: one
// Medians set plus the unary-level/binary-refinement/sign code built
// on top of it. A stereo stream uses two independent Coders.
type Coder struct {
	med Medians
}

// NewCoder returns a Coder with freshly-seeded medians (all bands
// start at width 1, widening as residuals are observed).
func NewCoder() *Coder {
	return &Coder{}
}

// State returns the three running medians, letting a caller persist
// them on the wire (ENTROPY_VARS) so every block is self-decodable
// from its own metadata instead of depending on an in-memory Coder
// surviving from the previous block — required for SeekSample (spec
// §4.11) to re-initialize state at an arbitrary block.
func (c *Coder) State() [3]int32 { return c.med.m }

// SetState restores medians previously obtained from State.
func (c *Coder) SetState(m [3]int32) { c.med.m = m }

// EncodeResidual writes one signed residual (spec §4.6 steps 1-3) and
// adapts the median it landed in (step 4).
func (c *Coder) EncodeResidual(w *bitstream.Writer, x int32) error {
	mag := x
	if mag < 0 {
		mag = -mag
	}

	level, start, width := c.med.band(mag)
	if err := w.PutUnary(uint(level), numMedians); err != nil {
		return err
	}

	if level < numMedians {
		if err := encodeTruncatedBinary(w, uint32(mag-start), width); err != nil {
			return err
		}
	} else {
		if err := encodeEscape(w, uint32(mag-start)); err != nil {
			return err
		}
	}

	if mag != 0 {
		if err := w.PutSigned(int64(x)); err != nil {
			return err
		}
	}

	k := level
	if k >= numMedians {
		k = numMedians - 1
	}
	c.med.update(k, mag)
	return nil
}

// DecodeResidual is EncodeResidual's inverse.
func (c *Coder) DecodeResidual(r *bitstream.Reader) (int32, error) {
	level, err := r.GetUnary(numMedians)
	if err != nil {
		return 0, err
	}

	var mag int32
	if int(level) < numMedians {
		start, width := c.med.boundsFor(int(level))
		offset, err := decodeTruncatedBinary(r, width)
		if err != nil {
			return 0, err
		}
		mag = start + int32(offset)
	} else {
		start, _ := c.med.boundsFor(numMedians)
		n, err := decodeEscape(r)
		if err != nil {
			return 0, err
		}
		mag = start + int32(n)
	}

	k := int(level)
	if k >= numMedians {
		k = numMedians - 1
	}
	c.med.update(k, mag)

	if mag == 0 {
		return 0, nil
	}
	signed, err := r.GetSigned(uint64(mag))
	if err != nil {
		return 0, err
	}
	return int32(signed), nil
}
