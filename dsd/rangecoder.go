package dsd

// rangeState is the 32-bit range-decoder core both DSD modes share
// (unpack_dsd.c's wps->dsd.{low,high,value}, byteptr/endptr). Its
// arithmetic is unsigned 32-bit throughout, matching the C uint32_t
// fields exactly — wraparound on the add/subtract steps is part of
// the algorithm, not a bug, so the Go code never promotes to a wider
// type.
type rangeState struct {
	low, high, value uint32
	src              []byte
	pos              int
}

func newRangeState(src []byte) *rangeState {
	s := &rangeState{low: 0, high: 0xffffffff, src: src}
	for i := 0; i < 4; i++ {
		s.value = (s.value << 8) | uint32(s.nextByte())
	}
	return s
}

// nextByte returns the next input byte, or 0 past the end (decode_fast
// and decode_high both guard their refill loops on byteptr < endptr,
// so running dry simply stalls the refill rather than erroring).
func (s *rangeState) nextByte() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	b := s.src[s.pos]
	s.pos++
	return b
}

func (s *rangeState) exhausted() bool {
	return s.pos >= len(s.src)
}

// byteReady reports whether high and low agree on their top byte,
// i.e. a byte of the arithmetic-coded stream has stabilized and the
// window can shift in a fresh one (unpack_dsd.c's DSD_BYTE_READY).
func byteReady(low, high uint32) bool {
	return (low^high)&0xff000000 == 0
}

// refill shifts in new bytes from src while the coding window's top
// byte has converged, the decode-side half of both modes' inner loop.
func (s *rangeState) refill() {
	for byteReady(s.low, s.high) && !s.exhausted() {
		s.value = (s.value << 8) | uint32(s.nextByte())
		s.high = (s.high << 8) | 0xff
		s.low <<= 8
	}
}

// rangeWriter is EncodeFast/EncodeHigh's write-side counterpart: the
// same low/high window, but emitting bytes to dst instead of
// consuming them, and tracking value as the accumulated output rather
// than a decode target. There is no reference encoder for either DSD
// mode in the provided corpus, so this is the standard carryless
// range-coder renormalization (emit the settled top byte, shift the
// window left) rather than a port.
type rangeWriter struct {
	low, high uint32
	dst       []byte
}

func newRangeWriter() *rangeWriter {
	return &rangeWriter{low: 0, high: 0xffffffff}
}

func (w *rangeWriter) refill() {
	for byteReady(w.low, w.high) {
		w.dst = append(w.dst, byte(w.high>>24))
		w.high = (w.high << 8) | 0xff
		w.low <<= 8
	}
}

// flush drains the remaining window state so a decoder primed with
// four bytes of lookahead (newRangeState's initial fill) can still
// resolve the final few symbols.
func (w *rangeWriter) flush() []byte {
	for i := 0; i < 4; i++ {
		w.dst = append(w.dst, byte(w.high>>24))
		w.high <<= 8
	}
	return w.dst
}
