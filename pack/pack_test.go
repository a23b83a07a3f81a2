package pack_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-audio/audio"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/pack"
	"github.com/mewkiz/wavpack/unpack"
)

// genTone builds a deterministic, non-trivial composite sample buffer
// (two interleaved channels, a few different periods superimposed) so
// decorrelation and entropy coding both see varied input.
func genTone(nch, frames int) []int {
	out := make([]int, frames*nch)
	for f := 0; f < frames; f++ {
		for c := 0; c < nch; c++ {
			v := 3000*sin16(f*7+c*13) + 500*sin16(f*101)
			out[f*nch+c] = v
		}
	}
	return out
}

// sin16 is a crude deterministic oscillator avoiding math.Sin (kept
// simple and allocation-free; exact waveform shape is irrelevant, only
// that it varies).
func sin16(x int) int {
	x = x % 360
	if x < 0 {
		x += 360
	}
	switch {
	case x < 90:
		return x - 45
	case x < 180:
		return 135 - x
	case x < 270:
		return 225 - x
	default:
		return x - 315
	}
}

func packAll(t *testing.T, cfg wavpack.Config, totalSamples uint64, pcm []int) [][]byte {
	t.Helper()
	var blocks [][]byte
	p := pack.OpenOutput(func(blk []byte) bool {
		blocks = append(blocks, append([]byte(nil), blk...))
		return true
	}, "test.wv", nil, "")

	if err := p.SetConfiguration(cfg, totalSamples); err != nil {
		t.Fatalf("SetConfiguration: %v", err)
	}
	if err := p.PackInit(); err != nil {
		t.Fatalf("PackInit: %v", err)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: cfg.NumChannels, SampleRate: int(cfg.SampleRate)},
		Data:   pcm,
	}
	if _, err := p.PackSamples(buf); err != nil {
		t.Fatalf("PackSamples: %v", err)
	}
	if err := p.FlushSamples(); err != nil {
		t.Fatalf("FlushSamples: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatalf("no blocks emitted")
	}
	if err := p.UpdateNumSamples(blocks[0]); err != nil {
		t.Fatalf("UpdateNumSamples: %v", err)
	}
	return blocks
}

func TestPackUnpackRoundTripStereoLossless(t *testing.T) {
	const nch = 2
	const frames = 5000
	pcm := genTone(nch, frames)

	cfg := wavpack.Config{
		NumChannels:    nch,
		SampleRate:     44100,
		BitsPerSample:  16,
		BytesPerSample: 2,
		Quality:        wavpack.QualityNormal,
		JointStereo:    true,
		ChecksumBlocks: true,
	}
	blocks := packAll(t, cfg, uint64(frames), pcm)

	var wv bytes.Buffer
	for _, b := range blocks {
		wv.Write(b)
	}

	u, err := unpack.OpenInput(bytes.NewReader(wv.Bytes()), "test.wv", nil, "", 0)
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	defer u.CloseInput()

	if got := u.NumChannels(); got != nch {
		t.Fatalf("NumChannels = %d, want %d", got, nch)
	}
	if got := u.SampleRate(); got != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", got)
	}

	out := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 44100}}
	var got []int
	for {
		n, err := u.UnpackSamples(out, 1024)
		if err != nil {
			t.Fatalf("UnpackSamples: %v", err)
		}
		got = append(got, out.Data...)
		if n == 0 {
			break
		}
	}

	if len(got) != len(pcm) {
		t.Fatalf("decoded %d composite samples, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], pcm[i])
		}
	}
	if n := u.CRCErrorCount(); n != 0 {
		t.Fatalf("CRCErrorCount = %d, want 0", n)
	}
}

func TestPackUnpackRoundTripMonoLossless(t *testing.T) {
	const nch = 1
	const frames = 3000
	pcm := genTone(nch, frames)

	cfg := wavpack.Config{
		NumChannels:    nch,
		SampleRate:     48000,
		BitsPerSample:  16,
		BytesPerSample: 2,
		Quality:        wavpack.QualityFast,
	}
	blocks := packAll(t, cfg, uint64(frames), pcm)

	var wv bytes.Buffer
	for _, b := range blocks {
		wv.Write(b)
	}

	u, err := unpack.OpenInput(bytes.NewReader(wv.Bytes()), "mono.wv", nil, "", 0)
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	defer u.CloseInput()

	out := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 48000}}
	var got []int
	for {
		n, err := u.UnpackSamples(out, 4096)
		if err != nil {
			t.Fatalf("UnpackSamples: %v", err)
		}
		got = append(got, out.Data...)
		if n == 0 {
			break
		}
	}
	if len(got) != len(pcm) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], pcm[i])
		}
	}
}

func TestPackUnpackSeek(t *testing.T) {
	const nch = 2
	const frames = 9000
	pcm := genTone(nch, frames)

	cfg := wavpack.Config{
		NumChannels:    nch,
		SampleRate:     44100,
		BitsPerSample:  16,
		BytesPerSample: 2,
		Quality:        wavpack.QualityNormal,
		ChecksumBlocks: true,
	}
	blocks := packAll(t, cfg, uint64(frames), pcm)

	var wv bytes.Buffer
	for _, b := range blocks {
		wv.Write(b)
	}

	u, err := unpack.OpenInput(bytes.NewReader(wv.Bytes()), "seek.wv", nil, "", 0)
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	defer u.CloseInput()

	const target = uint64(4321)
	if err := u.SeekSample(target); err != nil {
		t.Fatalf("SeekSample: %v", err)
	}
	if got := u.SampleIndex(); got != target {
		t.Fatalf("SampleIndex after seek = %d, want %d", got, target)
	}

	out := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 44100}}
	n, err := u.UnpackSamples(out, 10)
	if err != nil {
		t.Fatalf("UnpackSamples: %v", err)
	}
	if n != 10 {
		t.Fatalf("UnpackSamples after seek returned %d, want 10", n)
	}
	for f := 0; f < n; f++ {
		for c := 0; c < nch; c++ {
			want := pcm[(int(target)+f)*nch+c]
			if got := out.Data[f*nch+c]; got != want {
				t.Fatalf("frame %d chan %d: got %d, want %d", f, c, got, want)
			}
		}
	}
}

// TestPackUnpackHybridCorrectionExact covers the one hybrid
// combination that round-trips bit-exactly through a wvc correction
// stream: HybridShaping disabled. entropy.Quantize/Dequantize satisfy
// Dequantize(Quantize(x)) == x by construction (pack/stream.go,
// entropy/hybrid.go) whenever the correction value is supplied, so
// decoding with the paired wvc reader must reproduce the source PCM
// exactly, while decoding the .wv stream alone must not.
func TestPackUnpackHybridCorrectionExact(t *testing.T) {
	const nch = 2
	const frames = 4000
	pcm := genTone(nch, frames)

	cfg := wavpack.Config{
		NumChannels:    nch,
		SampleRate:     44100,
		BitsPerSample:  16,
		BytesPerSample: 2,
		Quality:        wavpack.QualityNormal,
		Hybrid:         true,
		HybridBitrate:  10,
	}

	var wvBlocks, wvcBlocks [][]byte
	p := pack.OpenOutput(
		func(blk []byte) bool { wvBlocks = append(wvBlocks, append([]byte(nil), blk...)); return true },
		"exact.wv",
		func(blk []byte) bool { wvcBlocks = append(wvcBlocks, append([]byte(nil), blk...)); return true },
		"exact.wvc",
	)
	if err := p.SetConfiguration(cfg, uint64(frames)); err != nil {
		t.Fatalf("SetConfiguration: %v", err)
	}
	if err := p.PackInit(); err != nil {
		t.Fatalf("PackInit: %v", err)
	}
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 44100}, Data: pcm}
	if _, err := p.PackSamples(buf); err != nil {
		t.Fatalf("PackSamples: %v", err)
	}
	if err := p.FlushSamples(); err != nil {
		t.Fatalf("FlushSamples: %v", err)
	}
	if err := p.UpdateNumSamples(wvBlocks[0]); err != nil {
		t.Fatalf("UpdateNumSamples: %v", err)
	}

	var wv, wvc bytes.Buffer
	for _, b := range wvBlocks {
		wv.Write(b)
	}
	for _, b := range wvcBlocks {
		wvc.Write(b)
	}

	var wvcReader io.ReadSeeker = bytes.NewReader(wvc.Bytes())
	u, err := unpack.OpenInput(bytes.NewReader(wv.Bytes()), "exact.wv", wvcReader, "exact.wvc", 0)
	if err != nil {
		t.Fatalf("OpenInput: %v", err)
	}
	defer u.CloseInput()

	out := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 44100}}
	var got []int
	for {
		n, err := u.UnpackSamples(out, 1024)
		if err != nil {
			t.Fatalf("UnpackSamples: %v", err)
		}
		got = append(got, out.Data...)
		if n == 0 {
			break
		}
	}
	if len(got) != len(pcm) {
		t.Fatalf("decoded %d composite samples, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("sample %d: got %d, want %d (corrected hybrid decode should be exact)", i, got[i], pcm[i])
		}
	}
}

func TestPackUnpackHybridWithCorrection(t *testing.T) {
	const nch = 2
	const frames = 4000
	pcm := genTone(nch, frames)

	cfg := wavpack.Config{
		NumChannels:    nch,
		SampleRate:     44100,
		BitsPerSample:  16,
		BytesPerSample: 2,
		Quality:        wavpack.QualityNormal,
		Hybrid:         true,
		HybridBitrate:  10,
		HybridShaping:  true,
	}

	var wvBlocks, wvcBlocks [][]byte
	p := pack.OpenOutput(
		func(blk []byte) bool { wvBlocks = append(wvBlocks, append([]byte(nil), blk...)); return true },
		"hyb.wv",
		func(blk []byte) bool { wvcBlocks = append(wvcBlocks, append([]byte(nil), blk...)); return true },
		"hyb.wvc",
	)
	if err := p.SetConfiguration(cfg, uint64(frames)); err != nil {
		t.Fatalf("SetConfiguration: %v", err)
	}
	if err := p.PackInit(); err != nil {
		t.Fatalf("PackInit: %v", err)
	}
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 44100}, Data: pcm}
	if _, err := p.PackSamples(buf); err != nil {
		t.Fatalf("PackSamples: %v", err)
	}
	if err := p.FlushSamples(); err != nil {
		t.Fatalf("FlushSamples: %v", err)
	}
	if len(wvBlocks) == 0 {
		t.Fatalf("no lossy blocks emitted")
	}
	if len(wvcBlocks) == 0 {
		t.Fatalf("no correction blocks emitted despite wvcOut configured")
	}
	if err := p.UpdateNumSamples(wvBlocks[0]); err != nil {
		t.Fatalf("UpdateNumSamples: %v", err)
	}

	var wv, wvc bytes.Buffer
	for _, b := range wvBlocks {
		wv.Write(b)
	}
	for _, b := range wvcBlocks {
		wvc.Write(b)
	}

	// Lossy-only decode should succeed and report at least one lossy
	// block (quantization is lossy by construction at this bitrate).
	uLossy, err := unpack.OpenInput(bytes.NewReader(wv.Bytes()), "hyb.wv", nil, "", 0)
	if err != nil {
		t.Fatalf("OpenInput (lossy): %v", err)
	}
	defer uLossy.CloseInput()
	out := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 44100}}
	var total uint64
	for {
		n, err := uLossy.UnpackSamples(out, 2048)
		if err != nil {
			t.Fatalf("UnpackSamples (lossy): %v", err)
		}
		total += uint64(n)
		if n == 0 {
			break
		}
	}
	if total != uint64(frames) {
		t.Fatalf("lossy decode produced %d frames, want %d", total, frames)
	}

	var wvcReader io.ReadSeeker = bytes.NewReader(wvc.Bytes())
	uCorrected, err := unpack.OpenInput(bytes.NewReader(wv.Bytes()), "hyb.wv", wvcReader, "hyb.wvc", 0)
	if err != nil {
		t.Fatalf("OpenInput (corrected): %v", err)
	}
	defer uCorrected.CloseInput()
	out2 := &audio.IntBuffer{Format: &audio.Format{NumChannels: nch, SampleRate: 44100}}
	total = 0
	for {
		n, err := uCorrected.UnpackSamples(out2, 2048)
		if err != nil {
			t.Fatalf("UnpackSamples (corrected): %v", err)
		}
		total += uint64(n)
		if n == 0 {
			break
		}
	}
	if total != uint64(frames) {
		t.Fatalf("corrected decode produced %d frames, want %d", total, frames)
	}
}
