package block

import (
	"io"

	"github.com/mewkiz/wavpack"
	"github.com/mewkiz/wavpack/internal/bufseekio"
	"github.com/mewkiz/wavpack/internal/crc"
)

// ResyncWindow bounds how far ReadNextHeader will scan past garbage
// bytes before giving up (spec §8 invariant 7: "prepending up to 1 MiB
// of arbitrary bytes to a valid file still yields the same decoded
// samples; prepending 1 MiB + 1 bytes returns not found").
const ResyncWindow = 1 << 20

// ReadNextHeader scans rs for the next block whose 32-byte header
// passes every sanity check in Header.sanityCheck, skipping over
// stretches of unrelated bytes (including ones that merely happen to
// spell "wvpk" but fail the check) up to ResyncWindow bytes. It
// returns the parsed header and the absolute offset of its "wvpk"
// magic within rs.
//
// Grounded on the teacher's stream package, which likewise separates
// "find the next recognizable unit in a byte stream" from "decode the
// unit once found"; WavPack additionally requires resync past false
// positives, which FLAC's fixed sync code does not.
func ReadNextHeader(rs *bufseekio.ReadSeeker) (*Header, int64, error) {
	var window [4]byte
	if _, err := io.ReadFull(rs, window[:]); err != nil {
		return nil, 0, err
	}
	for scanned := int64(0); ; scanned++ {
		if scanned > ResyncWindow {
			return nil, 0, wavpack.Errf(wavpack.InvalidHeader, "no block header found within %d bytes", ResyncWindow)
		}
		if window == Magic {
			magicPos := rs.Position() - 4
			rest := make([]byte, HeaderSize-4)
			if _, err := io.ReadFull(rs, rest); err == nil {
				if h, err2 := Decode(rest); err2 == nil {
					return h, magicPos, nil
				}
			}
			if _, err := rs.Seek(magicPos+1, io.SeekStart); err != nil {
				return nil, 0, err
			}
			if _, err := io.ReadFull(rs, window[:]); err != nil {
				return nil, 0, err
			}
			continue
		}
		var b [1]byte
		if _, err := io.ReadFull(rs, b[:]); err != nil {
			return nil, 0, err
		}
		window[0], window[1], window[2], window[3] = window[1], window[2], window[3], b[0]
	}
}

// VerifyBlock implements verify_wavpack_block (spec §4.4): if
// subBlocks contains a BLOCK_CHECKSUM entry, VerifyBlock recomputes
// the checksum over blockBytes (the full on-wire block, header
// through the last metadata byte, including the checksum sub-block
// itself) up to but not including the checksum sub-block's own bytes,
// and compares it against the stored value. Blocks whose header flags
// carry HasChecksum but lack the sub-block are a hard mismatch;
// blocks with neither are not checked.
func VerifyBlock(h *Header, blockBytes []byte, subBlocks []*SubBlock) error {
	var checksum *SubBlock
	for _, sb := range subBlocks {
		if sb.ID == IDBlockChecksum {
			checksum = sb
			break
		}
	}
	if checksum == nil {
		if h.Flags&wavpack.HasChecksum != 0 {
			return wavpack.Errf(wavpack.ChecksumMismatch, "HAS_CHECKSUM set but no BLOCK_CHECKSUM sub-block present")
		}
		return nil
	}

	wire, err := EncodeSubBlock(checksum.ID, checksum.Payload)
	if err != nil {
		return err
	}
	coveredLen := len(blockBytes) - len(wire)
	if coveredLen < 0 {
		return wavpack.Errf(wavpack.MalformedMetadata, "block_checksum: sub-block longer than block")
	}
	got := crc.Block(blockBytes[:coveredLen])

	switch len(checksum.Payload) {
	case 2:
		want := uint16(checksum.Payload[0]) | uint16(checksum.Payload[1])<<8
		if crc.Block16(got) != want {
			return wavpack.Errf(wavpack.ChecksumMismatch, "BLOCK_CHECKSUM mismatch (2-byte)")
		}
	case 4:
		want := uint32(checksum.Payload[0]) | uint32(checksum.Payload[1])<<8 | uint32(checksum.Payload[2])<<16 | uint32(checksum.Payload[3])<<24
		if got != want {
			return wavpack.Errf(wavpack.ChecksumMismatch, "BLOCK_CHECKSUM mismatch (4-byte)")
		}
	default:
		return wavpack.Errf(wavpack.MalformedMetadata, "BLOCK_CHECKSUM payload must be 2 or 4 bytes, got %d", len(checksum.Payload))
	}
	return nil
}
