package floatext

import "hash/crc32"

// VerifyWvxCRC checks the 32-bit CRC spec §4.7 says precedes the wvx
// payload ("if that CRC fails, the block is declared lossy"). This is
// an ordinary CRC-32 (IEEE polynomial), distinct from the bespoke
// running recurrences internal/crc implements for the audio stream
// and BLOCK_CHECKSUM sub-block — spec §4.7 gives it no custom formula,
// so the standard library's implementation is used directly rather
// than inventing a variant.
func VerifyWvxCRC(payload []byte, stored uint32) bool {
	return crc32.ChecksumIEEE(payload) == stored
}
