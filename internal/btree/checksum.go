package btree

import (
	"encoding/binary"

	"github.com/coreapfs/apfsro/internal/types"
)

// VerifyChecksum recomputes the Fletcher-64 checksum of a raw object buffer
// (object header included) and reports whether it matches the stored
// o_cksum field. This is never called on the normal mount/read path, only
// by diagnostic tooling: a read-only mount accepts whatever the container
// claims and is not in the business of detecting on-disk corruption.
func VerifyChecksum(hdr types.ObjPhysT, payload []byte) bool {
	if len(payload) < types.MaxCksumSize || len(payload)%4 != 0 {
		return false
	}
	zeroed := make([]byte, len(payload))
	copy(zeroed, payload)
	for i := 0; i < types.MaxCksumSize; i++ {
		zeroed[i] = 0
	}
	return fletcher64(zeroed) == hdr.OChecksum
}

// fletcher64 computes the modified Fletcher-64 checksum APFS stores in every
// object header, as 32-bit little-endian words with running sums reduced
// modulo 2^32-1 every 1024 words to avoid overflow, then turned into the two
// check words that make the sums over the whole object come out to zero.
func fletcher64(data []byte) [types.MaxCksumSize]byte {
	const modulus = uint64(0xFFFFFFFF)
	const wordsPerChunk = 1024

	var sum1, sum2 uint64
	for offset := 0; offset < len(data); offset += wordsPerChunk * 4 {
		end := offset + wordsPerChunk*4
		if end > len(data) {
			end = len(data)
		}
		for i := offset; i+4 <= end; i += 4 {
			word := uint64(binary.LittleEndian.Uint32(data[i : i+4]))
			sum1 += word
			sum2 += sum1
		}
		sum1 %= modulus
		sum2 %= modulus
	}

	c1 := modulus - ((sum1 + sum2) % modulus)
	c2 := modulus - ((sum1 + c1) % modulus)

	var out [types.MaxCksumSize]byte
	binary.LittleEndian.PutUint64(out[:], (c2<<32)|c1)
	return out
}
