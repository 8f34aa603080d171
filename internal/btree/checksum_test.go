package btree

import (
	"encoding/binary"
	"testing"

	"github.com/coreapfs/apfsro/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestVerifyChecksum_RoundTrip(t *testing.T) {
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	for i := 0; i < types.MaxCksumSize; i++ {
		payload[i] = 0
	}

	sum := fletcher64(payload)
	copy(payload[:types.MaxCksumSize], sum[:])

	var hdr types.ObjPhysT
	copy(hdr.OChecksum[:], payload[:types.MaxCksumSize])
	hdr.OOid = types.OidT(binary.LittleEndian.Uint64(payload[8:16]))

	assert.True(t, VerifyChecksum(hdr, payload))

	payload[40] ^= 0xFF
	assert.False(t, VerifyChecksum(hdr, payload))
}

func TestVerifyChecksum_RejectsNonWordAligned(t *testing.T) {
	var hdr types.ObjPhysT
	assert.False(t, VerifyChecksum(hdr, make([]byte, 9)))
}
