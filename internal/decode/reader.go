// Package decode provides bounds-checked little-endian primitives for
// reading the fixed-layout structures that make up an APFS container: object
// headers, superblocks, B-tree nodes, and the fixed-size keys/values stored
// inside them.
package decode

import (
	"encoding/binary"

	"github.com/coreapfs/apfsro/internal/types"
)

// Reader decodes little-endian fields from a single in-memory block, failing
// with a *types.Error of kind ErrMalformedBlock rather than panicking when a
// field would read past the end of the buffer. APFS is defined as
// little-endian on disk regardless of host architecture, so the byte order is
// not configurable.
type Reader struct {
	buf []byte
	op  string
}

// NewReader wraps buf for bounds-checked decoding. op names the caller for
// error messages (e.g. "container_superblock", "btree_node").
func NewReader(buf []byte, op string) *Reader {
	return &Reader{buf: buf, op: op}
}

// Len reports the number of bytes available to the reader.
func (r *Reader) Len() int { return len(r.buf) }

// Bytes returns the raw underlying buffer.
func (r *Reader) Bytes() []byte { return r.buf }

func (r *Reader) slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(r.buf) {
		return nil, types.NewError(types.ErrMalformedBlock, r.op,
			fmtOutOfRange(off, n, len(r.buf)))
	}
	return r.buf[off : off+n], nil
}

func fmtOutOfRange(off, n, have int) error {
	return &rangeError{off: off, n: n, have: have}
}

type rangeError struct {
	off, n, have int
}

func (e *rangeError) Error() string {
	return "field at offset " + itoa(e.off) + " length " + itoa(e.n) +
		" exceeds buffer length " + itoa(e.have)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// U8 reads a single byte at off.
func (r *Reader) U8(off int) (uint8, error) {
	b, err := r.slice(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16 at off.
func (r *Reader) U16(off int) (uint16, error) {
	b, err := r.slice(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32 at off.
func (r *Reader) U32(off int) (uint32, error) {
	b, err := r.slice(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64 at off.
func (r *Reader) U64(off int) (uint64, error) {
	b, err := r.slice(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I32 reads a little-endian int32 at off.
func (r *Reader) I32(off int) (int32, error) {
	v, err := r.U32(off)
	return int32(v), err
}

// I64 reads a little-endian int64 at off.
func (r *Reader) I64(off int) (int64, error) {
	v, err := r.U64(off)
	return int64(v), err
}

// Raw returns a sub-slice of n bytes starting at off, without copying.
func (r *Reader) Raw(off, n int) ([]byte, error) {
	return r.slice(off, n)
}

// UUID reads a 16-byte UUID at off.
func (r *Reader) UUID(off int) (types.UUID, error) {
	var u types.UUID
	b, err := r.slice(off, 16)
	if err != nil {
		return u, err
	}
	copy(u[:], b)
	return u, nil
}

// ObjHeader decodes the 32-byte object header found at the start of every
// on-disk object.
func (r *Reader) ObjHeader() (types.ObjPhysT, error) {
	var o types.ObjPhysT
	cksum, err := r.slice(0, types.MaxCksumSize)
	if err != nil {
		return o, err
	}
	copy(o.OChecksum[:], cksum)
	oid, err := r.U64(8)
	if err != nil {
		return o, err
	}
	xid, err := r.U64(16)
	if err != nil {
		return o, err
	}
	otype, err := r.U32(24)
	if err != nil {
		return o, err
	}
	osub, err := r.U32(28)
	if err != nil {
		return o, err
	}
	o.OOid = types.OidT(oid)
	o.OXid = types.XidT(xid)
	o.OType = otype
	o.OSubtype = osub
	return o, nil
}
