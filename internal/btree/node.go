// Package btree implements the generic node geometry, key/value comparator,
// and in-node binary search shared by both kinds of B-tree an APFS container
// uses: fixed-key object maps and variable-key file-system trees.
package btree

import (
	"github.com/coreapfs/apfsro/internal/decode"
	"github.com/coreapfs/apfsro/internal/types"
)

// headerSize is the size, in bytes, of the fixed btree_node_phys_t prefix
// (object header plus flags/level/nkeys/table-of-contents descriptors) that
// precedes a node's data area.
const headerSize = 56

// Node is a single B-tree node decoded from a raw block buffer. It exposes
// the TOC, key zone, and value zone as validated sub-slices; callers never
// touch raw offsets themselves.
type Node struct {
	Header   types.ObjPhysT
	Flags    uint16
	Level    uint16
	Nkeys    uint32
	buf      []byte // the full block
	data     []byte // buf[headerSize:], the node's storage area
	tocOff   int
	tocLen   int
	keyZone  []byte
	valZone  []byte // value_zone_end-relative: valZone[len(valZone)-off : len(valZone)-off+n]
}

func (n *Node) IsRoot() bool          { return n.Flags&types.BtnodeRoot != 0 }
func (n *Node) IsLeaf() bool          { return n.Flags&types.BtnodeLeaf != 0 }
func (n *Node) HasFixedKVSize() bool  { return n.Flags&types.BtnodeFixedKvSize != 0 }
func (n *Node) HasHeader() bool       { return n.Flags&types.BtnodeNoheader == 0 }

// ParseNode decodes a node from buf, a whole block of blockSize bytes.
// Geometry is validated per the invariant 0 <= toc <= key_zone <= value_zone_end
// <= block_size; any violation is reported as ErrMalformedNode.
func ParseNode(buf []byte, blockSize uint32) (*Node, error) {
	if len(buf) < int(blockSize) {
		return nil, types.NewError(types.ErrMalformedNode, "btree.ParseNode", errShort{len(buf), int(blockSize)})
	}
	r := decode.NewReader(buf, "btree.ParseNode")
	hdr, err := r.ObjHeader()
	if err != nil {
		return nil, err
	}
	flags, err := r.U16(32)
	if err != nil {
		return nil, err
	}
	level, err := r.U16(34)
	if err != nil {
		return nil, err
	}
	nkeys, err := r.U32(36)
	if err != nil {
		return nil, err
	}
	tableOff, err := r.U16(40)
	if err != nil {
		return nil, err
	}
	tableLen, err := r.U16(42)
	if err != nil {
		return nil, err
	}
	freeOff, err := r.U16(44)
	if err != nil {
		return nil, err
	}

	n := &Node{Header: hdr, Flags: flags, Level: level, Nkeys: nkeys}
	if int(blockSize) < headerSize {
		return nil, types.NewError(types.ErrMalformedNode, "btree.ParseNode", errShort{int(blockSize), headerSize})
	}
	n.buf = buf[:blockSize]
	n.data = n.buf[headerSize:]

	tocZoneOff := int(tableOff)
	tocZoneLen := int(tableLen)
	if tocZoneOff < 0 || tocZoneLen < 0 || tocZoneOff+tocZoneLen > len(n.data) {
		return nil, types.NewError(types.ErrMalformedNode, "btree.ParseNode", errGeometry{"toc"})
	}
	n.tocOff = tocZoneOff
	n.tocLen = tocZoneLen

	keyZoneStart := tocZoneOff + tocZoneLen
	freeSpaceOff := int(freeOff)
	if freeSpaceOff < 0 || keyZoneStart+freeSpaceOff > len(n.data) {
		return nil, types.NewError(types.ErrMalformedNode, "btree.ParseNode", errGeometry{"key_zone"})
	}
	// key zone runs from keyZoneStart to the start of free space
	n.keyZone = n.data[keyZoneStart : keyZoneStart+freeSpaceOff]

	infoSize := 0
	if n.IsRoot() {
		infoSize = btreeInfoSize
	}
	valueZoneEnd := len(n.data) - infoSize
	if valueZoneEnd < 0 || valueZoneEnd > len(n.data) {
		return nil, types.NewError(types.ErrMalformedNode, "btree.ParseNode", errGeometry{"value_zone_end"})
	}
	n.valZone = n.data[:valueZoneEnd]

	return n, nil
}

// btreeInfoSize is sizeof(btree_info_t): btree_info_fixed_t (flags,
// node-size, key-size, val-size: 16 bytes) plus longest-key, longest-value,
// key-count, node-count (4+4+8+8).
const btreeInfoSize = 16 + 4 + 4 + 8 + 8

// TOCEntryCount returns the number of entries in the table of contents.
func (n *Node) TOCEntryCount() int { return int(n.Nkeys) }

// KeyBytes returns the raw bytes for the key at TOC offset koff, length klen,
// counted from the start of the key zone.
func (n *Node) KeyBytes(koff, klen int) ([]byte, error) {
	if koff < 0 || klen < 0 || koff+klen > len(n.keyZone) {
		return nil, types.NewError(types.ErrMalformedNode, "btree.KeyBytes", errGeometry{"key"})
	}
	return n.keyZone[koff : koff+klen], nil
}

// ValueBytes returns the raw bytes for the value whose location is given
// end-relative: it starts voff bytes back from the end of the value zone and
// is vlen bytes long.
func (n *Node) ValueBytes(voff, vlen int) ([]byte, error) {
	start := len(n.valZone) - voff
	end := start + vlen
	if voff < 0 || vlen < 0 || start < 0 || end > len(n.valZone) {
		return nil, types.NewError(types.ErrMalformedNode, "btree.ValueBytes", errGeometry{"value"})
	}
	return n.valZone[start:end], nil
}

// TOCBytes returns the raw table-of-contents region.
func (n *Node) TOCBytes() []byte { return n.data[n.tocOff : n.tocOff+n.tocLen] }

type errShort struct{ have, want int }

func (e errShort) Error() string { return "buffer too short for a node" }

type errGeometry struct{ zone string }

func (e errGeometry) Error() string { return "node geometry invalid: " + e.zone }
