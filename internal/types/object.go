package types

// OidT is an object identifier. For a physical object it's the address of the
// block that holds it; for an ephemeral or virtual object it's an opaque number
// resolved through an object map.
type OidT uint64

// XidT is a transaction identifier. Transactions are numbered monotonically;
// zero is never valid.
type XidT uint64

const (
	XidInvalid      XidT = 0
	OidNxSuperblock OidT = 1
	OidInvalid      OidT = 0
	OidReservedCount     = 1024
)

// MaxCksumSize is the width, in bytes, of the checksum stored in every object header.
const MaxCksumSize = 8

// ObjPhysT is the header at the start of every object stored on disk.
type ObjPhysT struct {
	OChecksum [MaxCksumSize]byte
	OOid      OidT
	OXid      XidT
	OType     uint32
	OSubtype  uint32
}

const (
	ObjectTypeMask              uint32 = 0x0000ffff
	ObjectTypeFlagsMask         uint32 = 0xffff0000
	ObjStorageTypeMask          uint32 = 0xc0000000
	ObjectTypeFlagsDefinedMask  uint32 = 0xf8000000
)

// Object types that matter for a read-only mount; the rest of Apple's catalog
// (space manager, reaper, fusion, encryption rolling, ...) is out of scope.
const (
	ObjectTypeNxSuperblock uint32 = 0x00000001
	ObjectTypeBtree        uint32 = 0x00000002
	ObjectTypeBtreeNode    uint32 = 0x00000003
	ObjectTypeOmap         uint32 = 0x0000000b
	ObjectTypeFs           uint32 = 0x0000000d
	ObjectTypeFstree       uint32 = 0x0000000e
	ObjectTypeBlockreftree uint32 = 0x0000000f
	ObjectTypeInvalid      uint32 = 0x00000000
)

const (
	ObjVirtual       uint32 = 0x00000000
	ObjEphemeral     uint32 = 0x80000000
	ObjPhysical      uint32 = 0x40000000
	ObjNoheader      uint32 = 0x20000000
	ObjEncrypted     uint32 = 0x10000000
	ObjNonpersistent uint32 = 0x08000000
)

// Type reports the object's type, stripped of its storage/ephemeral flags.
func (o ObjPhysT) Type() uint32 { return o.OType & ObjectTypeMask }

// Subtype reports the kind of data the object's container holds (e.g. a
// B-tree's subtype says whether it's an omap or an fs-tree).
func (o ObjPhysT) Subtype() uint32 { return o.OSubtype & ObjectTypeMask }
