package types

// OmapPhysT is the object map header: it names the B-tree that actually holds
// the oid/xid -> physical-address mappings.
type OmapPhysT struct {
	OmO                ObjPhysT
	OmFlags            uint32
	OmSnapCount        uint32
	OmTreeType         uint32
	OmSnapshotTreeType uint32
	OmTreeOid          OidT
	OmSnapshotTreeOid  OidT
	OmMostRecentSnap   XidT
	OmPendingRevertMin XidT
	OmPendingRevertMax XidT
}

// OmapKeyT identifies an entry in an object map: the virtual object plus the
// transaction it was valid as of.
type OmapKeyT struct {
	OkOid OidT
	OkXid XidT
}

// OmapValT is the resolved location of an object map entry.
type OmapValT struct {
	OvFlags uint32
	OvSize  uint32
	OvPaddr Paddr
}

const (
	OmapValDeleted   uint32 = 0x00000001
	OmapValSaved     uint32 = 0x00000002
	OmapValEncrypted uint32 = 0x00000004
	OmapValNoheader  uint32 = 0x00000008
)
