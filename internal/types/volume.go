package types

// ApfsSuperblockT is a volume superblock. Fields unrelated to a read-only
// mount (crypto state, snapshots, fusion) are carried for layout fidelity but
// not otherwise interpreted.
type ApfsSuperblockT struct {
	ApfsO                          ObjPhysT
	ApfsMagic                      uint32
	ApfsFsIndex                    uint32
	ApfsFeatures                   uint64
	ApfsReadonlyCompatibleFeatures uint64
	ApfsIncompatibleFeatures       uint64
	ApfsUnmountTime                uint64
	ApfsFsReserveBlockCount        uint64
	ApfsFsQuotaBlockCount          uint64
	ApfsFsAllocCount               uint64
	ApfsRootTreeType               uint32
	ApfsExtentreftreeType          uint32
	ApfsSnapMetatreeType           uint32
	ApfsOmapOid                    OidT
	ApfsRootTreeOid                OidT
	ApfsExtentrefTreeOid           OidT
	ApfsSnapMetaTreeOid            OidT
	ApfsRevertToXid                XidT
	ApfsRevertToSblockOid          OidT
	ApfsNextObjId                  uint64
	ApfsNumFiles                   uint64
	ApfsNumDirectories             uint64
	ApfsNumSymlinks                uint64
	ApfsNumOtherFsobjects          uint64
	ApfsNumSnapshots               uint64
	ApfsTotalBlocksAlloced         uint64
	ApfsTotalBlocksFreed           uint64
	ApfsVolUuid                    UUID
	ApfsLastModTime                uint64
	ApfsFsFlags                    uint64
	ApfsVolname                    [ApfsVolnameLen]byte
	ApfsNextDocId                  uint32
	ApfsRole                       uint16
}

// ApfsMagic is the "APSB" volume-superblock signature.
const ApfsMagic uint32 = 'B' | 'S'<<8 | 'P'<<16 | 'A'<<24

const (
	ApfsVolnameLen = 256
)

const (
	ApfsVolRoleNone      uint16 = 0x0000
	ApfsVolRoleSystem    uint16 = 0x0001
	ApfsVolRoleUser      uint16 = 0x0002
	ApfsVolRoleRecovery  uint16 = 0x0004
	ApfsVolRoleVm        uint16 = 0x0008
	ApfsVolRolePreboot   uint16 = 0x0010
	ApfsVolRoleInstaller uint16 = 0x0020
)

// VolumeName returns the volume's name with its NUL terminator and any
// trailing padding stripped.
func (a *ApfsSuperblockT) VolumeName() string {
	n := 0
	for n < len(a.ApfsVolname) && a.ApfsVolname[n] != 0 {
		n++
	}
	return string(a.ApfsVolname[:n])
}
