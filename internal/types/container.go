package types

// NxSuperblockT is the container superblock: the object every mount starts
// from. It carries the container-wide object map and the list of volumes.
type NxSuperblockT struct {
	NxO                          ObjPhysT
	NxMagic                      uint32
	NxBlockSize                  uint32
	NxBlockCount                 uint64
	NxFeatures                   uint64
	NxReadonlyCompatibleFeatures uint64
	NxIncompatibleFeatures       uint64
	NxUuid                       UUID
	NxNextOid                    OidT
	NxNextXid                    XidT
	NxXpDescBlocks               uint32
	NxXpDataBlocks               uint32
	NxXpDescBase                 Paddr
	NxXpDataBase                 Paddr
	NxXpDescNext                 uint32
	NxXpDataNext                 uint32
	NxXpDescIndex                uint32
	NxXpDescLen                  uint32
	NxXpDataIndex                uint32
	NxXpDataLen                  uint32
	NxSpacemanOid                OidT
	NxOmapOid                    OidT
	NxReaperOid                  OidT
	NxTestType                   uint32
	NxMaxFileSystems             uint32
	NxFsOid                      [NxMaxFileSystems]OidT
	NxCounters                   [NxNumCounters]uint64
	NxBlockedOutPrange           Prange
	NxEvictMappingTreeOid        OidT
	NxFlags                      uint64
	NxEfiJumpstart               Paddr
	NxFusionUuid                 UUID
	NxKeylocker                  Prange
	NxEphemeralInfo              [NxEphInfoCount]uint64
	NxTestOid                    OidT
	NxFusionMtOid                OidT
	NxFusionWbcOid               OidT
	NxFusionWbc                  Prange
	NxNewestMountedVersion       uint64
	NxMkbLocker                  Prange
}

// NxMagic is the "NXSB" container-superblock signature.
const NxMagic uint32 = 'B' | 'S'<<8 | 'X'<<16 | 'N'<<24

const (
	NxMaxFileSystems  = 100
	NxEphInfoCount    = 4
	NxNumCounters     = 32
	NxMinimumBlockSize  = 4096
	NxDefaultBlockSize  = 4096
	NxMaximumBlockSize  = 65536
)
