package types

// JKeyT is the header shared by every key stored in a file-system tree: it
// packs the owning object's id together with the record's type.
type JKeyT struct {
	ObjIdAndType uint64
}

const (
	ObjIdMask       uint64 = 0x0fffffffffffffff
	ObjTypeMask     uint64 = 0xf000000000000000
	ObjTypeShift    uint64 = 60
	SystemObjIdMark uint64 = 0x0fffffff00000000
)

// ObjectIdentifier returns the file-system object id packed into a key header.
func (k JKeyT) ObjectIdentifier() uint64 { return k.ObjIdAndType & ObjIdMask }

// ObjectType returns the record type packed into a key header (see JObjTypes).
func (k JKeyT) ObjectType() uint8 { return uint8((k.ObjIdAndType & ObjTypeMask) >> ObjTypeShift) }

// JObjTypes enumerates the record kinds that can appear as the type nibble of
// a file-system key.
type JObjTypes uint8

const (
	ApfsTypeAny          JObjTypes = 0
	ApfsTypeSnapMetadata JObjTypes = 1
	ApfsTypeExtent       JObjTypes = 2
	ApfsTypeInode        JObjTypes = 3
	ApfsTypeXattr        JObjTypes = 4
	ApfsTypeSiblingLink  JObjTypes = 5
	ApfsTypeDstreamId    JObjTypes = 6
	ApfsTypeCryptoState  JObjTypes = 7
	ApfsTypeFileExtent   JObjTypes = 8
	ApfsTypeDirRec       JObjTypes = 9
	ApfsTypeDirStats     JObjTypes = 10
	ApfsTypeSnapName     JObjTypes = 11
	ApfsTypeSiblingMap   JObjTypes = 12
	ApfsTypeFileInfo     JObjTypes = 13
	ApfsTypeInvalid      JObjTypes = 15
)

// UidT/GidT are POSIX owner identifiers as stored in an inode record.
type UidT uint32
type GidT uint32

// JInodeValT is the value half of an inode record.
type JInodeValT struct {
	ParentId               uint64
	PrivateId              uint64
	CreateTime             uint64
	ModTime                uint64
	ChangeTime             uint64
	AccessTime             uint64
	InternalFlags          uint64
	NchildrenOrNlink       int32
	DefaultProtectionClass uint32
	WriteGenerationCounter uint32
	BsdFlags               uint32
	Owner                  UidT
	Group                  GidT
	Mode                   Mode
	Pad1                   uint16
	UncompressedSize       uint64
	XFields                []byte
}

// IsDirectory reports whether the inode's mode bits mark it as a directory.
func (v *JInodeValT) IsDirectory() bool { return v.Mode&ModeIFMT == ModeIFDIR }

// IsSymlink reports whether the inode's mode bits mark it as a symbolic link.
func (v *JInodeValT) IsSymlink() bool { return v.Mode&ModeIFMT == ModeIFLNK }

// NumberOfChildren returns the directory-entry count; only meaningful when
// IsDirectory is true.
func (v *JInodeValT) NumberOfChildren() int32 { return v.NchildrenOrNlink }

// NumberOfHardLinks returns the link count; only meaningful when IsDirectory
// is false.
func (v *JInodeValT) NumberOfHardLinks() int32 { return v.NchildrenOrNlink }

const (
	InodeIsApfsPrivate      uint64 = 0x00000001
	InodeMaintainDirStats   uint64 = 0x00000002
	InodeHasFinderInfo      uint64 = 0x00000100
	InodeIsSparse           uint64 = 0x00000200
	InodeHasRsrcFork        uint64 = 0x00004000
	InodeNoRsrcFork         uint64 = 0x00008000
	InodeHasUncompressedSize uint64 = 0x00040000
)

// JDrecValT is the value half of a directory entry record.
type JDrecValT struct {
	FileId    uint64
	DateAdded uint64
	Flags     uint16
	XFields   []byte
}

const (
	JDrecLenMask   uint32 = 0x000003ff
	JDrecHashMask  uint32 = 0xfffff400
	JDrecHashShift uint32 = 10
	DrecTypeMask   uint16 = 0x000f
)

// FileType returns the dentry file-type nibble stashed in a directory
// record's flags (see the Dt* constants).
func (v *JDrecValT) FileType() uint16 { return v.Flags & DrecTypeMask }

const (
	DtUnknown uint16 = 0
	DtFifo    uint16 = 1
	DtChr     uint16 = 2
	DtDir     uint16 = 4
	DtBlk     uint16 = 6
	DtReg     uint16 = 8
	DtLnk     uint16 = 10
	DtSock    uint16 = 12
	DtWht     uint16 = 14
)

// JXattrValT is the value half of an extended attribute record.
type JXattrValT struct {
	Flags    uint16
	XdataLen uint16
	Xdata    []byte
}

const (
	XattrDataStream   uint16 = 0x0001
	XattrDataEmbedded uint16 = 0x0002
)
