// Package mount ties the block device, omap resolver, and fs-tree walker
// together into the VFS-facing surface spec'd for a read-only APFS mount:
// mount, lookup, iterate, read, stat, unmount. It owns the one piece of
// state a mount carries for its whole lifetime — the physical addresses and
// transaction id resolved once at mount time — and exposes nothing mutable
// beyond that.
package mount

import (
	"time"

	"github.com/coreapfs/apfsro/internal/blockdev"
	"github.com/coreapfs/apfsro/internal/fstree"
	"github.com/coreapfs/apfsro/internal/omap"
	"github.com/coreapfs/apfsro/internal/types"
)

// RootInode is the inode number of a mounted volume's root directory,
// fixed by the format.
const RootInode uint64 = types.RootDirInoNum

// Handle is the immutable state a mount resolves once, at mount time, and
// never mutates again: every read path descends from these physical
// addresses and the single transaction id snapshotted here. Safe for
// concurrent use by multiple caller goroutines, since nothing here changes
// after Mount returns.
type Handle struct {
	dev         blockdev.Device
	blockSize   uint32
	xid         types.XidT
	fsRootPaddr types.Paddr
	volume      types.ApfsSuperblockT
	walker      *fstree.Walker
}

// Mount reads block 0 of dev, validates the container superblock, resolves
// the first volume through the container object map, and resolves that
// volume's root file-system tree through the volume's own object map. The
// returned Handle pins every address a subsequent Lookup/Iterate/Read/Stat
// needs; nothing here is re-resolved later, so every read observes the one
// immutable snapshot chosen at mount time.
func Mount(dev blockdev.Device) (*Handle, error) {
	probe, err := dev.ReadBlock(0, types.NxMinimumBlockSize)
	if err != nil {
		return nil, err
	}
	nxsb, err := decodeContainerSuperblock(probe)
	if err != nil {
		return nil, err
	}
	if nxsb.NxMagic != types.NxMagic {
		return nil, types.NewError(types.ErrNotAnApfs, "mount.Mount", nil)
	}
	if nxsb.NxBlockSize < types.NxMinimumBlockSize || nxsb.NxBlockSize > types.NxMaximumBlockSize {
		return nil, types.NewError(types.ErrUnsupportedBlockSize, "mount.Mount", nil)
	}
	blockSize := nxsb.NxBlockSize
	xid := nxsb.NxO.OXid

	// The container omap field is a direct physical address of the
	// omap_phys object, not a logical oid resolved through any omap.
	containerOmapRoot, err := readOmapTreeRoot(dev, blockSize, types.Paddr(nxsb.NxOmapOid))
	if err != nil {
		return nil, err
	}

	if nxsb.NxFsOid[0] == types.OidInvalid {
		return nil, types.NewError(types.ErrNotFound, "mount.Mount", nil)
	}
	containerOmap := omap.New(dev, blockSize)
	volPaddr, err := containerOmap.Resolve(containerOmapRoot, nxsb.NxFsOid[0], xid)
	if err != nil {
		return nil, err
	}

	volBuf, err := dev.ReadBlock(volPaddr, blockSize)
	if err != nil {
		return nil, err
	}
	volume, err := decodeVolumeSuperblock(volBuf)
	if err != nil {
		return nil, err
	}
	if volume.ApfsMagic != types.ApfsMagic {
		return nil, types.NewError(types.ErrNotAnApfs, "mount.Mount", nil)
	}

	// The volume omap field is likewise read as a direct physical address,
	// never resolved through any omap.
	volOmapRoot, err := readOmapTreeRoot(dev, blockSize, types.Paddr(volume.ApfsOmapOid))
	if err != nil {
		return nil, err
	}

	walker := fstree.NewWalker(dev, volOmapRoot, xid, blockSize)
	volOmap := omap.New(dev, blockSize)
	fsRootPaddr, err := volOmap.Resolve(volOmapRoot, volume.ApfsRootTreeOid, xid)
	if err != nil {
		return nil, err
	}

	return &Handle{
		dev:         dev,
		blockSize:   blockSize,
		xid:         xid,
		fsRootPaddr: fsRootPaddr,
		volume:      volume,
		walker:      walker,
	}, nil
}

// readOmapTreeRoot reads the omap_phys object at omapPaddr and returns the
// physical block of the B-tree it names.
func readOmapTreeRoot(dev blockdev.Device, blockSize uint32, omapPaddr types.Paddr) (types.Paddr, error) {
	buf, err := dev.ReadBlock(omapPaddr, blockSize)
	if err != nil {
		return 0, err
	}
	o, err := decodeOmapPhys(buf)
	if err != nil {
		return 0, err
	}
	return types.Paddr(o.OmTreeOid), nil
}

// Unmount releases the mount's block device. It is the caller's
// responsibility not to use the handle afterward.
func (h *Handle) Unmount() error { return h.dev.Close() }

// VolumeName returns the mounted volume's name, NUL/padding stripped.
func (h *Handle) VolumeName() string { return h.volume.VolumeName() }

// BlockSize reports the container's block size, in bytes.
func (h *Handle) BlockSize() uint32 { return h.blockSize }

// Dirent mirrors fstree.Dirent for VFS collaborators, so callers outside
// this module never need to import internal/fstree directly.
type Dirent = fstree.Dirent

// EntryKind mirrors fstree.EntryKind.
type EntryKind = fstree.EntryKind

const (
	KindDirectory = fstree.KindDirectory
	KindFile      = fstree.KindFile
)

// Info is the metadata stat(2) exposes for an inode.
type Info struct {
	Ino          uint64
	Kind         EntryKind
	Size         uint64
	Mode         types.Mode
	Uid          types.UidT
	Gid          types.GidT
	AccessTime   time.Time
	ModTime      time.Time
	ChangeTime   time.Time
	CreateTime   time.Time
	NumChildren  int32
	NumHardLinks int32
}

func (h *Handle) branchAndInode(ino uint64) (*fstree.Inode, error) {
	branch, err := h.walker.GetInodeBranch(h.fsRootPaddr, ino)
	if err != nil {
		return nil, err
	}
	return h.walker.DecodeInode(branch, ino)
}

// Stat decodes ino's inode record: timestamps converted from on-disk
// nanoseconds to time.Time, size from the DSTREAM extended field, and the
// real on-disk mode/uid/gid, honored rather than forced to rwxrwxrwx.
func (h *Handle) Stat(ino uint64) (Info, error) {
	inode, err := h.branchAndInode(ino)
	if err != nil {
		return Info{}, err
	}
	kind := fstree.KindFile
	if inode.IsDirectory() {
		kind = fstree.KindDirectory
	}
	info := Info{
		Ino:          ino,
		Kind:         kind,
		Size:         inode.Size,
		Mode:         inode.Mode,
		Uid:          inode.Owner,
		Gid:          inode.Group,
		AccessTime:   nsToTime(inode.AccessTime),
		ModTime:      nsToTime(inode.ModTime),
		ChangeTime:   nsToTime(inode.ChangeTime),
		CreateTime:   nsToTime(inode.CreateTime),
		NumChildren:  inode.NumberOfChildren(),
		NumHardLinks: inode.NumberOfHardLinks(),
	}
	return info, nil
}

func nsToTime(ns uint64) time.Time {
	return time.Unix(0, int64(ns)).UTC()
}

// trimNUL strips a stored name's NUL terminator and any trailing padding,
// for comparison against a query name that carries neither.
func trimNUL(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

// Lookup walks parent's subtree and returns the child inode number of the
// first directory entry whose normalized stored name equals name. "." and
// ".." are handled directly rather than via any on-disk record, since this
// reader does not track sibling/parent links beyond an inode's own
// parent_id field.
func (h *Handle) Lookup(parent uint64, name string) (uint64, error) {
	if name == "." {
		return parent, nil
	}
	if name == ".." {
		inode, err := h.branchAndInode(parent)
		if err != nil {
			return 0, err
		}
		return inode.ParentId, nil
	}
	branch, err := h.walker.GetInodeBranch(h.fsRootPaddr, parent)
	if err != nil {
		return 0, err
	}
	entries, err := h.walker.ListDirectory(branch, parent)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if trimNUL(e.Name) == name {
			return e.ChildIno, nil
		}
	}
	return 0, types.NewError(types.ErrNotFound, "mount.Lookup", nil)
}

// Iterate returns dir's directory entries starting at cursor, a monotonic
// offset into the synthetic sequence {".", "..", then every on-disk
// directory record in tree order}. It returns the entries read and the
// cursor a resumed call should pass to make progress; a cursor at or past
// the end yields no entries and an unchanged cursor.
func (h *Handle) Iterate(dir uint64, cursor uint64, limit int) ([]Dirent, uint64, error) {
	branch, err := h.walker.GetInodeBranch(h.fsRootPaddr, dir)
	if err != nil {
		return nil, cursor, err
	}
	inode, err := h.walker.DecodeInode(branch, dir)
	if err != nil {
		return nil, cursor, err
	}
	entries, err := h.walker.ListDirectory(branch, dir)
	if err != nil {
		return nil, cursor, err
	}
	synthetic := make([]Dirent, 0, len(entries)+2)
	synthetic = append(synthetic,
		Dirent{Name: []byte("."), ChildIno: dir, Kind: fstree.KindDirectory},
		Dirent{Name: []byte(".."), ChildIno: inode.ParentId, Kind: fstree.KindDirectory},
	)
	synthetic = append(synthetic, entries...)

	if cursor >= uint64(len(synthetic)) {
		return nil, cursor, nil
	}
	end := cursor + uint64(limit)
	if limit <= 0 || end > uint64(len(synthetic)) {
		end = uint64(len(synthetic))
	}
	return synthetic[cursor:end], end, nil
}

// VerifyChecksums walks every node of the mounted volume's file-system tree
// and recomputes its Fletcher-64 checksum. Diagnostic tooling only; the
// mount/lookup/iterate/read path never verifies checksums.
func (h *Handle) VerifyChecksums() (checked, bad int, err error) {
	return h.walker.VerifyChecksums(h.fsRootPaddr)
}

// Read satisfies one short read of file, starting at off, up to len bytes.
// Each call returns at most one physical block's worth of bytes from a
// single extent; callers loop, advancing off by the returned slice's
// length, until they've read len bytes or hit EOF (an empty, nil-error
// result).
func (h *Handle) Read(file uint64, off uint64, length int) ([]byte, error) {
	branch, err := h.walker.GetInodeBranch(h.fsRootPaddr, file)
	if err != nil {
		return nil, err
	}
	inode, err := h.walker.DecodeInode(branch, file)
	if err != nil {
		return nil, err
	}
	return h.walker.ReadFile(branch, file, inode.Size, off, length)
}
