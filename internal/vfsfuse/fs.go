// Package vfsfuse exposes a mounted volume through jacobsa/fuse: a thin
// fuseutil.FileSystem implementation that maps LookUpInode/GetInodeAttributes/
// OpenDir/ReadDir/OpenFile/ReadFile directly onto internal/mount's
// lookup/stat/iterate/read. FUSE inode numbers are APFS object ids
// themselves; no remapping table is kept, since both are 64-bit and APFS
// already reserves its low object ids for structural purposes.
package vfsfuse

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/sirupsen/logrus"

	"github.com/coreapfs/apfsro/internal/fstree"
	"github.com/coreapfs/apfsro/internal/mount"
	"github.com/coreapfs/apfsro/internal/types"
)

// dirHandle pins the directory inode a FUSE OpenDir/ReadDir pair iterates;
// the handle has no other state since Iterate is stateless per call.
type dirHandle struct {
	ino uint64
}

// fileHandle pins the file inode a FUSE OpenFile/ReadFile pair reads from.
type fileHandle struct {
	ino uint64
}

// FS adapts a mount.Handle to fuseutil.FileSystem. Embedding
// fuseutil.NotImplementedFileSystem means every op this reader doesn't
// support (writes, renames, symlinks, xattrs) already returns ENOSYS without
// this type needing to say so explicitly.
type FS struct {
	fuseutil.NotImplementedFileSystem

	h   *mount.Handle
	log *logrus.Entry

	lastHandle  uint64
	mu          sync.Mutex
	dirHandles  map[fuseops.HandleID]*dirHandle
	fileHandles map[fuseops.HandleID]*fileHandle
}

// New builds an FS serving h. A nil log falls back to logrus's standard
// logger, matching blockdev.OpenDMG's convention.
func New(h *mount.Handle, log *logrus.Entry) *FS {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FS{
		h:           h,
		log:         log,
		dirHandles:  make(map[fuseops.HandleID]*dirHandle),
		fileHandles: make(map[fuseops.HandleID]*fileHandle),
	}
}

func (fs *FS) newHandle() fuseops.HandleID {
	return fuseops.HandleID(atomic.AddUint64(&fs.lastHandle, 1))
}

// toErrno maps this reader's typed errors onto the errno values a FUSE
// client expects, per the kind-to-errno table this mount's error model
// documents.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	switch types.KindOf(err) {
	case types.ErrNotFound:
		return syscall.ENOENT
	case types.ErrUnsupported:
		return syscall.ENOSYS
	case types.ErrUnsupportedBlockSize, types.ErrNotAnApfs:
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

// resolveInode maps FUSE's synthetic root inode id onto this volume's real
// root directory object id (2), since jacobsa/fuse always calls the root
// fuseops.RootInodeID rather than whatever a filesystem's own root happens
// to be numbered.
func resolveInode(id fuseops.InodeID) uint64 {
	if id == fuseops.RootInodeID {
		return mount.RootInode
	}
	return uint64(id)
}

func attrsFromInfo(info mount.Info) fuseops.InodeAttributes {
	// Only the permission bits translate directly; setuid/sticky use
	// different bit positions in os.FileMode than in the on-disk mode.
	mode := os.FileMode(info.Mode & 0o777)
	if info.Kind == mount.KindDirectory {
		mode |= os.ModeDir
	}
	nlink := uint32(1)
	if info.NumHardLinks > 0 {
		nlink = uint32(info.NumHardLinks)
	}
	return fuseops.InodeAttributes{
		Size:  info.Size,
		Nlink: nlink,
		Mode:  mode,
		Atime: info.AccessTime,
		Mtime: info.ModTime,
		Ctime: info.ChangeTime,
		Uid:   uint32(info.Uid),
		Gid:   uint32(info.Gid),
	}
}

func (fs *FS) StatFS(_ context.Context, op *fuseops.StatFSOp) error {
	op.IoSize = fs.h.BlockSize()
	op.BlockSize = fs.h.BlockSize()
	return nil
}

func (fs *FS) LookUpInode(_ context.Context, op *fuseops.LookUpInodeOp) error {
	parent := resolveInode(op.Parent)
	childIno, err := fs.h.Lookup(parent, op.Name)
	if err != nil {
		return toErrno(err)
	}
	info, err := fs.h.Stat(childIno)
	if err != nil {
		return toErrno(err)
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:      fuseops.InodeID(childIno),
		Attributes: attrsFromInfo(info),
	}
	return nil
}

func (fs *FS) GetInodeAttributes(_ context.Context, op *fuseops.GetInodeAttributesOp) error {
	ino := resolveInode(op.Inode)
	info, err := fs.h.Stat(ino)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attrsFromInfo(info)
	return nil
}

func (fs *FS) OpenDir(_ context.Context, op *fuseops.OpenDirOp) error {
	ino := resolveInode(op.Inode)
	handle := fs.newHandle()
	fs.mu.Lock()
	fs.dirHandles[handle] = &dirHandle{ino: ino}
	fs.mu.Unlock()
	op.Handle = handle
	return nil
}

func (fs *FS) ReadDir(_ context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	dh, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	entries, _, err := fs.h.Iterate(dh.ino, uint64(op.Offset), 0)
	if err != nil {
		return toErrno(err)
	}
	for i, e := range entries {
		dtype := fuseutil.DT_Unknown
		switch e.Kind {
		case mount.KindDirectory:
			dtype = fuseutil.DT_Directory
		case mount.KindFile:
			dtype = fuseutil.DT_File
		}
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(uint64(op.Offset) + uint64(i) + 1),
			Inode:  fuseops.InodeID(e.ChildIno),
			Name:   fstree.DecodeDisplayName(e.Name),
			Type:   dtype,
		})
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FS) ReleaseDirHandle(_ context.Context, op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.dirHandles[op.Handle]; !ok {
		return syscall.EBADF
	}
	delete(fs.dirHandles, op.Handle)
	return nil
}

func (fs *FS) OpenFile(_ context.Context, op *fuseops.OpenFileOp) error {
	ino := resolveInode(op.Inode)
	handle := fs.newHandle()
	fs.mu.Lock()
	fs.fileHandles[handle] = &fileHandle{ino: ino}
	fs.mu.Unlock()
	op.Handle = handle
	op.KeepPageCache = true
	return nil
}

func (fs *FS) ReadFile(_ context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	fh, ok := fs.fileHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	dst := op.Dst
	var total int
	for total < len(dst) {
		chunk, err := fs.h.Read(fh.ino, uint64(op.Offset)+uint64(total), len(dst)-total)
		if err != nil {
			return toErrno(err)
		}
		if len(chunk) == 0 {
			break
		}
		copy(dst[total:], chunk)
		total += len(chunk)
	}
	op.BytesRead = total
	return nil
}

func (fs *FS) ReleaseFileHandle(_ context.Context, op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.fileHandles[op.Handle]; !ok {
		return syscall.EBADF
	}
	delete(fs.fileHandles, op.Handle)
	return nil
}

func (fs *FS) Destroy() {}
