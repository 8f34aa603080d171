package vfsfuse

import (
	"context"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/sirupsen/logrus"

	"github.com/coreapfs/apfsro/internal/mount"
)

// Serve mounts h read-only at mountpoint and blocks until the filesystem is
// unmounted (by the caller's context being cancelled, or externally via
// `umount`/`fusermount -u`).
func Serve(ctx context.Context, mountpoint string, h *mount.Handle, log *logrus.Entry) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	server := fuseutil.NewFileSystemServer(New(h, log))
	cfg := &fuse.MountConfig{
		FSName:   "apfsro",
		Subtype:  "apfs",
		ReadOnly: true,
		OpContext: ctx,
	}

	mfs, err := fuse.Mount(mountpoint, server, cfg)
	if err != nil {
		return err
	}
	log.WithField("mountpoint", mountpoint).Info("mounted read-only apfs volume")

	// A cancelled ctx triggers an unmount from outside; an external
	// `umount`/`fusermount -u` works the same way without this goroutine
	// doing anything, since Join unblocks either way.
	go func() {
		<-ctx.Done()
		_ = fuse.Unmount(mountpoint)
	}()

	return mfs.Join(ctx)
}
