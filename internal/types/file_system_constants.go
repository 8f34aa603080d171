package types

// File-System Constants
// Reference: Apple File System Reference, pages 683-744

// Inode Numbers
// Inodes whose number is always the same.

// InvalidInoNum is an invalid inode number.
const InvalidInoNum uint64 = 0

// RootDirParent is the inode number for the root directory's parent.
// This is a sentinel value; there's no inode on disk with this inode number.
const RootDirParent uint64 = 1

// RootDirInoNum is the inode number for the root directory of the volume.
const RootDirInoNum uint64 = 2

// PrivDirInoNum is the inode number for the private directory.
// The private directory's filename is "private-dir". When creating a new volume,
// you must create a directory with this name and inode number.
const PrivDirInoNum uint64 = 3

// SnapDirInoNum is the inode number for the directory where snapshot metadata is stored.
// Snapshot inodes are stored in the snapshot metadata tree.
const SnapDirInoNum uint64 = 6

// PurgeableDirInoNum is the inode number used for storing references to purgeable files.
// This inode number and the directory records that use it are reserved.
// Other implementations of the Apple File System must not modify them.
// There isn't an actual directory with this inode number.
const PurgeableDirInoNum uint64 = 7

// MinUserInoNum is the smallest inode number available for user content.
// All inode numbers less than this value are reserved.
const MinUserInoNum uint64 = 16

// UnifiedIDSpaceMark marks a unified ID space.
const UnifiedIDSpaceMark uint64 = 0x0800000000000000

// File Modes
// The values used by the mode field of j_inode_val_t to indicate a file's mode.
// These follow POSIX file type conventions.

// Mode represents file mode bits for inodes.
type Mode uint16

const (
	// ModeIFMT is the bit mask for the file type field.
	// AND this with a mode value to extract just the file type bits.
	ModeIFMT Mode = 0o170000

	// ModeIFIFO marks a FIFO (named pipe) file.
	// Used for inter-process communication.
	ModeIFIFO Mode = 0o010000

	// ModeIFCHR marks a character device file.
	// Represents unbuffered I/O devices (terminals, serial ports, etc.).
	ModeIFCHR Mode = 0o020000

	// ModeIFDIR marks a directory file.
	// Contains entries (files and subdirectories) indexed by name.
	ModeIFDIR Mode = 0o040000

	// ModeIFBLK marks a block device file.
	// Represents buffered I/O devices (disk drives, etc.).
	ModeIFBLK Mode = 0o060000

	// ModeIFREG marks a regular file.
	// Contains arbitrary data bytes (text, binary, etc.).
	ModeIFREG Mode = 0o100000

	// ModeIFLNK marks a symbolic link file.
	// Contains a path to another file (may be to a file on a different device).
	ModeIFLNK Mode = 0o120000

	// ModeIFSOCK marks a socket file.
	// Used for network communication endpoints.
	ModeIFSOCK Mode = 0o140000

	// ModeIFWHT marks a whiteout file.
	// Used in Union mounts to mark deleted files from lower layers.
	ModeIFWHT Mode = 0o160000
)
