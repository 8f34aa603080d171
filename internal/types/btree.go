package types

// B-Trees
// The B-trees used in Apple File System are implemented using the btree_node_phys_t structure to represent a node.
// The same structure is used for all nodes in a tree.

// BtreeNodePhysT is a B-tree node.
type BtreeNodePhysT struct {
	// The object's header.
	BtnO ObjPhysT

	// The B-tree node's flags.
	// For the values used in this bit field, see B-Tree Node Flags.
	BtnFlags uint16

	// The number of child levels below this node.
	// For example, the value of this field is zero for a leaf node and one for the immediate parent of a leaf node.
	// Likewise, the height of a tree is one plus the value of this field on the tree's root node.
	BtnLevel uint16

	// The number of keys stored in this node.
	BtnNkeys uint32

	// The location of the table of contents.
	// The offset for the table of contents is counted from the beginning of the node's btn_data field
	// to the beginning of the table of contents.
	// If the BTNODE_FIXED_KV_SIZE flag is set, the table of contents is an array of instances of kvoff_t;
	// otherwise, it's an array of instances of kvloc_t.
	BtnTableSpace NlocT

	// The location of the shared free space for keys and values.
	// The location's offset is counted from the beginning of the key area to the beginning of the free space.
	BtnFreeSpace NlocT

	// A linked list that tracks free key space.
	// The offset from the beginning of the key area to the first available space for a key is stored in the off field,
	// and the total amount of free key space is stored in the len field.
	// Each free space stores an instance of nloc_t whose len field indicates the size of that free space
	// and whose off field contains the location of the next free space.
	BtnKeyFreeList NlocT

	// A linked list that tracks free value space.
	// The offset from the end of the value area to the first available space for a value is stored in the off field,
	// and the total amount of free value space is stored in the len field.
	// Each free space stores an instance of nloc_t whose len field indicates the size of that free space
	// and whose off field contains the location of the next free space.
	BtnValFreeList NlocT

	// The node's storage area.
	// This area contains the table of contents, keys, free space, and values.
	// A root node also has as an instance of btree_info_t at the end of its storage area.
	BtnData []byte
}

// BtreeInfoFixedT contains static information about a B-tree.
type BtreeInfoFixedT struct {
	// The B-tree's flags.
	// For the values used in this bit field, see B-Tree Flags.
	BtFlags uint32

	// The on-disk size, in bytes, of a node in this B-tree.
	// Leaf nodes, nonleaf nodes, and the root node are all the same size.
	BtNodeSize uint32

	// The size of a key, or zero if the keys have variable size.
	// If this field has a value of zero, the btn_flags field of instances of btree_node_phys_t
	// in this tree must not include BTNODE_FIXED_KV_SIZE.
	BtKeySize uint32

	// The size of a value, or zero if the values have variable size.
	// If this field has a value of zero, the btn_flags field of instances of btree_node_phys_t
	// for leaf nodes in this tree must not include BTNODE_FIXED_KV_SIZE.
	// Nonleaf nodes in a tree with variable-size values include BTNODE_FIXED_KV_SIZE,
	// because the values stored in those nodes are the object identifiers of their child nodes,
	// and object identifiers have a fixed size.
	BtValSize uint32
}

// BtreeInfoT contains information about a B-tree.
type BtreeInfoT struct {
	// Information about the B-tree that doesn't change over time.
	BtFixed BtreeInfoFixedT

	// The length, in bytes, of the longest key that has ever been stored in the B-tree.
	BtLongestKey uint32

	// The length, in bytes, of the longest value that has ever been stored in the B-tree.
	BtLongestVal uint32

	// The number of keys stored in the B-tree.
	BtKeyCount uint64

	// The number of nodes stored in the B-tree.
	BtNodeCount uint64
}

// BtnIndexNodeValT is the value used by hashed B-trees for nonleaf nodes.
type BtnIndexNodeValT struct {
	// The object identifier of the child node.
	BinvChildOid OidT

	// The hash of the child node.
	// The hash algorithm used by this tree determines the length of the hash.
	// To compute the hash, use the entire child node object as the input for the hash algorithm
	// specified for this tree. If the output from that hash algorithm is smaller than the
	// BTREE_NODE_HASH_SIZE_MAX bytes, treat the remaining bytes as padding.
	BinvChildHash [BtreeNodeHashSizeMax]byte
}

// BtreeNodeHashSizeMax is the maximum length of a hash that can be stored in this structure.
// This value is the same as APFS_HASH_MAX_SIZE.
const BtreeNodeHashSizeMax = 64

// NlocT is a location within a B-tree node.
type NlocT struct {
	// The offset, in bytes.
	// Depending on the data type that contains this location, the offset is either
	// implicitly positive or negative, and is counted starting at different points in the B-tree node.
	Off uint16

	// The length, in bytes.
	Len uint16
}

// BtoffInvalid is an invalid offset.
// This value is stored in the off field of nloc_t to indicate that there's no offset.
// For example, the last entry in a free list has no entry after it, so it uses this value for its off field.
const BtoffInvalid uint16 = 0xffff

// KvlocT is the location, within a B-tree node, of a key and value.
type KvlocT struct {
	// The location of the key.
	K NlocT

	// The location of the value.
	V NlocT
}

// KvoffT is the location, within a B-tree node, of a fixed-size key and value.
type KvoffT struct {
	// The offset of the key.
	K uint16

	// The offset of the value.
	V uint16
}

// B-Tree Flags

// BtreeUint64Keys indicates code that works with the B-tree should enable optimizations
// to make comparison of keys fast.
const BtreeUint64Keys uint32 = 0x00000001

// BtreeSequentialInsert indicates code that works with the B-tree should enable optimizations
// to keep the B-tree compact during sequential insertion of entries.
const BtreeSequentialInsert uint32 = 0x00000002

// BtreeAllowGhosts indicates the table of contents is allowed to contain keys that have no corresponding value.
const BtreeAllowGhosts uint32 = 0x00000004

// BtreeEphemeral indicates the nodes in the B-tree use ephemeral object identifiers to link to child nodes.
const BtreeEphemeral uint32 = 0x00000008

// BtreePhysical indicates the nodes in the B-tree use physical object identifiers to link to child nodes.
const BtreePhysical uint32 = 0x00000010

// BtreeNonpersistent indicates the B-tree isn't persisted across unmounting.
const BtreeNonpersistent uint32 = 0x00000020

// BtreeKvNonaligned indicates the keys and values in the B-tree aren't required to be
// aligned to eight-byte boundaries.
const BtreeKvNonaligned uint32 = 0x00000040

// BtreeHashed indicates the nonleaf nodes of this B-tree store a hash of their child nodes.
const BtreeHashed uint32 = 0x00000080

// BtreeNoheader indicates the nodes of this B-tree are stored without object headers.
const BtreeNoheader uint32 = 0x00000100

// B-Tree Table of Contents Constants

// BtreeTocEntryIncrement is the number of entries that are added or removed
// when changing the size of the table of contents.
const BtreeTocEntryIncrement uint32 = 8

// BtreeTocEntryMaxUnused is the maximum allowed number of unused entries in the table of contents.
const BtreeTocEntryMaxUnused uint32 = 2 * BtreeTocEntryIncrement

// B-Tree Node Flags

// BtnodeRoot indicates the B-tree node is a root node.
const BtnodeRoot uint16 = 0x0001

// BtnodeLeaf indicates the B-tree node is a leaf node.
const BtnodeLeaf uint16 = 0x0002

// BtnodeFixedKvSize indicates the B-tree node has keys and values of a fixed size,
// and the table of contents omits their lengths.
const BtnodeFixedKvSize uint16 = 0x0004

// BtnodeHashed indicates the B-tree node contains child hashes.
const BtnodeHashed uint16 = 0x0008

// BtnodeNoheader indicates the B-tree node is stored without an object header.
const BtnodeNoheader uint16 = 0x0010

// BtnodeCheckKoffInval indicates the B-tree node is in a transient state.
const BtnodeCheckKoffInval uint16 = 0x8000

// B-Tree Node Constants

// BtreeNodeSizeDefault is the default size, in bytes, of a B-tree node.
const BtreeNodeSizeDefault uint32 = 4096

// BtreeNodeMinEntryCount is the minimum number of entries that must be able to fit
// in a nonleaf B-tree node.
const BtreeNodeMinEntryCount uint32 = 4
