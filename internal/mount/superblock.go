package mount

import (
	"github.com/coreapfs/apfsro/internal/decode"
	"github.com/coreapfs/apfsro/internal/types"
)

// decodeContainerSuperblock parses an nx_superblock_t from a block-0 buffer.
// Only the fields this read-only mount actually consults are decoded; the
// rest of types.NxSuperblockT is left zero. Field offsets are counted from
// the start of the 32-byte object header this struct begins with.
func decodeContainerSuperblock(buf []byte) (types.NxSuperblockT, error) {
	var sb types.NxSuperblockT
	r := decode.NewReader(buf, "mount.decodeContainerSuperblock")

	hdr, err := r.ObjHeader()
	if err != nil {
		return sb, err
	}
	sb.NxO = hdr

	if sb.NxMagic, err = r.U32(32); err != nil {
		return sb, err
	}
	if sb.NxBlockSize, err = r.U32(36); err != nil {
		return sb, err
	}
	if sb.NxBlockCount, err = r.U64(40); err != nil {
		return sb, err
	}
	if sb.NxUuid, err = r.UUID(72); err != nil {
		return sb, err
	}
	if sb.NxNextOid, err = oidAt(r, 88); err != nil {
		return sb, err
	}
	if sb.NxNextXid, err = xidAt(r, 96); err != nil {
		return sb, err
	}

	omapOid, err := r.U64(160)
	if err != nil {
		return sb, err
	}
	sb.NxOmapOid = types.OidT(omapOid)

	offset := 184
	for i := 0; i < types.NxMaxFileSystems; i++ {
		v, err := r.U64(offset)
		if err != nil {
			return sb, err
		}
		sb.NxFsOid[i] = types.OidT(v)
		offset += 8
	}

	return sb, nil
}

// decodeVolumeSuperblock parses an apfs_superblock_t, the subset this mount
// consults: obj header, then magic/fs-index/feature bitsets/counters before
// the omap and root-tree oids.
func decodeVolumeSuperblock(buf []byte) (types.ApfsSuperblockT, error) {
	var sb types.ApfsSuperblockT
	r := decode.NewReader(buf, "mount.decodeVolumeSuperblock")

	hdr, err := r.ObjHeader()
	if err != nil {
		return sb, err
	}
	sb.ApfsO = hdr

	if sb.ApfsMagic, err = r.U32(32); err != nil {
		return sb, err
	}
	if sb.ApfsFsIndex, err = r.U32(36); err != nil {
		return sb, err
	}

	omapOid, err := r.U64(108)
	if err != nil {
		return sb, err
	}
	sb.ApfsOmapOid = types.OidT(omapOid)

	rootTreeOid, err := r.U64(116)
	if err != nil {
		return sb, err
	}
	sb.ApfsRootTreeOid = types.OidT(rootTreeOid)

	// ApfsVolUuid sits after the counters this reader doesn't otherwise
	// decode (num_files, num_directories, ..., total_blocks_freed): 12
	// uint64 fields past ApfsRootTreeOid, which itself starts at 116.
	const uuidOff = 116 + 8 + 12*8
	if sb.ApfsVolUuid, err = r.UUID(uuidOff); err != nil {
		return sb, err
	}

	const (
		apfsMaxHist  = 8
		modifiedBySz = 8
	)
	nameOff := uuidOff + 16 + 8 + 8 + modifiedBySz + apfsMaxHist*modifiedBySz
	if nameOff+types.ApfsVolnameLen <= len(buf) {
		name, err := r.Raw(nameOff, types.ApfsVolnameLen)
		if err != nil {
			return sb, err
		}
		copy(sb.ApfsVolname[:], name)
	}

	return sb, nil
}

// decodeOmapPhys parses an omap_phys_t, whose only field this mount
// consults is the physical block of its B-tree root.
func decodeOmapPhys(buf []byte) (types.OmapPhysT, error) {
	var o types.OmapPhysT
	r := decode.NewReader(buf, "mount.decodeOmapPhys")

	hdr, err := r.ObjHeader()
	if err != nil {
		return o, err
	}
	o.OmO = hdr

	treeOid, err := r.U64(48)
	if err != nil {
		return o, err
	}
	o.OmTreeOid = types.OidT(treeOid)
	return o, nil
}

func oidAt(r *decode.Reader, off int) (types.OidT, error) {
	v, err := r.U64(off)
	return types.OidT(v), err
}

func xidAt(r *decode.Reader, off int) (types.XidT, error) {
	v, err := r.U64(off)
	return types.XidT(v), err
}
