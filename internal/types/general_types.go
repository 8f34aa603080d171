// Package types implements data structures for the Apple File System.
// This package is based on the official Apple File System Reference (June 2020).
package types

import "github.com/google/uuid"

// General-Purpose Types
// Basic types that are used in a variety of contexts, and aren't associated with
// any particular functionality.

// Paddr represents a physical address of an on-disk block.
// Negative numbers aren't valid addresses.
// This value is modeled as a signed integer to match IOKit.
type Paddr int64

// Validate checks if the physical address is valid.
func (p Paddr) Validate() bool {
	return p >= 0
}

// Prange represents a range of physical addresses.
type Prange struct {
	// The first block in the range.
	PrStartPaddr Paddr
	// The number of blocks in the range.
	PrBlockCount uint64
}

// UUID represents a universally unique identifier, stored on disk as the raw
// 16 bytes RFC 4122 lays out.
type UUID [16]byte

// String renders the UUID in canonical dashed form, via google/uuid rather
// than a hand-rolled hex formatter.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}
