// Package engine implements the segmented off-heap storage engine backing
// the map core.
//
// The engine owns all entry memory. At construction it allocates one
// contiguous byte slab (arena) per segment; entries are never stored as Go
// objects but laid out inside those slabs, so the working set is invisible to
// the garbage collector after warm-up and survives any number of operations
// without per-entry allocation.
//
// The package focuses on:
//   - Segment routing: a seeded FNV-1a hash of the encoded key selects the
//     owning segment, so unrelated keys contend on different locks
//   - Per-segment read/write locking with an explicit Guard whose release is
//     observable (double release is an error, which callers surface as a
//     secondary cleanup failure)
//   - Chunked allocation inside each slab via a free-chunk bitmap, with
//     first-fit placement and exact-fit reuse after frees
//   - A variable-size entry layout: fixed header, key bytes, alignment
//     padding, value bytes. The value start offset honors the configured
//     alignment; when the chunk size does not guarantee alignment by itself,
//     every variable-size write re-checks the fit explicitly
//
// Key Components:
//
//   - Storage: the engine-level interface consumed by the map core. It
//     resolves segments, exposes the seeded hash, and reports utilization.
//
//   - Segment: one lockable partition. All entry operations (Lookup, Insert,
//     Remove, ReplaceValue, UpdateInPlace) assume the caller holds the
//     segment's Guard in the appropriate mode; the segment itself performs no
//     locking on those paths.
//
//   - Guard: a handle for one lock acquisition. Guards are owned by exactly
//     one in-flight operation context and released exactly once.
//
//   - Ref: an opaque reference (slab offset) to one entry, valid only while
//     the owning segment's lock is held and until the entry is removed or
//     relocated.
package engine
