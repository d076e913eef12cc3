// Package chmap implements a generic, segment-locked, off-GC-heap key-value
// map. Entries live in flat byte arenas (see lib/engine) rather than as Go
// objects, so maps holding millions of entries put almost no pressure on the
// garbage collector; keys and values cross the boundary through pluggable
// codecs (see lib/serial).
//
// The package focuses on:
//   - Per-entry atomic operations under per-segment reader/writer locks
//   - Zero steady-state allocation: contexts, buffers and return-value
//     holders are pooled per goroutine and recycled after every operation
//   - Pluggable operation strategies (EntryOps, MapOps) that let callers
//     layer behavior around the primitive mutations without touching the
//     core
//   - Configurable result policies: write operations can skip materializing
//     previous values, and reads can decode into caller-supplied instances
//
// Key Components:
//
//   - Map: The public map type. Point operations (Get, Put, PutIfAbsent,
//     Remove, Replace, Merge, Compute, ...) each acquire exactly one segment
//     lock, read mode for pure reads and write mode for everything that may
//     mutate. Bulk accessors (Range, Len, Clear) lock one segment at a time.
//
//   - QueryContext: The per-operation workspace handed to operation
//     strategies. It carries the staged key and value bytes, the segment
//     guard, the entry cursor, and the return-value holders. Contexts are
//     pooled per goroutine; a nested operation started from inside a
//     callback chains a fresh context onto the active one and, when it
//     targets the segment the outer operation already holds, shares the
//     outer guard instead of deadlocking on a second acquire.
//
//   - AcquireContext: A scoped handle that keeps one entry's segment
//     write-locked across a caller-controlled read-modify-write sequence.
//
//   - DefaultValueProvider: The policy that supplies values for
//     acquire-style operations on absent keys, either a constant or a
//     per-key function.
//
// Thread-safety: all Map methods are safe for concurrent use. A Map value
// must not be copied. AcquireContext handles and the views returned by
// GetView are confined to the acquiring goroutine and to their scope.
//
// Reentrancy rules, enforced at runtime:
//   - A nested read on a segment the goroutine already holds (read or
//     write) shares the held guard.
//   - A nested write on a segment held in write mode shares the guard.
//   - A nested write on a segment held only in read mode fails with
//     CodeLockUpgrade; locks are never upgraded.
package chmap
