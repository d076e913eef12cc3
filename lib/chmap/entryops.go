package chmap

import "github.com/imlxw/Chronicle-Map/lib/engine"

// --------------------------------------------------------------------------
// Entry Operations (pluggable primitive mutations)
// --------------------------------------------------------------------------

// EntryOps is the strategy for primitive entry mutations. Every method
// assumes the caller holds the segment's write guard. The default strategy
// delegates straight to the storage engine; replacements can layer behavior
// (write-ahead logging, change notification) around the primitives without
// touching the map-operation semantics built on top.
type EntryOps interface {
	// Insert allocates and writes a new entry. The caller guarantees the
	// key is absent from the segment.
	Insert(seg engine.Segment, hash uint64, key, value []byte) (engine.Ref, error)

	// Remove deletes an entry and frees its space.
	Remove(seg engine.Segment, hash uint64, ref engine.Ref) error

	// ReplaceValue overwrites an entry's value, relocating the entry when
	// the new value does not fit in place.
	ReplaceValue(seg engine.Segment, hash uint64, ref engine.Ref, value []byte) (engine.Ref, error)

	// UpdateInPlace overwrites an entry's value without relocation. Only
	// legal when the new size fits the entry's allocated capacity.
	UpdateInPlace(seg engine.Segment, ref engine.Ref, value []byte) error
}

// VanillaEntryOps returns the default entry-operations strategy.
func VanillaEntryOps() EntryOps {
	return vanillaEntryOps{}
}

type vanillaEntryOps struct{}

func (vanillaEntryOps) Insert(seg engine.Segment, hash uint64, key, value []byte) (engine.Ref, error) {
	return seg.Insert(hash, key, value)
}

func (vanillaEntryOps) Remove(seg engine.Segment, hash uint64, ref engine.Ref) error {
	return seg.Remove(hash, ref)
}

func (vanillaEntryOps) ReplaceValue(seg engine.Segment, hash uint64, ref engine.Ref, value []byte) (engine.Ref, error) {
	return seg.ReplaceValue(hash, ref, value)
}

func (vanillaEntryOps) UpdateInPlace(seg engine.Segment, ref engine.Ref, value []byte) error {
	return seg.UpdateInPlace(ref, value)
}
