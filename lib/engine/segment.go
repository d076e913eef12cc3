package engine

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// --------------------------------------------------------------------------
// Entry layout
// --------------------------------------------------------------------------

// Entries live inside the segment slab with the following layout:
//
//	offset+0  .. +4   next entry offset in the bucket chain (nilOff = end)
//	offset+4  .. +6   key length in bytes
//	offset+6  .. +8   allocation size in chunks
//	offset+8  .. +12  current value size in bytes (the size prefix)
//	offset+12 ..      key bytes
//	...               padding up to the configured value alignment
//	...               value bytes
//
// The value capacity is not stored - it is derived from the allocation end
// and the (alignment dependent) value start offset.
const entryHeaderSize = 12

const nilOff = ^uint32(0)

// Ref is an opaque reference to one entry: its offset inside the segment
// slab. A Ref is valid only while the segment lock is held and until the
// entry is removed or relocated.
type Ref uint32

// NilRef is the zero reference; it never points at a live entry.
const NilRef = Ref(nilOff)

// --------------------------------------------------------------------------
// Arena Segment
// --------------------------------------------------------------------------

// arenaSegment implements Segment over a single contiguous slab with chunked
// first-fit allocation and an intrusive bucket chain index.
type arenaSegment struct {
	mu sync.RWMutex

	slab      []byte
	chunkSize int
	alignment int
	// uncertain is true when chunk boundaries are not guaranteed to be
	// aligned, forcing worst-case padding and an explicit fit check on
	// variable-size writes.
	uncertain bool

	inUse      []uint64          // chunk bitmap, bit set = in use
	nchunks    int
	buckets    map[uint64]uint32 // key hash -> first entry offset
	entries    int
	usedChunks int
}

func newArenaSegment(segmentBytes, chunkSize, alignment int, uncertain bool) *arenaSegment {
	nchunks := segmentBytes / chunkSize
	return &arenaSegment{
		slab:      make([]byte, segmentBytes),
		chunkSize: chunkSize,
		alignment: alignment,
		uncertain: uncertain,
		inUse:     make([]uint64, (nchunks+63)/64),
		nchunks:   nchunks,
		buckets:   make(map[uint64]uint32),
	}
}

func (s *arenaSegment) Acquire(mode LockMode) *Guard {
	if mode == WriteLock {
		s.mu.Lock()
	} else {
		s.mu.RLock()
	}
	return &Guard{seg: s, mode: mode}
}

// --------------------------------------------------------------------------
// Header accessors
// --------------------------------------------------------------------------

func (s *arenaSegment) next(off uint32) uint32 {
	return binary.LittleEndian.Uint32(s.slab[off:])
}

func (s *arenaSegment) setNext(off, next uint32) {
	binary.LittleEndian.PutUint32(s.slab[off:], next)
}

func (s *arenaSegment) keyLen(off uint32) int {
	return int(binary.LittleEndian.Uint16(s.slab[off+4:]))
}

func (s *arenaSegment) chunkCount(off uint32) int {
	return int(binary.LittleEndian.Uint16(s.slab[off+6:]))
}

func (s *arenaSegment) valSize(off uint32) int {
	return int(binary.LittleEndian.Uint32(s.slab[off+8:]))
}

func (s *arenaSegment) setValSize(off uint32, size int) {
	binary.LittleEndian.PutUint32(s.slab[off+8:], uint32(size))
}

// valueStart returns the aligned offset of the entry's value bytes.
func (s *arenaSegment) valueStart(off uint32) int {
	return alignUp(int(off)+entryHeaderSize+s.keyLen(off), s.alignment)
}

// valueCap returns the number of bytes between the value start and the end
// of the entry's allocation.
func (s *arenaSegment) valueCap(off uint32) int {
	allocEnd := int(off) + s.chunkCount(off)*s.chunkSize
	return allocEnd - s.valueStart(off)
}

func alignUp(x, a int) int {
	return (x + a - 1) &^ (a - 1)
}

// --------------------------------------------------------------------------
// Chunk allocator
// --------------------------------------------------------------------------

// alloc finds n consecutive free chunks (first fit) and marks them in use.
// The bool result reports success.
func (s *arenaSegment) alloc(n int) (int, bool) {
	if n <= 0 || n > s.nchunks {
		return 0, false
	}

	run := 0
	for i := 0; i < s.nchunks; i++ {
		if s.inUse[i/64]&(1<<(i%64)) != 0 {
			run = 0
			continue
		}
		run++
		if run == n {
			start := i - n + 1
			s.mark(start, n, true)
			s.usedChunks += n
			return start, true
		}
	}
	return 0, false
}

// freeChunks releases an allocation previously made with alloc.
func (s *arenaSegment) freeChunks(start, n int) {
	s.mark(start, n, false)
	s.usedChunks -= n
}

func (s *arenaSegment) mark(start, n int, used bool) {
	for i := start; i < start+n; i++ {
		if used {
			s.inUse[i/64] |= 1 << (i % 64)
		} else {
			s.inUse[i/64] &^= 1 << (i % 64)
		}
	}
}

// --------------------------------------------------------------------------
// Entry operations (caller holds the segment lock)
// --------------------------------------------------------------------------

func (s *arenaSegment) Lookup(hash uint64, key []byte) (Ref, bool) {
	off, ok := s.buckets[hash]
	if !ok {
		return NilRef, false
	}
	for off != nilOff {
		kl := s.keyLen(off)
		kStart := int(off) + entryHeaderSize
		if kl == len(key) && bytes.Equal(s.slab[kStart:kStart+kl], key) {
			return Ref(off), true
		}
		off = s.next(off)
	}
	return NilRef, false
}

func (s *arenaSegment) Insert(hash uint64, key, value []byte) (Ref, error) {
	// Sizing: with aligned chunk boundaries the padding is fully determined
	// by the key length. Otherwise assume worst-case padding and re-check
	// the actual fit after placement.
	// the header stores key length and chunk count as uint16
	if len(key) > 0xFFFF {
		return NilRef, ErrWontFit
	}

	var need int
	if s.uncertain {
		need = entryHeaderSize + len(key) + (s.alignment - 1) + len(value)
	} else {
		need = alignUp(entryHeaderSize+len(key), s.alignment) + len(value)
	}
	chunks := (need + s.chunkSize - 1) / s.chunkSize

	for {
		if chunks > 0xFFFF {
			return NilRef, ErrWontFit
		}
		start, ok := s.alloc(chunks)
		if !ok {
			return NilRef, ErrSegmentFull
		}
		off := uint32(start * s.chunkSize)

		// write header and key first, valueStart depends on both
		head := nilOff
		if h, ok := s.buckets[hash]; ok {
			head = h
		}
		s.setNext(off, head)
		binary.LittleEndian.PutUint16(s.slab[off+4:], uint16(len(key)))
		binary.LittleEndian.PutUint16(s.slab[off+6:], uint16(chunks))
		s.setValSize(off, len(value))
		copy(s.slab[int(off)+entryHeaderSize:], key)

		vStart := s.valueStart(off)
		if s.uncertain && vStart+len(value) > int(off)+chunks*s.chunkSize {
			// the allocation landed so that the real padding exceeds the
			// worst-case estimate's slack; retry one chunk larger
			s.freeChunks(start, chunks)
			chunks++
			continue
		}

		copy(s.slab[vStart:], value)
		s.buckets[hash] = off
		s.entries++
		return Ref(off), nil
	}
}

func (s *arenaSegment) Remove(hash uint64, ref Ref) error {
	if err := s.unlink(hash, uint32(ref)); err != nil {
		return err
	}
	off := uint32(ref)
	s.freeChunks(int(off)/s.chunkSize, s.chunkCount(off))
	s.entries--
	return nil
}

func (s *arenaSegment) ReplaceValue(hash uint64, ref Ref, value []byte) (Ref, error) {
	if len(value) <= s.valueCap(uint32(ref)) {
		// fits in place
		vStart := s.valueStart(uint32(ref))
		copy(s.slab[vStart:], value)
		s.setValSize(uint32(ref), len(value))
		return ref, nil
	}

	// relocate: insert the new entry first so a capacity failure leaves the
	// old entry untouched
	key := s.KeyBytes(ref)
	newRef, err := s.Insert(hash, key, value)
	if err != nil {
		return NilRef, err
	}
	if err := s.Remove(hash, ref); err != nil {
		return NilRef, err
	}
	return newRef, nil
}

func (s *arenaSegment) UpdateInPlace(ref Ref, value []byte) error {
	if len(value) > s.valueCap(uint32(ref)) {
		return ErrWontFit
	}
	vStart := s.valueStart(uint32(ref))
	copy(s.slab[vStart:], value)
	s.setValSize(uint32(ref), len(value))
	return nil
}

func (s *arenaSegment) KeyBytes(ref Ref) []byte {
	off := uint32(ref)
	kStart := int(off) + entryHeaderSize
	return s.slab[kStart : kStart+s.keyLen(off)]
}

func (s *arenaSegment) ValueBytes(ref Ref) []byte {
	off := uint32(ref)
	vStart := s.valueStart(off)
	return s.slab[vStart : vStart+s.valSize(off)]
}

func (s *arenaSegment) Range(fn func(ref Ref) bool) {
	for _, head := range s.buckets {
		off := head
		for off != nilOff {
			next := s.next(off)
			if !fn(Ref(off)) {
				return
			}
			off = next
		}
	}
}

func (s *arenaSegment) Clear() {
	for i := range s.inUse {
		s.inUse[i] = 0
	}
	s.buckets = make(map[uint64]uint32)
	s.entries = 0
	s.usedChunks = 0
}

func (s *arenaSegment) Len() int {
	return s.entries
}

// unlink removes the entry at off from its bucket chain.
func (s *arenaSegment) unlink(hash uint64, off uint32) error {
	cur, ok := s.buckets[hash]
	if !ok {
		return ErrInvalidRef
	}
	if cur == off {
		next := s.next(off)
		if next == nilOff {
			delete(s.buckets, hash)
		} else {
			s.buckets[hash] = next
		}
		return nil
	}
	for cur != nilOff {
		next := s.next(cur)
		if next == off {
			s.setNext(cur, s.next(off))
			return nil
		}
		cur = next
	}
	return ErrInvalidRef
}
