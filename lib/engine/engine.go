package engine

import (
	"fmt"
	"runtime"

	"github.com/imlxw/Chronicle-Map/lib/logging"
)

// --------------------------------------------------------------------------
// Constants and Options
// --------------------------------------------------------------------------

const (
	defaultSegmentBytes = 1 << 20 // 1 MB slab per segment
	defaultChunkSize    = 64      // allocation granularity in bytes
	defaultAlignment    = 8       // value start alignment
)

// Options configures the arena engine during initialization.
type Options struct {
	Segments     int // Number of segments (0 = one per CPU)
	SegmentBytes int // Slab size per segment in bytes (0 = 1 MB)
	ChunkSize    int // Allocation granularity in bytes (0 = 64)
	Alignment    int // Value start alignment, power of two (0 = 8, 1 = none)
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		Segments:     runtime.NumCPU(),
		SegmentBytes: defaultSegmentBytes,
		ChunkSize:    defaultChunkSize,
		Alignment:    defaultAlignment,
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Storage is the engine-level interface consumed by the map core. All entry
// memory lives behind this interface; the core only ever sees encoded bytes
// and opaque Refs.
type Storage interface {
	// HashKey hashes an encoded key with the engine's seed. The same engine
	// instance always produces the same hash for the same bytes.
	HashKey(key []byte) uint64

	// SegmentFor returns the segment owning the given key hash.
	SegmentFor(hash uint64) Segment

	// SegmentList returns all segments in iteration order.
	SegmentList() []Segment

	// Info reports utilization statistics. It briefly read-locks each
	// segment in turn.
	Info() Info

	// Close releases the engine. Segments must not be used afterwards.
	Close() error
}

// Segment is one lockable partition of the store. Every method except
// Acquire assumes the caller holds the segment's Guard: in read mode for
// Lookup/KeyBytes/ValueBytes/Range/Len, in write mode for mutations.
type Segment interface {
	// Acquire blocks until the segment lock is held in the given mode and
	// returns the guard for it.
	Acquire(mode LockMode) *Guard

	// Lookup finds the entry for the given hash and exact key bytes.
	Lookup(hash uint64, key []byte) (Ref, bool)

	// Insert allocates and writes a new entry. The caller guarantees the key
	// is absent. Returns ErrSegmentFull when no space can be found.
	Insert(hash uint64, key, value []byte) (Ref, error)

	// Remove deletes the entry and frees its space. The ref is invalid
	// afterwards.
	Remove(hash uint64, ref Ref) error

	// ReplaceValue overwrites the entry's value, relocating the entry when
	// the new value does not fit into its allocated capacity. The returned
	// ref supersedes the given one.
	ReplaceValue(hash uint64, ref Ref, value []byte) (Ref, error)

	// UpdateInPlace overwrites the entry's value without relocation. Returns
	// ErrWontFit when the new value exceeds the entry's allocated capacity.
	UpdateInPlace(ref Ref, value []byte) error

	// KeyBytes returns a zero-copy view of the entry's key. The slice is
	// valid only while the segment lock is held.
	KeyBytes(ref Ref) []byte

	// ValueBytes returns a zero-copy view of the entry's value. The slice is
	// valid only while the segment lock is held and until the entry is
	// mutated.
	ValueBytes(ref Ref) []byte

	// Range visits every entry in the segment until fn returns false. The
	// visited refs must not be mutated during the walk.
	Range(fn func(ref Ref) bool)

	// Clear removes all entries and resets the allocator.
	Clear()

	// Len returns the number of live entries.
	Len() int
}

// Info describes engine utilization at a point in time.
type Info struct {
	SegmentCount int               `json:"segment_count"`
	TotalBytes   int               `json:"total_bytes"`
	UsedBytes    int               `json:"used_bytes"`
	Entries      int               `json:"entries"`
	Distribution DistributionStats `json:"distribution"`
}

// --------------------------------------------------------------------------
// Arena Engine
// --------------------------------------------------------------------------

// arenaEngine implements Storage over per-segment byte slabs.
type arenaEngine struct {
	seed     uint64
	segments []*arenaSegment
	logger   logging.Logger
}

// NewArenaEngine creates a new engine instance with the specified options
// (nil = defaults).
//
// Thread-safety: this function is not thread-safe and should only be called
// once during initialization; the returned Storage is fully concurrent.
func NewArenaEngine(opts *Options) (Storage, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	segments := opts.Segments
	if segments <= 0 {
		segments = runtime.NumCPU()
	}
	segmentBytes := opts.SegmentBytes
	if segmentBytes <= 0 {
		segmentBytes = defaultSegmentBytes
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	alignment := opts.Alignment
	if alignment <= 0 {
		alignment = defaultAlignment
	}

	if alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("engine: alignment must be a power of two, got %d", alignment)
	}
	if chunkSize < entryHeaderSize {
		return nil, fmt.Errorf("engine: chunk size %d is below the entry header size %d", chunkSize, entryHeaderSize)
	}
	if segmentBytes%chunkSize != 0 {
		return nil, fmt.Errorf("engine: segment size %d is not a multiple of chunk size %d", segmentBytes, chunkSize)
	}

	// When the chunk size is itself a multiple of the alignment, every chunk
	// boundary is aligned and value placement is fully determined by the
	// sizes. Otherwise the actual padding depends on where an allocation
	// lands, and variable-size writes must re-check the fit.
	uncertain := gcd(chunkSize, alignment) != alignment

	seed := generateSeed()
	segs := make([]*arenaSegment, segments)
	for i := range segs {
		segs[i] = newArenaSegment(segmentBytes, chunkSize, alignment, uncertain)
	}

	logger := logging.New("engine")
	logger.Debugf("created arena engine (segments=%d, segmentBytes=%d, chunkSize=%d, alignment=%d)",
		segments, segmentBytes, chunkSize, alignment)

	return &arenaEngine{
		seed:     seed,
		segments: segs,
		logger:   logger,
	}, nil
}

func (e *arenaEngine) HashKey(key []byte) uint64 {
	return hashBytes(key, e.seed)
}

// SegmentFor routes a key hash to its segment. The hash is shifted right to
// use higher-quality bits for the distribution.
func (e *arenaEngine) SegmentFor(hash uint64) Segment {
	return e.segments[(hash>>7)%uint64(len(e.segments))]
}

func (e *arenaEngine) SegmentList() []Segment {
	out := make([]Segment, len(e.segments))
	for i, s := range e.segments {
		out[i] = s
	}
	return out
}

func (e *arenaEngine) Info() Info {
	info := Info{SegmentCount: len(e.segments)}
	loads := make([]float64, len(e.segments))

	for i, s := range e.segments {
		g := s.Acquire(ReadLock)
		info.TotalBytes += len(s.slab)
		info.UsedBytes += s.usedChunks * s.chunkSize
		info.Entries += s.entries
		loads[i] = float64(s.entries)
		_ = g.Release()
	}

	info.Distribution = newDistributionStats(loads)
	return info
}

func (e *arenaEngine) Close() error {
	e.logger.Debugf("closing arena engine (%d segments)", len(e.segments))
	for _, s := range e.segments {
		g := s.Acquire(WriteLock)
		s.Clear()
		s.slab = nil
		_ = g.Release()
	}
	return nil
}
