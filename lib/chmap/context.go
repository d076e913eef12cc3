package chmap

import (
	"github.com/petermattis/goid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/imlxw/Chronicle-Map/lib/engine"
)

// --------------------------------------------------------------------------
// Context Pool
// --------------------------------------------------------------------------

// contextPool caches one root QueryContext per goroutine. When a map
// operation is invoked while the goroutine's root context is active - i.e.
// the call is nested inside another operation on the same goroutine, such as
// a remapping callback calling back into the map - the pool walks the root's
// explicit chain and hands out the first idle chained context, lazily
// appending one. The active context is never reused, so a nested call can
// never corrupt the in-flight operation's staged key, value or lock; the
// non-nested common case pays no allocation after warm-up.
//
// Contexts never migrate between goroutines: the registry is keyed by
// goroutine id, and goroutine ids are never reused by the runtime. Root
// contexts are retained for the lifetime of the map (cleared by Map.Close).
type contextPool[K, V any] struct {
	m     *Map[K, V]
	roots *xsync.MapOf[int64, *QueryContext[K, V]]
}

func newContextPool[K, V any](m *Map[K, V]) *contextPool[K, V] {
	return &contextPool[K, V]{
		m:     m,
		roots: xsync.NewMapOf[int64, *QueryContext[K, V]](),
	}
}

// acquire returns an idle context owned by the calling goroutine and marks
// it active.
func (p *contextPool[K, V]) acquire() *QueryContext[K, V] {
	gid := goid.Get()
	root, _ := p.roots.LoadOrCompute(gid, func() *QueryContext[K, V] {
		return p.m.newContext()
	})

	c := root
	c.chainRoot = root
	for c.used {
		if c.next == nil {
			c.next = p.m.newContext()
			c.next.chainRoot = root
		}
		c = c.next
	}
	c.used = true
	return c
}

// drop forgets all cached contexts.
func (p *contextPool[K, V]) drop() {
	p.roots.Clear()
}

// --------------------------------------------------------------------------
// Query Context
// --------------------------------------------------------------------------

// QueryContext is the reusable scratch object for one in-flight operation:
// it stages the encoded input key and value, holds the segment guard for the
// duration of the operation, and carries the return-value holders. A context
// is either idle (used=false, no guard) or active (used=true, key staged,
// guard held); its staged state is cleared on every close.
type QueryContext[K, V any] struct {
	m *Map[K, V]

	used      bool
	next      *QueryContext[K, V] // reentrancy chain
	chainRoot *QueryContext[K, V]

	key     K
	keyBuf  []byte // staged encoded key
	keyHash uint64
	valBuf  []byte // staged encoded input value
	scratch []byte // re-encode buffer for merge/compute results

	seg      engine.Segment
	guard    *engine.Guard
	borrowed bool // guard belongs to an outer context in the chain

	entry engine.Ref
	found bool

	fresh freshReturn[V]
	using usingReturn[V]
}

// stageKey encodes the key into the context's reusable buffer and resolves
// the owning segment.
func (q *QueryContext[K, V]) stageKey(key K) {
	q.key = key
	n := q.m.keyCodec.EncodedSize(key)
	q.keyBuf = grow(q.keyBuf, n)
	q.m.keyCodec.Encode(q.keyBuf, key)
	q.keyHash = q.m.storage.HashKey(q.keyBuf)
	q.seg = q.m.storage.SegmentFor(q.keyHash)
}

// stageValue encodes the input value into the context's reusable buffer.
func (q *QueryContext[K, V]) stageValue(value V) {
	n := q.m.valueCodec.EncodedSize(value)
	q.valBuf = grow(q.valBuf, n)
	q.m.valueCodec.Encode(q.valBuf, value)
}

// lockSegment acquires the segment guard - the only blocking point of an
// operation. When an outer context in the same goroutine's chain already
// holds this segment, the guard is borrowed instead of re-acquired (a second
// acquisition would deadlock against ourselves). A borrowed read guard
// cannot serve a write operation: locks are never upgraded inside callbacks.
func (q *QueryContext[K, V]) lockSegment(mode engine.LockMode) error {
	if outer := q.outerHolding(q.seg); outer != nil {
		if mode == engine.WriteLock && outer.guard.Mode() != engine.WriteLock {
			return newError(CodeLockUpgrade,
				"nested write on a segment locked for read by the enclosing operation")
		}
		q.guard = outer.guard
		q.borrowed = true
		return nil
	}
	q.guard = q.seg.Acquire(mode)
	return nil
}

// unlockSegment releases a non-borrowed guard and clears the per-segment
// state, so a multi-segment operation can move on to the next segment
// without closing the context.
func (q *QueryContext[K, V]) unlockSegment() error {
	var err error
	if q.guard != nil && !q.borrowed {
		err = q.guard.Release()
	}
	q.guard = nil
	q.borrowed = false
	q.seg = nil
	q.entry = engine.NilRef
	q.found = false
	return err
}

// outerHolding finds the closest active context in this goroutine's chain
// (excluding q itself) that holds a live guard on seg.
func (q *QueryContext[K, V]) outerHolding(seg engine.Segment) *QueryContext[K, V] {
	for c := q.chainRoot; c != nil; c = c.next {
		if c == q {
			continue
		}
		if c.used && c.seg == seg && c.guard != nil && c.guard.Held() && !c.borrowed {
			return c
		}
	}
	return nil
}

// close releases the context: staged key/value/return holders are cleared
// and the guard is released exactly once. It returns the primary error,
// with any release failure attached as a suppressed secondary failure -
// never replacing and never swallowing the primary.
func (q *QueryContext[K, V]) close(primary error) error {
	var releaseErr error
	if q.guard != nil && !q.borrowed {
		releaseErr = q.guard.Release()
	}
	q.guard = nil
	q.borrowed = false
	q.seg = nil
	q.entry = engine.NilRef
	q.found = false

	q.keyBuf = q.keyBuf[:0]
	q.valBuf = q.valBuf[:0]
	q.scratch = q.scratch[:0]
	var zeroK K
	q.key = zeroK
	q.fresh.reset()
	q.using.reset()

	q.used = false

	if releaseErr != nil {
		if primary != nil {
			return attach(primary, releaseErr)
		}
		return wrapError(CodeInternal, "segment guard release failed", releaseErr)
	}
	return primary
}

// --------------------------------------------------------------------------
// Accessors for map-operation strategies
// --------------------------------------------------------------------------

// Key returns the staged key instance.
func (q *QueryContext[K, V]) Key() K { return q.key }

// KeyBytes returns the staged encoded key.
func (q *QueryContext[K, V]) KeyBytes() []byte { return q.keyBuf }

// InputValue returns the staged encoded input value.
func (q *QueryContext[K, V]) InputValue() []byte { return q.valBuf }

// Segment returns the locked segment.
func (q *QueryContext[K, V]) Segment() engine.Segment { return q.seg }

// Lookup resolves the staged key's entry in the locked segment and caches
// the result on the context.
func (q *QueryContext[K, V]) Lookup() bool {
	q.entry, q.found = q.seg.Lookup(q.keyHash, q.keyBuf)
	return q.found
}

// Found reports whether the last Lookup hit an entry.
func (q *QueryContext[K, V]) Found() bool { return q.found }

// EntryValue returns a zero-copy view of the current entry's value. Valid
// only while the segment guard is held and until the entry is mutated.
func (q *QueryContext[K, V]) EntryValue() []byte {
	return q.seg.ValueBytes(q.entry)
}

// InsertEntry creates the entry for the staged key with the given encoded
// value.
func (q *QueryContext[K, V]) InsertEntry(value []byte) error {
	ref, err := q.m.entryOps.Insert(q.seg, q.keyHash, q.keyBuf, value)
	if err != nil {
		return wrapEngine(err)
	}
	q.entry = ref
	q.found = true
	return nil
}

// RemoveEntry deletes the current entry.
func (q *QueryContext[K, V]) RemoveEntry() error {
	if err := q.m.entryOps.Remove(q.seg, q.keyHash, q.entry); err != nil {
		return wrapEngine(err)
	}
	q.entry = engine.NilRef
	q.found = false
	return nil
}

// ReplaceEntry overwrites the current entry's value, relocating if needed.
func (q *QueryContext[K, V]) ReplaceEntry(value []byte) error {
	ref, err := q.m.entryOps.ReplaceValue(q.seg, q.keyHash, q.entry, value)
	if err != nil {
		return wrapEngine(err)
	}
	q.entry = ref
	return nil
}

// Scratch returns an n-byte scratch buffer owned by the context, reused
// across operations.
func (q *QueryContext[K, V]) Scratch(n int) []byte {
	q.scratch = grow(q.scratch, n)
	return q.scratch
}

// DefaultValueBytes supplies the encoded default value for the staged key
// per the map's default-value policy.
func (q *QueryContext[K, V]) DefaultValueBytes() ([]byte, error) {
	return q.m.defaultValueBytes(q)
}

// DiscardReturnValue returns the non-materializing holder.
func (q *QueryContext[K, V]) DiscardReturnValue() ReturnValue[V] {
	return discardReturn[V]{}
}

// DefaultReturnValue returns the context's fresh-instance holder.
func (q *QueryContext[K, V]) DefaultReturnValue() ReturnValue[V] {
	q.fresh.codec = q.m.valueCodec
	q.fresh.reset()
	return &q.fresh
}

// UsingReturnValue returns the context's given-instance holder, bound to the
// caller-supplied instance.
func (q *QueryContext[K, V]) UsingReturnValue(given V) ReturnValue[V] {
	q.using.codec = q.m.inPlace
	q.using.init(given)
	return &q.using
}

// grow returns buf resized to n bytes, reallocating only when the capacity
// is insufficient.
func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
