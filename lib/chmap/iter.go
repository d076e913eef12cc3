package chmap

import (
	"fmt"
	"strings"

	"github.com/imlxw/Chronicle-Map/lib/engine"
)

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// Range visits every entry until fn returns false. Iteration locks one
// segment at a time in read mode and releases it before moving to the next,
// so point operations on other segments proceed unhindered; within one
// segment the visit order is unspecified. fn receives owned, decoded
// instances. Range may be invoked from inside a callback of this map: a
// segment whose lock the enclosing operation already holds is visited under
// that lock instead of being re-acquired.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) error {
	m.metrics.iters.Inc()
	c := m.pool.acquire()

	var opErr error
	for _, seg := range m.storage.SegmentList() {
		c.seg = seg
		if err := c.lockSegment(engine.ReadLock); err != nil {
			opErr = err
			break
		}

		cont := true
		seg.Range(func(ref engine.Ref) bool {
			k := m.keyCodec.Decode(seg.KeyBytes(ref))
			v := m.valueCodec.Decode(seg.ValueBytes(ref))
			cont = fn(k, v)
			return cont
		})

		if err := c.unlockSegment(); err != nil {
			opErr = wrapError(CodeInternal, "segment guard release failed during iteration", err)
			break
		}
		if !cont {
			break
		}
	}
	return c.close(opErr)
}

// Len counts the live entries. Like Range it locks one segment at a time,
// so the count is a consistent-per-segment snapshot, not a global one.
func (m *Map[K, V]) Len() (int, error) {
	c := m.pool.acquire()
	total := 0
	var opErr error
	for _, seg := range m.storage.SegmentList() {
		c.seg = seg
		if err := c.lockSegment(engine.ReadLock); err != nil {
			opErr = err
			break
		}
		total += seg.Len()
		if err := c.unlockSegment(); err != nil {
			opErr = wrapError(CodeInternal, "segment guard release failed", err)
			break
		}
	}
	if err := c.close(opErr); err != nil {
		return 0, err
	}
	return total, nil
}

// Clear removes all entries, segment by segment. A Clear nested inside a
// read-locked callback fails with CodeLockUpgrade on the held segment.
func (m *Map[K, V]) Clear() error {
	c := m.pool.acquire()
	var opErr error
	for _, seg := range m.storage.SegmentList() {
		c.seg = seg
		if err := c.lockSegment(engine.WriteLock); err != nil {
			opErr = err
			break
		}
		seg.Clear()
		if err := c.unlockSegment(); err != nil {
			opErr = wrapError(CodeInternal, "segment guard release failed", err)
			break
		}
	}
	return c.close(opErr)
}

// stringSampleLimit bounds how many entries String renders.
const stringSampleLimit = 8

// String renders a bounded sample of the map's content.
func (m *Map[K, V]) String() string {
	var sb strings.Builder
	sb.WriteString("chmap.Map{")
	n := 0
	_ = m.Range(func(k K, v V) bool {
		if n > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v: %v", k, v)
		n++
		return n < stringSampleLimit
	})
	if n == stringSampleLimit {
		sb.WriteString(", ...")
	}
	sb.WriteString("}")
	return sb.String()
}

// --------------------------------------------------------------------------
// Zero-copy access
// --------------------------------------------------------------------------

// GetView calls fn with a zero-copy view of the entry's value bytes while
// the segment's read lock is held. The slice is only valid inside fn; it
// must not be retained or mutated. The bool reports whether a mapping
// existed (fn is not called otherwise).
func (m *Map[K, V]) GetView(key K, fn func(value []byte) error) (bool, error) {
	if err := m.checkKey(key); err != nil {
		return false, err
	}
	m.metrics.gets.Inc()

	q, err := m.open(key, engine.ReadLock)
	if err != nil {
		return false, err
	}
	var opErr error
	found := q.Lookup()
	if found {
		opErr = fn(q.EntryValue())
	}
	if err := q.close(opErr); err != nil {
		return false, err
	}
	return found, nil
}
