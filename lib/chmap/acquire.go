package chmap

import "github.com/imlxw/Chronicle-Map/lib/engine"

// --------------------------------------------------------------------------
// Scoped Entry Access
// --------------------------------------------------------------------------

// AcquireContext is a scoped handle on a single entry. It holds the entry's
// segment write-locked from AcquireContext until Close, so a read-modify-write
// sequence through the handle is atomic with respect to all other operations
// on that segment. Close must be called on every handle, typically deferred;
// a handle must not outlive its operation scope and must not be shared
// between goroutines.
type AcquireContext[K, V any] struct {
	m      *Map[K, V]
	q      *QueryContext[K, V]
	closed bool
}

// AcquireContext opens a write-locked handle on key's entry. The entry need
// not exist yet; Found reports whether it does, and Set creates it. Nested
// map operations from the holding goroutine follow the usual reentrancy
// rules: reads on the same segment share this handle's lock, reads and
// writes on other segments take their own.
func (m *Map[K, V]) AcquireContext(key K) (*AcquireContext[K, V], error) {
	if err := m.checkKey(key); err != nil {
		return nil, err
	}
	m.metrics.acquires.Inc()

	q, err := m.open(key, engine.WriteLock)
	if err != nil {
		return nil, err
	}
	q.Lookup()
	return &AcquireContext[K, V]{m: m, q: q}, nil
}

func (a *AcquireContext[K, V]) check() error {
	if a.closed {
		return newError(CodeInternal, "acquire context used after close")
	}
	return nil
}

// Key returns the key this handle is scoped to.
func (a *AcquireContext[K, V]) Key() K { return a.q.Key() }

// Found reports whether the entry currently exists.
func (a *AcquireContext[K, V]) Found() bool { return a.q.Found() }

// Value decodes and returns the current value. The bool is false when the
// entry does not exist.
func (a *AcquireContext[K, V]) Value() (V, bool, error) {
	var zero V
	if err := a.check(); err != nil {
		return zero, false, err
	}
	if !a.q.Found() {
		return zero, false, nil
	}
	return a.m.valueCodec.Decode(a.q.EntryValue()), true, nil
}

// ValueBytes returns a zero-copy view of the current value, or nil when the
// entry does not exist. The slice is only valid until the next mutation
// through this handle or Close.
func (a *AcquireContext[K, V]) ValueBytes() ([]byte, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if !a.q.Found() {
		return nil, nil
	}
	return a.q.EntryValue(), nil
}

// Set writes value, creating the entry when absent and replacing it
// otherwise.
func (a *AcquireContext[K, V]) Set(value V) error {
	if err := a.check(); err != nil {
		return err
	}
	if err := a.m.checkValue(value); err != nil {
		return err
	}
	buf := a.q.Scratch(a.m.valueCodec.EncodedSize(value))
	a.m.valueCodec.Encode(buf, value)
	a.m.metrics.valueSize.Update(float64(len(buf)))
	if a.q.Found() {
		return a.q.ReplaceEntry(buf)
	}
	return a.q.InsertEntry(buf)
}

// Remove deletes the entry. Removing an absent entry is a no-op.
func (a *AcquireContext[K, V]) Remove() error {
	if err := a.check(); err != nil {
		return err
	}
	if !a.q.Found() {
		return nil
	}
	return a.q.RemoveEntry()
}

// Close releases the segment lock and recycles the handle's context. It is
// idempotent.
func (a *AcquireContext[K, V]) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.q.close(nil)
}
