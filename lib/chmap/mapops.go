package chmap

import "bytes"

// --------------------------------------------------------------------------
// Remapping callbacks
// --------------------------------------------------------------------------

// RemapFunc combines an existing value with a merge operand. Returning
// ok=false removes the entry (the Go rendering of a nil-returning remapping
// function). The arguments are owned, decoded instances; implementations
// must not retain any byte views obtained through other means beyond the
// call, since such views are only valid while the segment lock is held.
//
// A RemapFunc may invoke operations on the same map: the context pool hands
// the nested call a separate context, and a nested operation targeting the
// same segment shares the already-held lock. The enclosing operation
// re-resolves its entry after the callback returns, so a nested mutation of
// the same key is observed rather than overwritten.
type RemapFunc[V any] func(old, operand V) (V, bool)

// ComputeFunc computes an entry's new value from the key and the existing
// value (exists=false means the key was absent and old is the zero value).
// Returning ok=false removes the entry (or leaves an absent key absent).
// The retention and reentrancy rules of RemapFunc apply.
type ComputeFunc[K, V any] func(key K, old V, exists bool) (V, bool)

// --------------------------------------------------------------------------
// Map Operations (semantic composition)
// --------------------------------------------------------------------------

// MapOps composes entry operations, codecs and return-value holders into the
// full map-operation semantics. Each method runs inside one query context:
// the segment guard is held, the key is staged, and for value-taking
// operations the encoded input value is staged on the context. Callback-free
// methods perform exactly one lookup of the key's entry followed by at most
// one mutation; Merge and Compute look up again after the callback, since a
// nested call may have relocated or removed the entry.
//
// The default strategy is VanillaMapOps; persistence or replication layers
// substitute their own implementation.
type MapOps[K, V any] interface {
	Get(q *QueryContext[K, V], ret ReturnValue[V]) error
	Put(q *QueryContext[K, V], ret ReturnValue[V]) error
	PutIfAbsent(q *QueryContext[K, V], ret ReturnValue[V]) error
	Remove(q *QueryContext[K, V], ret ReturnValue[V]) error
	RemoveIf(q *QueryContext[K, V]) (bool, error)
	Replace(q *QueryContext[K, V], ret ReturnValue[V]) error
	ReplaceIf(q *QueryContext[K, V], newValue []byte) (bool, error)
	Has(q *QueryContext[K, V]) (bool, error)
	Merge(q *QueryContext[K, V], operand V, fn RemapFunc[V], ret ReturnValue[V]) error
	Compute(q *QueryContext[K, V], fn ComputeFunc[K, V], ret ReturnValue[V]) error
	AcquireUsing(q *QueryContext[K, V], ret ReturnValue[V]) error
}

// VanillaMapOps returns the default map-operations strategy.
func VanillaMapOps[K, V any]() MapOps[K, V] {
	return vanillaOps[K, V]{}
}

type vanillaOps[K, V any] struct{}

func (vanillaOps[K, V]) Get(q *QueryContext[K, V], ret ReturnValue[V]) error {
	if q.Lookup() {
		ret.Stage(q.EntryValue())
	}
	return nil
}

func (vanillaOps[K, V]) Put(q *QueryContext[K, V], ret ReturnValue[V]) error {
	if q.Lookup() {
		// stage the previous value before it is overwritten
		ret.Stage(q.EntryValue())
		return q.ReplaceEntry(q.InputValue())
	}
	return q.InsertEntry(q.InputValue())
}

func (vanillaOps[K, V]) PutIfAbsent(q *QueryContext[K, V], ret ReturnValue[V]) error {
	if q.Lookup() {
		ret.Stage(q.EntryValue())
		return nil
	}
	return q.InsertEntry(q.InputValue())
}

func (vanillaOps[K, V]) Remove(q *QueryContext[K, V], ret ReturnValue[V]) error {
	if !q.Lookup() {
		return nil
	}
	ret.Stage(q.EntryValue())
	return q.RemoveEntry()
}

func (vanillaOps[K, V]) RemoveIf(q *QueryContext[K, V]) (bool, error) {
	if !q.Lookup() {
		return false, nil
	}
	if !bytes.Equal(q.EntryValue(), q.InputValue()) {
		return false, nil
	}
	if err := q.RemoveEntry(); err != nil {
		return false, err
	}
	return true, nil
}

func (vanillaOps[K, V]) Replace(q *QueryContext[K, V], ret ReturnValue[V]) error {
	if !q.Lookup() {
		// absent keys are never inserted by replace
		return nil
	}
	ret.Stage(q.EntryValue())
	return q.ReplaceEntry(q.InputValue())
}

func (vanillaOps[K, V]) ReplaceIf(q *QueryContext[K, V], newValue []byte) (bool, error) {
	if !q.Lookup() {
		return false, nil
	}
	if !bytes.Equal(q.EntryValue(), q.InputValue()) {
		return false, nil
	}
	if err := q.ReplaceEntry(newValue); err != nil {
		return false, err
	}
	return true, nil
}

func (vanillaOps[K, V]) Has(q *QueryContext[K, V]) (bool, error) {
	return q.Lookup(), nil
}

func (o vanillaOps[K, V]) Merge(q *QueryContext[K, V], operand V, fn RemapFunc[V], ret ReturnValue[V]) error {
	if !q.Lookup() {
		if err := q.InsertEntry(q.InputValue()); err != nil {
			return err
		}
		ret.Stage(q.EntryValue())
		return nil
	}

	old := q.m.valueCodec.Decode(q.EntryValue())
	merged, keep := fn(old, operand)
	// a nested call from fn may have moved or removed this key's entry;
	// the cached ref must not be trusted after the callback returns
	q.Lookup()
	if !keep {
		if !q.Found() {
			return nil
		}
		// the remapping function voted to drop the entry
		return q.RemoveEntry()
	}
	return o.storeResult(q, merged, ret)
}

func (o vanillaOps[K, V]) Compute(q *QueryContext[K, V], fn ComputeFunc[K, V], ret ReturnValue[V]) error {
	var old V
	exists := q.Lookup()
	if exists {
		old = q.m.valueCodec.Decode(q.EntryValue())
	}

	result, keep := fn(q.Key(), old, exists)
	// re-resolve: fn may have mutated this key through a nested call
	q.Lookup()
	if !keep {
		if q.Found() {
			return q.RemoveEntry()
		}
		return nil
	}
	return o.storeResult(q, result, ret)
}

// storeResult encodes a remapping result, writes it as the entry's value
// (insert or overwrite) and stages it as the operation result.
func (vanillaOps[K, V]) storeResult(q *QueryContext[K, V], result V, ret ReturnValue[V]) error {
	if err := q.m.valueCodec.Check(result); err != nil {
		return wrapError(CodeTypeMismatch, "remapping result rejected by value codec", err)
	}
	buf := q.Scratch(q.m.valueCodec.EncodedSize(result))
	q.m.valueCodec.Encode(buf, result)

	var err error
	if q.Found() {
		err = q.ReplaceEntry(buf)
	} else {
		err = q.InsertEntry(buf)
	}
	if err != nil {
		return err
	}
	ret.Stage(q.EntryValue())
	return nil
}

func (vanillaOps[K, V]) AcquireUsing(q *QueryContext[K, V], ret ReturnValue[V]) error {
	if !q.Lookup() {
		value, err := q.DefaultValueBytes()
		if err != nil {
			return err
		}
		if err := q.InsertEntry(value); err != nil {
			return err
		}
	}
	ret.Stage(q.EntryValue())
	return nil
}
