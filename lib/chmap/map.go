package chmap

import (
	"errors"
	"sync/atomic"

	"github.com/imlxw/Chronicle-Map/lib/engine"
	"github.com/imlxw/Chronicle-Map/lib/serial"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a Map at construction. KeyCodec and ValueCodec are
// required; everything else has working defaults.
type Options[K, V any] struct {
	// Name labels the map's metrics. Defaults to "default".
	Name string

	// KeyCodec and ValueCodec move keys and values in and out of segment
	// memory.
	KeyCodec   serial.Codec[K]
	ValueCodec serial.Codec[V]

	// Engine supplies the segmented storage. When nil, an arena engine is
	// created from EngineOptions (or engine defaults) and owned by the map.
	Engine        engine.Storage
	EngineOptions *engine.Options

	// PutReturnsNull and RemoveReturnsNull suppress decoding of previous
	// values in Put and Remove respectively: the operations then always
	// report (zero, false) and skip the decode entirely.
	PutReturnsNull    bool
	RemoveReturnsNull bool

	// DefaultValue supplies values for acquire-style operations on a miss.
	// Leaving it nil makes acquire-style calls fail with CodeNoDefaultValue.
	DefaultValue DefaultValueProvider[K, V]

	// EntryOps and MapOps replace the primitive-mutation and
	// operation-composition strategies. Nil selects the vanilla strategies.
	EntryOps EntryOps
	MapOps   MapOps[K, V]
}

// --------------------------------------------------------------------------
// Map
// --------------------------------------------------------------------------

// Map is an embedded, off-heap, segment-locked concurrent key-value map.
// All configuration is fixed at construction; a Map is safe for concurrent
// use by any number of goroutines.
type Map[K, V any] struct {
	name string

	keyCodec   serial.Codec[K]
	valueCodec serial.Codec[V]
	inPlace    serial.InPlaceCodec[V] // nil when the value codec has no in-place support

	storage     engine.Storage
	ownsStorage bool

	putReturnsNull    bool
	removeReturnsNull bool

	defaultValue DefaultValueProvider[K, V]
	constDefault []byte // pre-encoded constant default value

	entryOps EntryOps
	ops      MapOps[K, V]

	pool    *contextPool[K, V]
	metrics *mapMetrics
	closed  atomic.Bool
}

// New creates a map instance.
//
// Thread-safety: this function is not thread-safe and should only be called
// once per map during initialization.
func New[K, V any](opts Options[K, V]) (*Map[K, V], error) {
	if opts.KeyCodec == nil || opts.ValueCodec == nil {
		return nil, errors.New("chmap: key and value codecs are required")
	}

	name := opts.Name
	if name == "" {
		name = "default"
	}

	storage := opts.Engine
	owns := false
	if storage == nil {
		var err error
		storage, err = engine.NewArenaEngine(opts.EngineOptions)
		if err != nil {
			return nil, err
		}
		owns = true
	}

	m := &Map[K, V]{
		name:              name,
		keyCodec:          opts.KeyCodec,
		valueCodec:        opts.ValueCodec,
		storage:           storage,
		ownsStorage:       owns,
		putReturnsNull:    opts.PutReturnsNull,
		removeReturnsNull: opts.RemoveReturnsNull,
		defaultValue:      opts.DefaultValue,
		entryOps:          opts.EntryOps,
		ops:               opts.MapOps,
		metrics:           newMapMetrics(name),
	}
	m.inPlace, _ = opts.ValueCodec.(serial.InPlaceCodec[V])
	if m.entryOps == nil {
		m.entryOps = VanillaEntryOps()
	}
	if m.ops == nil {
		m.ops = VanillaMapOps[K, V]()
	}
	m.pool = newContextPool(m)

	// a constant default value is encoded exactly once and reused
	if cv, ok := opts.DefaultValue.(*constantValue[K, V]); ok {
		if err := m.valueCodec.Check(cv.v); err != nil {
			return nil, wrapError(CodeTypeMismatch, "constant default value rejected by value codec", err)
		}
		buf := make([]byte, m.valueCodec.EncodedSize(cv.v))
		m.valueCodec.Encode(buf, cv.v)
		m.constDefault = buf
	}

	return m, nil
}

// Storage exposes the underlying engine (read-only uses like Info).
func (m *Map[K, V]) Storage() engine.Storage { return m.storage }

// Close drops all pooled contexts and, when the map owns its engine,
// releases the engine. Operations must not be in flight.
func (m *Map[K, V]) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.pool.drop()
	if m.ownsStorage {
		return m.storage.Close()
	}
	return nil
}

func (m *Map[K, V]) newContext() *QueryContext[K, V] {
	return &QueryContext[K, V]{m: m, entry: engine.NilRef}
}

// --------------------------------------------------------------------------
// Pre-lock validation
// --------------------------------------------------------------------------

func (m *Map[K, V]) checkKey(key K) error {
	if err := m.keyCodec.Check(key); err != nil {
		return wrapError(CodeTypeMismatch, "key rejected by key codec", err)
	}
	return nil
}

func (m *Map[K, V]) checkValue(value V) error {
	if err := m.valueCodec.Check(value); err != nil {
		return wrapError(CodeTypeMismatch, "value rejected by value codec", err)
	}
	return nil
}

func (m *Map[K, V]) requireInPlace() error {
	if m.inPlace == nil {
		return newError(CodeTypeMismatch, "value codec does not support in-place decoding")
	}
	return nil
}

// --------------------------------------------------------------------------
// Context opening
// --------------------------------------------------------------------------

// open stages the key and locks the owning segment. If anything fails after
// the pool handed out the context, the context is closed before the error is
// returned - open never leaves a lock held on failure.
func (m *Map[K, V]) open(key K, mode engine.LockMode) (*QueryContext[K, V], error) {
	q := m.pool.acquire()
	q.stageKey(key)
	if err := q.lockSegment(mode); err != nil {
		return nil, q.close(err)
	}
	return q, nil
}

// openWithValue additionally stages the encoded input value. Staging happens
// before the lock is taken so encoding work never extends the critical
// section.
func (m *Map[K, V]) openWithValue(key K, value V, mode engine.LockMode) (*QueryContext[K, V], error) {
	q := m.pool.acquire()
	q.stageKey(key)
	q.stageValue(value)
	if err := q.lockSegment(mode); err != nil {
		return nil, q.close(err)
	}
	return q, nil
}

// defaultValueBytes resolves the default-value policy for the staged key.
func (m *Map[K, V]) defaultValueBytes(q *QueryContext[K, V]) ([]byte, error) {
	if m.defaultValue == nil {
		return nil, newError(CodeNoDefaultValue,
			"acquire-style operation on a map without a configured default value")
	}
	if m.constDefault != nil {
		return m.constDefault, nil
	}
	v := m.defaultValue.Supply(q.Key())
	if err := m.valueCodec.Check(v); err != nil {
		return nil, wrapError(CodeTypeMismatch, "default value rejected by value codec", err)
	}
	buf := q.Scratch(m.valueCodec.EncodedSize(v))
	m.valueCodec.Encode(buf, v)
	return buf, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the value for key. The bool reports whether a mapping exists.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	m.metrics.gets.Inc()

	q, err := m.open(key, engine.ReadLock)
	if err != nil {
		return zero, false, err
	}
	ret := q.DefaultReturnValue()
	opErr := m.ops.Get(q, ret)
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, false, err
	}
	return v, ok, nil
}

// GetUsing is Get decoding into the caller-supplied instance. On a hit the
// returned value is exactly `using`; on a miss `using` is left untouched.
func (m *Map[K, V]) GetUsing(key K, using V) (V, bool, error) {
	var zero V
	if err := m.requireInPlace(); err != nil {
		return zero, false, err
	}
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	if err := m.checkValue(using); err != nil {
		return zero, false, err
	}
	m.metrics.gets.Inc()

	q, err := m.open(key, engine.ReadLock)
	if err != nil {
		return zero, false, err
	}
	ret := q.UsingReturnValue(using)
	opErr := m.ops.Get(q, ret)
	if opErr == nil && !q.using.verify() {
		opErr = newError(CodeAcquireContract, "get-using decoded into a foreign instance")
	}
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		return zero, false, err
	}
	return v, ok, nil
}

// Has reports whether a mapping for key exists.
func (m *Map[K, V]) Has(key K) (bool, error) {
	if err := m.checkKey(key); err != nil {
		return false, err
	}
	m.metrics.gets.Inc()

	q, err := m.open(key, engine.ReadLock)
	if err != nil {
		return false, err
	}
	found, opErr := m.ops.Has(q)
	if err := q.close(opErr); err != nil {
		return false, err
	}
	return found, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Put maps key to value and returns the previous value, unless the map is
// configured with PutReturnsNull in which case decoding is skipped and
// (zero, false) is reported.
func (m *Map[K, V]) Put(key K, value V) (V, bool, error) {
	var zero V
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	if err := m.checkValue(value); err != nil {
		return zero, false, err
	}
	m.metrics.puts.Inc()

	q, err := m.openWithValue(key, value, engine.WriteLock)
	if err != nil {
		return zero, false, err
	}
	m.metrics.valueSize.Update(float64(len(q.InputValue())))

	var ret ReturnValue[V]
	if m.putReturnsNull {
		ret = q.DiscardReturnValue()
	} else {
		ret = q.DefaultReturnValue()
	}
	opErr := m.ops.Put(q, ret)
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, false, err
	}
	return v, ok, nil
}

// PutIfAbsent inserts only when no mapping exists; it always reports the
// previous value (or none), regardless of the PutReturnsNull flag.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (V, bool, error) {
	var zero V
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	if err := m.checkValue(value); err != nil {
		return zero, false, err
	}
	m.metrics.puts.Inc()

	q, err := m.openWithValue(key, value, engine.WriteLock)
	if err != nil {
		return zero, false, err
	}
	ret := q.DefaultReturnValue()
	opErr := m.ops.PutIfAbsent(q, ret)
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, false, err
	}
	return v, ok, nil
}

// Remove deletes the mapping for key and returns the previous value, unless
// RemoveReturnsNull suppresses decoding.
func (m *Map[K, V]) Remove(key K) (V, bool, error) {
	var zero V
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	m.metrics.removes.Inc()

	q, err := m.open(key, engine.WriteLock)
	if err != nil {
		return zero, false, err
	}
	var ret ReturnValue[V]
	if m.removeReturnsNull {
		ret = q.DiscardReturnValue()
	} else {
		ret = q.DefaultReturnValue()
	}
	opErr := m.ops.Remove(q, ret)
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, false, err
	}
	return v, ok, nil
}

// RemoveIf deletes the mapping only when the present value equals *value
// (structural equality on the encoded form). A nil value never deletes and
// reports false - this mirrors the standard map contract where a null
// expected value cannot match anything.
func (m *Map[K, V]) RemoveIf(key K, value *V) (bool, error) {
	if value == nil {
		return false, nil
	}
	if err := m.checkKey(key); err != nil {
		return false, err
	}
	if err := m.checkValue(*value); err != nil {
		return false, err
	}
	m.metrics.removes.Inc()

	q, err := m.openWithValue(key, *value, engine.WriteLock)
	if err != nil {
		return false, err
	}
	removed, opErr := m.ops.RemoveIf(q)
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return false, err
	}
	return removed, nil
}

// Replace overwrites the value only when a mapping exists; absent keys are
// never inserted. It returns the previous value (or none).
func (m *Map[K, V]) Replace(key K, value V) (V, bool, error) {
	var zero V
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	if err := m.checkValue(value); err != nil {
		return zero, false, err
	}
	m.metrics.replaces.Inc()

	q, err := m.openWithValue(key, value, engine.WriteLock)
	if err != nil {
		return zero, false, err
	}
	ret := q.DefaultReturnValue()
	opErr := m.ops.Replace(q, ret)
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, false, err
	}
	return v, ok, nil
}

// ReplaceIf overwrites only when the present value equals old. It reports
// whether the replacement happened.
func (m *Map[K, V]) ReplaceIf(key K, old, new V) (bool, error) {
	if err := m.checkKey(key); err != nil {
		return false, err
	}
	if err := m.checkValue(old); err != nil {
		return false, err
	}
	if err := m.checkValue(new); err != nil {
		return false, err
	}
	m.metrics.replaces.Inc()

	q, err := m.openWithValue(key, old, engine.WriteLock)
	if err != nil {
		return false, err
	}
	buf := q.Scratch(m.valueCodec.EncodedSize(new))
	m.valueCodec.Encode(buf, new)

	replaced, opErr := m.ops.ReplaceIf(q, buf)
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return false, err
	}
	return replaced, nil
}

// Merge inserts value when key is absent; otherwise it stores
// fn(existing, value). A remapping result of ok=false removes the entry.
// The final value (or none, when removed) is returned.
func (m *Map[K, V]) Merge(key K, value V, fn RemapFunc[V]) (V, bool, error) {
	var zero V
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	if err := m.checkValue(value); err != nil {
		return zero, false, err
	}
	m.metrics.merges.Inc()

	q, err := m.openWithValue(key, value, engine.WriteLock)
	if err != nil {
		return zero, false, err
	}
	ret := q.DefaultReturnValue()
	opErr := m.ops.Merge(q, value, fn, ret)
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, false, err
	}
	return v, ok, nil
}

// Compute stores fn(key, existing, exists) as the new value; ok=false
// removes the entry (a no-op when already absent). The final value (or
// none) is returned.
func (m *Map[K, V]) Compute(key K, fn ComputeFunc[K, V]) (V, bool, error) {
	var zero V
	if err := m.checkKey(key); err != nil {
		return zero, false, err
	}
	m.metrics.computes.Inc()

	q, err := m.open(key, engine.WriteLock)
	if err != nil {
		return zero, false, err
	}
	ret := q.DefaultReturnValue()
	opErr := m.ops.Compute(q, fn, ret)
	v, ok := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, false, err
	}
	return v, ok, nil
}

// AcquireUsing returns the value for key, inserting one from the
// default-value policy when absent. The result is always decoded into
// `using`, and the returned instance is exactly `using` - anything else is
// a contract violation reported as CodeAcquireContract.
func (m *Map[K, V]) AcquireUsing(key K, using V) (V, error) {
	var zero V
	if err := m.requireInPlace(); err != nil {
		return zero, err
	}
	if err := m.checkKey(key); err != nil {
		return zero, err
	}
	if err := m.checkValue(using); err != nil {
		return zero, err
	}
	m.metrics.acquires.Inc()

	q, err := m.open(key, engine.WriteLock)
	if err != nil {
		return zero, err
	}
	ret := q.UsingReturnValue(using)
	opErr := m.ops.AcquireUsing(q, ret)
	if opErr == nil && !q.using.verify() {
		opErr = newError(CodeAcquireContract,
			"acquire must reuse the given instance; the codec produced a different one")
	}
	v, _ := ret.Get()
	if err := q.close(opErr); err != nil {
		m.metrics.observeError(err)
		return zero, err
	}
	return v, nil
}
