package chmap_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/imlxw/Chronicle-Map/lib/chmap"
	chmaptesting "github.com/imlxw/Chronicle-Map/lib/chmap/testing"
	"github.com/imlxw/Chronicle-Map/lib/engine"
	"github.com/imlxw/Chronicle-Map/lib/serial"
)

func newStringBytesMap(t testing.TB, opts chmap.Options[string, []byte]) *chmap.Map[string, []byte] {
	t.Helper()
	opts.KeyCodec = serial.NewStringCodec()
	opts.ValueCodec = serial.NewBytesCodec()
	m, err := chmap.New(opts)
	if err != nil {
		t.Fatalf("Unexpected error creating map: %v", err)
	}
	return m
}

func Test(t *testing.T) {
	chmaptesting.RunMapTests(t, "Default", func() *chmap.Map[string, []byte] {
		return newStringBytesMap(t, chmap.Options[string, []byte]{Name: "suite-default"})
	})

	chmaptesting.RunMapTests(t, "SingleSegment", func() *chmap.Map[string, []byte] {
		return newStringBytesMap(t, chmap.Options[string, []byte]{
			Name:          "suite-single",
			EngineOptions: &engine.Options{Segments: 1, SegmentBytes: 8 << 20},
		})
	})

	chmaptesting.RunMapTests(t, "SmallChunks", func() *chmap.Map[string, []byte] {
		return newStringBytesMap(t, chmap.Options[string, []byte]{
			Name:          "suite-small-chunks",
			EngineOptions: &engine.Options{Segments: 4, SegmentBytes: 4 << 20, ChunkSize: 32, Alignment: 4},
		})
	})

	chmaptesting.RunMapTests(t, "NoAlignment", func() *chmap.Map[string, []byte] {
		return newStringBytesMap(t, chmap.Options[string, []byte]{
			Name:          "suite-no-align",
			EngineOptions: &engine.Options{Segments: 2, SegmentBytes: 4 << 20, Alignment: 1},
		})
	})
}

func Benchmark(b *testing.B) {
	chmaptesting.RunMapBenchmarks(b, "Default", func() *chmap.Map[string, []byte] {
		return newStringBytesMap(b, chmap.Options[string, []byte]{
			Name:          "bench-default",
			EngineOptions: &engine.Options{SegmentBytes: 32 << 20},
		})
	})
}

// --------------------------------------------------------------------------
// Return-value policies
// --------------------------------------------------------------------------

func TestPutReturnsNull(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:           "put-returns-null",
		PutReturnsNull: true,
	})
	defer m.Close()

	if _, _, err := m.Put("k", []byte("v1")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	prev, existed, err := m.Put("k", []byte("v2"))
	if err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}
	if existed || prev != nil {
		t.Errorf("Expected Put to suppress the previous value, got %s (existed=%v)", prev, existed)
	}

	// the entry itself is unaffected by the policy
	v, ok, err := m.Get("k")
	if err != nil {
		t.Fatalf("Unexpected error from Get: %v", err)
	}
	if !ok || string(v) != "v2" {
		t.Errorf("Expected v2, got %s (ok=%v)", v, ok)
	}

	// PutIfAbsent always reports the previous value, flag or not
	prev, existed, err = m.PutIfAbsent("k", []byte("v3"))
	if err != nil {
		t.Fatalf("Unexpected error from PutIfAbsent: %v", err)
	}
	if !existed || string(prev) != "v2" {
		t.Errorf("Expected PutIfAbsent to report v2, got %s (existed=%v)", prev, existed)
	}
}

func TestRemoveReturnsNull(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:              "remove-returns-null",
		RemoveReturnsNull: true,
	})
	defer m.Close()

	if _, _, err := m.Put("k", []byte("v")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	prev, existed, err := m.Remove("k")
	if err != nil {
		t.Fatalf("Unexpected error from Remove: %v", err)
	}
	if existed || prev != nil {
		t.Errorf("Expected Remove to suppress the previous value, got %s (existed=%v)", prev, existed)
	}

	if ok, _ := m.Has("k"); ok {
		t.Errorf("Expected entry to be removed despite suppressed return value")
	}
}

// --------------------------------------------------------------------------
// In-place decoding and acquire semantics
// --------------------------------------------------------------------------

func newBlobMap(t testing.TB, opts chmap.Options[string, *serial.Blob]) *chmap.Map[string, *serial.Blob] {
	t.Helper()
	opts.KeyCodec = serial.NewStringCodec()
	opts.ValueCodec = serial.NewBlobCodec()
	m, err := chmap.New(opts)
	if err != nil {
		t.Fatalf("Unexpected error creating map: %v", err)
	}
	return m
}

func TestGetUsing(t *testing.T) {
	m := newBlobMap(t, chmap.Options[string, *serial.Blob]{Name: "get-using"})
	defer m.Close()

	if _, _, err := m.Put("k", serial.NewBlob([]byte("stored"))); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	using := serial.NewBlob(nil)
	got, ok, err := m.GetUsing("k", using)
	if err != nil {
		t.Fatalf("Unexpected error from GetUsing: %v", err)
	}
	if !ok {
		t.Fatalf("Expected a hit")
	}
	if got != using {
		t.Errorf("Expected GetUsing to return the given instance")
	}
	if string(using.Data) != "stored" {
		t.Errorf("Expected decoded value stored, got %s", using.Data)
	}

	// miss leaves the instance untouched
	using.Data = append(using.Data[:0], []byte("untouched")...)
	_, ok, err = m.GetUsing("missing", using)
	if err != nil {
		t.Fatalf("Unexpected error from GetUsing: %v", err)
	}
	if ok {
		t.Errorf("Expected a miss")
	}
	if string(using.Data) != "untouched" {
		t.Errorf("Expected miss to leave the instance untouched, got %s", using.Data)
	}
}

func TestGetUsingRequiresInPlaceCodec(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{Name: "no-in-place"})
	defer m.Close()

	_, _, err := m.GetUsing("k", []byte("using"))
	if err == nil {
		t.Fatalf("Expected GetUsing to fail without in-place codec support")
	}
	if code, ok := chmap.CodeOf(err); !ok || code != chmap.CodeTypeMismatch {
		t.Errorf("Expected CodeTypeMismatch, got %v", err)
	}
}

func TestAcquireUsingConstantDefault(t *testing.T) {
	m := newBlobMap(t, chmap.Options[string, *serial.Blob]{
		Name:         "acquire-constant",
		DefaultValue: chmap.ConstantValue[string](serial.NewBlob(make([]byte, 8))),
	})
	defer m.Close()

	using := serial.NewBlob(nil)
	got, err := m.AcquireUsing("counter", using)
	if err != nil {
		t.Fatalf("Unexpected error from AcquireUsing: %v", err)
	}
	if got != using {
		t.Errorf("Expected AcquireUsing to return the given instance")
	}
	if got.Uint64() != 0 {
		t.Errorf("Expected zeroed default, got %d", got.Uint64())
	}

	// the default was inserted, not just returned
	if ok, _ := m.Has("counter"); !ok {
		t.Errorf("Expected acquire miss to insert the default value")
	}

	// read-modify-write through the acquired instance
	got.SetUint64(41)
	if _, _, err := m.Put("counter", got); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	again := serial.NewBlob(nil)
	got, err = m.AcquireUsing("counter", again)
	if err != nil {
		t.Fatalf("Unexpected error from AcquireUsing: %v", err)
	}
	if got.Uint64() != 41 {
		t.Errorf("Expected 41, got %d", got.Uint64())
	}
}

func TestAcquireUsingPerKeyDefault(t *testing.T) {
	m := newBlobMap(t, chmap.Options[string, *serial.Blob]{
		Name: "acquire-per-key",
		DefaultValue: chmap.DefaultValueFunc[string, *serial.Blob](func(key string) *serial.Blob {
			return serial.NewBlob([]byte(key + "-default"))
		}),
	})
	defer m.Close()

	using := serial.NewBlob(nil)
	got, err := m.AcquireUsing("alpha", using)
	if err != nil {
		t.Fatalf("Unexpected error from AcquireUsing: %v", err)
	}
	if string(got.Data) != "alpha-default" {
		t.Errorf("Expected per-key default, got %s", got.Data)
	}
}

func TestAcquireUsingNoDefaultPolicy(t *testing.T) {
	m := newBlobMap(t, chmap.Options[string, *serial.Blob]{Name: "acquire-no-default"})
	defer m.Close()

	_, err := m.AcquireUsing("k", serial.NewBlob(nil))
	if err == nil {
		t.Fatalf("Expected AcquireUsing to fail without a default-value policy")
	}
	if code, ok := chmap.CodeOf(err); !ok || code != chmap.CodeNoDefaultValue {
		t.Errorf("Expected CodeNoDefaultValue, got %v", err)
	}

	// an existing entry is still served
	if _, _, err := m.Put("present", serial.NewBlob([]byte("v"))); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}
	got, err := m.AcquireUsing("present", serial.NewBlob(nil))
	if err != nil {
		t.Fatalf("Unexpected error from AcquireUsing on present key: %v", err)
	}
	if string(got.Data) != "v" {
		t.Errorf("Expected v, got %s", got.Data)
	}
}

// --------------------------------------------------------------------------
// Scoped handles and views
// --------------------------------------------------------------------------

func TestAcquireContext(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{Name: "acquire-context"})
	defer m.Close()

	ac, err := m.AcquireContext("k")
	if err != nil {
		t.Fatalf("Unexpected error from AcquireContext: %v", err)
	}
	if ac.Found() {
		t.Errorf("Expected no entry before Set")
	}
	if _, ok, _ := ac.Value(); ok {
		t.Errorf("Expected Value to report absence")
	}

	if err := ac.Set([]byte("v1")); err != nil {
		t.Fatalf("Unexpected error from Set: %v", err)
	}
	if !ac.Found() {
		t.Errorf("Expected entry after Set")
	}
	v, ok, err := ac.Value()
	if err != nil || !ok || string(v) != "v1" {
		t.Errorf("Expected v1, got %s (ok=%v, err=%v)", v, ok, err)
	}

	if err := ac.Set([]byte("v2")); err != nil {
		t.Fatalf("Unexpected error from second Set: %v", err)
	}
	if err := ac.Remove(); err != nil {
		t.Fatalf("Unexpected error from Remove: %v", err)
	}
	if ac.Found() {
		t.Errorf("Expected no entry after Remove")
	}
	if err := ac.Remove(); err != nil {
		t.Fatalf("Expected Remove of absent entry to be a no-op, got %v", err)
	}

	if err := ac.Close(); err != nil {
		t.Fatalf("Unexpected error from Close: %v", err)
	}
	if err := ac.Close(); err != nil {
		t.Fatalf("Expected Close to be idempotent, got %v", err)
	}
	if err := ac.Set([]byte("late")); err == nil {
		t.Errorf("Expected Set after Close to fail")
	}

	if ok, _ := m.Has("k"); ok {
		t.Errorf("Expected entry to stay removed after Close")
	}
}

func TestGetView(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{Name: "get-view"})
	defer m.Close()

	if _, _, err := m.Put("k", []byte("view-value")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	var seen string
	found, err := m.GetView("k", func(value []byte) error {
		seen = string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error from GetView: %v", err)
	}
	if !found || seen != "view-value" {
		t.Errorf("Expected view-value, got %s (found=%v)", seen, found)
	}

	called := false
	found, err = m.GetView("missing", func(value []byte) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error from GetView: %v", err)
	}
	if found || called {
		t.Errorf("Expected miss to skip the callback")
	}

	// a callback error propagates as the operation error
	wantErr := errors.New("callback failure")
	_, err = m.GetView("k", func(value []byte) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected callback error to propagate, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Reentrancy
// --------------------------------------------------------------------------

func TestNestedReadSharesSegmentLock(t *testing.T) {
	// single segment forces every nested call onto the held lock
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "nested-read",
		EngineOptions: &engine.Options{Segments: 1},
	})
	defer m.Close()

	if _, _, err := m.Put("outer", []byte("outer-value")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}
	if _, _, err := m.Put("inner", []byte("inner-value")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	found, err := m.GetView("outer", func(value []byte) error {
		inner, ok, err := m.Get("inner")
		if err != nil {
			return err
		}
		if !ok || string(inner) != "inner-value" {
			return fmt.Errorf("nested read failed: %s (ok=%v)", inner, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error from nested read: %v", err)
	}
	if !found {
		t.Fatalf("Expected outer key to exist")
	}
}

func TestNestedWriteInsideComputeSharesSegmentLock(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "nested-write",
		EngineOptions: &engine.Options{Segments: 1},
	})
	defer m.Close()

	// the outer write lock covers nested reads and writes on the segment
	_, _, err := m.Compute("outer", func(key string, old []byte, present bool) ([]byte, bool) {
		if _, _, err := m.Put("sibling", []byte("sibling-value")); err != nil {
			t.Errorf("Unexpected error from nested Put: %v", err)
		}
		return []byte("outer-value"), true
	})
	if err != nil {
		t.Fatalf("Unexpected error from Compute: %v", err)
	}

	for _, key := range []string{"outer", "sibling"} {
		if ok, _ := m.Has(key); !ok {
			t.Errorf("Expected key %s to exist after nested writes", key)
		}
	}
}

func TestNestedPutOfSameKeyInsideCompute(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "nested-same-key-put",
		EngineOptions: &engine.Options{Segments: 1},
	})
	defer m.Close()

	// the nested Put relocates the entry the outer Compute is positioned on;
	// the outer store must overwrite that entry, not create a second one
	v, ok, err := m.Compute("k", func(key string, old []byte, present bool) ([]byte, bool) {
		if _, _, err := m.Put("k", []byte("from-nested")); err != nil {
			t.Errorf("Unexpected error from nested Put: %v", err)
		}
		return []byte("from-compute"), true
	})
	if err != nil {
		t.Fatalf("Unexpected error from Compute: %v", err)
	}
	if !ok || string(v) != "from-compute" {
		t.Errorf("Expected Compute to report from-compute, got %s (ok=%v)", v, ok)
	}

	if n, _ := m.Len(); n != 1 {
		t.Errorf("Expected exactly one entry after same-key nested put, got %d", n)
	}
	if got, ok, _ := m.Get("k"); !ok || string(got) != "from-compute" {
		t.Errorf("Expected from-compute, got %s (ok=%v)", got, ok)
	}

	if _, _, err := m.Remove("k"); err != nil {
		t.Fatalf("Unexpected error from Remove: %v", err)
	}
	if ok, _ := m.Has("k"); ok {
		t.Errorf("Expected key to be gone after Remove")
	}
	if n, _ := m.Len(); n != 0 {
		t.Errorf("Expected empty map after Remove, got %d entries", n)
	}
}

func TestNestedRemoveOfSameKeyInsideCompute(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "nested-same-key-remove",
		EngineOptions: &engine.Options{Segments: 1},
	})
	defer m.Close()

	if _, _, err := m.Put("k", []byte("original")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	// the nested Remove frees the entry the outer Compute looked up; the
	// computed result must still end up stored
	v, ok, err := m.Compute("k", func(key string, old []byte, present bool) ([]byte, bool) {
		if string(old) != "original" || !present {
			t.Errorf("Expected original entry, got %s (present=%v)", old, present)
		}
		if _, _, err := m.Remove("k"); err != nil {
			t.Errorf("Unexpected error from nested Remove: %v", err)
		}
		return []byte("recomputed"), true
	})
	if err != nil {
		t.Fatalf("Unexpected error from Compute: %v", err)
	}
	if !ok || string(v) != "recomputed" {
		t.Errorf("Expected Compute to report recomputed, got %s (ok=%v)", v, ok)
	}

	if got, ok, _ := m.Get("k"); !ok || string(got) != "recomputed" {
		t.Errorf("Expected recomputed to be stored, got %s (ok=%v)", got, ok)
	}
	if n, _ := m.Len(); n != 1 {
		t.Errorf("Expected exactly one entry, got %d", n)
	}
}

func TestNestedRemoveOfSameKeyInsideMerge(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "nested-same-key-merge",
		EngineOptions: &engine.Options{Segments: 1},
	})
	defer m.Close()

	if _, _, err := m.Put("k", []byte("original")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	// drop branch: the remapping function removes the key itself and then
	// votes to drop - the entry is already gone, which must not be an error
	_, ok, err := m.Merge("k", []byte("operand"), func(old, operand []byte) ([]byte, bool) {
		if _, _, err := m.Remove("k"); err != nil {
			t.Errorf("Unexpected error from nested Remove: %v", err)
		}
		return nil, false
	})
	if err != nil {
		t.Fatalf("Unexpected error from Merge: %v", err)
	}
	if ok {
		t.Errorf("Expected Merge to report no final value")
	}
	if has, _ := m.Has("k"); has {
		t.Errorf("Expected key to be gone after merge drop")
	}

	// and the map must still work afterwards
	if _, _, err := m.Put("k", []byte("again")); err != nil {
		t.Fatalf("Unexpected error from Put after merge drop: %v", err)
	}
	if n, _ := m.Len(); n != 1 {
		t.Errorf("Expected exactly one entry, got %d", n)
	}
}

func TestNestedWriteUnderReadLockFails(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "lock-upgrade",
		EngineOptions: &engine.Options{Segments: 1},
	})
	defer m.Close()

	if _, _, err := m.Put("k", []byte("v")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}

	var nestedErr error
	_, err := m.GetView("k", func(value []byte) error {
		_, _, nestedErr = m.Put("other", []byte("other-value"))
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error from GetView: %v", err)
	}
	if nestedErr == nil {
		t.Fatalf("Expected nested write under read lock to fail")
	}
	if code, ok := chmap.CodeOf(nestedErr); !ok || code != chmap.CodeLockUpgrade {
		t.Errorf("Expected CodeLockUpgrade, got %v", nestedErr)
	}

	// the failed nested write must not have happened
	if ok, _ := m.Has("other"); ok {
		t.Errorf("Expected failed nested write to leave no entry")
	}

	// and the map must still work afterwards
	if _, _, err := m.Put("other", []byte("other-value")); err != nil {
		t.Fatalf("Unexpected error from Put after failed nested write: %v", err)
	}
}

func TestNestedIterationInsideCallbacks(t *testing.T) {
	// single segment: every iteration step hits the lock the enclosing
	// operation already holds
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "nested-iteration",
		EngineOptions: &engine.Options{Segments: 1},
	})
	defer m.Close()

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key-%d", i)
		if _, _, err := m.Put(key, []byte("value")); err != nil {
			t.Fatalf("Unexpected error from Put: %v", err)
		}
	}

	// Range under the read lock of a GetView
	found, err := m.GetView("key-0", func(value []byte) error {
		seen := 0
		if err := m.Range(func(k string, v []byte) bool {
			seen++
			return true
		}); err != nil {
			return err
		}
		if seen != 3 {
			return fmt.Errorf("nested range saw %d entries, expected 3", seen)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error from nested Range: %v", err)
	}
	if !found {
		t.Fatalf("Expected key-0 to exist")
	}

	// Len under the write lock of a Compute
	if _, _, err := m.Compute("key-0", func(key string, old []byte, present bool) ([]byte, bool) {
		n, err := m.Len()
		if err != nil {
			t.Errorf("Unexpected error from nested Len: %v", err)
		}
		if n != 3 {
			t.Errorf("Expected nested Len of 3, got %d", n)
		}
		return old, present
	}); err != nil {
		t.Fatalf("Unexpected error from Compute: %v", err)
	}

	// Clear under a read lock must fail instead of deadlocking
	var nestedErr error
	if _, err := m.GetView("key-0", func(value []byte) error {
		nestedErr = m.Clear()
		return nil
	}); err != nil {
		t.Fatalf("Unexpected error from GetView: %v", err)
	}
	if code, ok := chmap.CodeOf(nestedErr); !ok || code != chmap.CodeLockUpgrade {
		t.Errorf("Expected CodeLockUpgrade from nested Clear, got %v", nestedErr)
	}
}

// --------------------------------------------------------------------------
// Capacity
// --------------------------------------------------------------------------

func TestCapacityExhaustion(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{
		Name:          "capacity",
		EngineOptions: &engine.Options{Segments: 1, SegmentBytes: 4096, ChunkSize: 64},
	})
	defer m.Close()

	value := make([]byte, 256)
	var capErr error
	for i := 0; i < 1000; i++ {
		if _, _, err := m.Put(fmt.Sprintf("key-%d", i), value); err != nil {
			capErr = err
			break
		}
	}
	if capErr == nil {
		t.Fatalf("Expected a full segment to reject inserts")
	}
	if code, ok := chmap.CodeOf(capErr); !ok || code != chmap.CodeCapacity {
		t.Errorf("Expected CodeCapacity, got %v", capErr)
	}

	// existing entries survive and free space is reusable
	v, ok, err := m.Get("key-0")
	if err != nil || !ok || len(v) != 256 {
		t.Errorf("Expected key-0 to survive exhaustion (ok=%v, err=%v)", ok, err)
	}
	if _, _, err := m.Remove("key-0"); err != nil {
		t.Fatalf("Unexpected error from Remove: %v", err)
	}
	if _, _, err := m.Put("replacement", value); err != nil {
		t.Errorf("Expected freed space to be reusable, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Typed values
// --------------------------------------------------------------------------

func TestUint64Values(t *testing.T) {
	m, err := chmap.New(chmap.Options[string, uint64]{
		Name:       "uint64-values",
		KeyCodec:   serial.NewStringCodec(),
		ValueCodec: serial.NewUint64Codec(),
	})
	if err != nil {
		t.Fatalf("Unexpected error creating map: %v", err)
	}
	defer m.Close()

	for i := uint64(0); i < 100; i++ {
		if _, _, err := m.Put(fmt.Sprintf("n-%d", i), i*i); err != nil {
			t.Fatalf("Unexpected error from Put: %v", err)
		}
	}
	for i := uint64(0); i < 100; i++ {
		v, ok, err := m.Get(fmt.Sprintf("n-%d", i))
		if err != nil || !ok || v != i*i {
			t.Errorf("Expected %d, got %d (ok=%v, err=%v)", i*i, v, ok, err)
		}
	}

	// numeric merge
	sum, _, err := m.Merge("n-3", 100, func(old, operand uint64) (uint64, bool) {
		return old + operand, true
	})
	if err != nil {
		t.Fatalf("Unexpected error from Merge: %v", err)
	}
	if sum != 109 {
		t.Errorf("Expected 109, got %d", sum)
	}
}

func TestMapString(t *testing.T) {
	m := newStringBytesMap(t, chmap.Options[string, []byte]{Name: "stringer"})
	defer m.Close()

	if m.String() != "chmap.Map{}" {
		t.Errorf("Expected empty rendering, got %s", m.String())
	}

	if _, _, err := m.Put("k", []byte("v")); err != nil {
		t.Fatalf("Unexpected error from Put: %v", err)
	}
	s := m.String()
	if s == "chmap.Map{}" {
		t.Errorf("Expected non-empty rendering")
	}
}
