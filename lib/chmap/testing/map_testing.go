package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/imlxw/Chronicle-Map/lib/chmap"
)

// MapFactory is a function that creates a new map instance for a test.
type MapFactory func() *chmap.Map[string, []byte]

// RunMapTests runs a comprehensive test suite against a map configuration.
func RunMapTests(t *testing.T, name string, factory MapFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory())
		})

		t.Run("PutIfAbsent", func(t *testing.T) {
			testPutIfAbsent(t, factory())
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory())
		})

		t.Run("RemoveIf", func(t *testing.T) {
			testRemoveIf(t, factory())
		})

		t.Run("Replace", func(t *testing.T) {
			testReplace(t, factory())
		})

		t.Run("ReplaceIf", func(t *testing.T) {
			testReplaceIf(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("Merge", func(t *testing.T) {
			testMerge(t, factory())
		})

		t.Run("Compute", func(t *testing.T) {
			testCompute(t, factory())
		})

		t.Run("Range&Len&Clear", func(t *testing.T) {
			testRangeLenClear(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ManyKeys", func(t *testing.T) {
			testManyKeys(t, factory())
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustPut(t testing.TB, m *chmap.Map[string, []byte], key string, value []byte) {
	t.Helper()
	if _, _, err := m.Put(key, value); err != nil {
		t.Fatalf("Unexpected error from Put(%q): %v", key, err)
	}
}

func mustGet(t testing.TB, m *chmap.Map[string, []byte], key string) ([]byte, bool) {
	t.Helper()
	v, ok, err := m.Get(key)
	if err != nil {
		t.Fatalf("Unexpected error from Get(%q): %v", key, err)
	}
	return v, ok
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustPut(t, m, testKey, testValue1)

	result, exists := mustGet(t, m, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustPut(t, m, testKey, testValue2)

	result, exists = mustGet(t, m, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Put", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = mustGet(t, m, "nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := mustGet(t, m, testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := mustGet(t, m, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}
}

func testPutIfAbsent(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	prev, existed, err := m.PutIfAbsent(testKey, testValue1)
	if err != nil {
		t.Fatalf("Unexpected error from PutIfAbsent: %v", err)
	}
	if existed {
		t.Errorf("Expected no previous value on first insert, got %s", prev)
	}

	prev, existed, err = m.PutIfAbsent(testKey, testValue2)
	if err != nil {
		t.Fatalf("Unexpected error from PutIfAbsent: %v", err)
	}
	if !existed {
		t.Errorf("Expected previous value on second insert")
	}
	if !bytes.Equal(prev, testValue1) {
		t.Errorf("Expected previous value %s, got %s", testValue1, prev)
	}

	result, _ := mustGet(t, m, testKey)
	if !bytes.Equal(result, testValue1) {
		t.Errorf("PutIfAbsent must not overwrite; expected %s, got %s", testValue1, result)
	}
}

func testRemove(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "remove-test-key"
	testValue := []byte("remove-test-value")

	mustPut(t, m, testKey, testValue)

	prev, existed, err := m.Remove(testKey)
	if err != nil {
		t.Fatalf("Unexpected error from Remove: %v", err)
	}
	if !existed {
		t.Errorf("Expected Remove to report a previous value")
	}
	if !bytes.Equal(prev, testValue) {
		t.Errorf("Expected removed value %s, got %s", testValue, prev)
	}

	_, exists := mustGet(t, m, testKey)
	if exists {
		t.Errorf("Expected key %s to not exist after Remove", testKey)
	}

	_, existed, err = m.Remove("nonexistent-key")
	if err != nil {
		t.Fatalf("Unexpected error removing nonexistent key: %v", err)
	}
	if existed {
		t.Errorf("Expected Remove of nonexistent key to report no previous value")
	}
}

func testRemoveIf(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "remove-if-key"
	testValue := []byte("expected-value")
	otherValue := []byte("other-value")

	mustPut(t, m, testKey, testValue)

	removed, err := m.RemoveIf(testKey, &otherValue)
	if err != nil {
		t.Fatalf("Unexpected error from RemoveIf: %v", err)
	}
	if removed {
		t.Errorf("RemoveIf must not remove on value mismatch")
	}
	if _, exists := mustGet(t, m, testKey); !exists {
		t.Errorf("Key must survive a mismatched RemoveIf")
	}

	removed, err = m.RemoveIf(testKey, nil)
	if err != nil {
		t.Fatalf("Unexpected error from RemoveIf with nil value: %v", err)
	}
	if removed {
		t.Errorf("RemoveIf with nil expected value must be a no-op")
	}

	removed, err = m.RemoveIf(testKey, &testValue)
	if err != nil {
		t.Fatalf("Unexpected error from RemoveIf: %v", err)
	}
	if !removed {
		t.Errorf("RemoveIf must remove on value match")
	}
	if _, exists := mustGet(t, m, testKey); exists {
		t.Errorf("Key must be gone after matched RemoveIf")
	}
}

func testReplace(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "replace-key"
	testValue1 := []byte("replace-value1")
	testValue2 := []byte("replace-value2")

	_, existed, err := m.Replace(testKey, testValue1)
	if err != nil {
		t.Fatalf("Unexpected error from Replace: %v", err)
	}
	if existed {
		t.Errorf("Replace of absent key must not report a previous value")
	}
	if _, exists := mustGet(t, m, testKey); exists {
		t.Errorf("Replace must never insert an absent key")
	}

	mustPut(t, m, testKey, testValue1)

	prev, existed, err := m.Replace(testKey, testValue2)
	if err != nil {
		t.Fatalf("Unexpected error from Replace: %v", err)
	}
	if !existed {
		t.Errorf("Expected Replace of present key to report the previous value")
	}
	if !bytes.Equal(prev, testValue1) {
		t.Errorf("Expected previous value %s, got %s", testValue1, prev)
	}

	result, _ := mustGet(t, m, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s after Replace, got %s", testValue2, result)
	}
}

func testReplaceIf(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "replace-if-key"
	oldValue := []byte("old-value")
	newValue := []byte("new-value")
	wrongValue := []byte("wrong-value")

	mustPut(t, m, testKey, oldValue)

	replaced, err := m.ReplaceIf(testKey, wrongValue, newValue)
	if err != nil {
		t.Fatalf("Unexpected error from ReplaceIf: %v", err)
	}
	if replaced {
		t.Errorf("ReplaceIf must not replace on value mismatch")
	}

	replaced, err = m.ReplaceIf(testKey, oldValue, newValue)
	if err != nil {
		t.Fatalf("Unexpected error from ReplaceIf: %v", err)
	}
	if !replaced {
		t.Errorf("ReplaceIf must replace on value match")
	}

	result, _ := mustGet(t, m, testKey)
	if !bytes.Equal(result, newValue) {
		t.Errorf("Expected value %s after ReplaceIf, got %s", newValue, result)
	}

	replaced, err = m.ReplaceIf("nonexistent-key", oldValue, newValue)
	if err != nil {
		t.Fatalf("Unexpected error from ReplaceIf on absent key: %v", err)
	}
	if replaced {
		t.Errorf("ReplaceIf on absent key must report false")
	}
}

func testHas(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "has-test-key"

	has, err := m.Has(testKey)
	if err != nil {
		t.Fatalf("Unexpected error from Has: %v", err)
	}
	if has {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	mustPut(t, m, testKey, []byte("has-test-value"))

	has, err = m.Has(testKey)
	if err != nil {
		t.Fatalf("Unexpected error from Has: %v", err)
	}
	if !has {
		t.Errorf("Expected Has to return true after Put")
	}

	if _, _, err := m.Remove(testKey); err != nil {
		t.Fatalf("Unexpected error from Remove: %v", err)
	}

	has, err = m.Has(testKey)
	if err != nil {
		t.Fatalf("Unexpected error from Has: %v", err)
	}
	if has {
		t.Errorf("Expected Has to return false after Remove")
	}
}

func testMerge(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "merge-key"
	concat := func(old, operand []byte) ([]byte, bool) {
		return append(append([]byte{}, old...), operand...), true
	}

	result, exists, err := m.Merge(testKey, []byte("a"), concat)
	if err != nil {
		t.Fatalf("Unexpected error from Merge: %v", err)
	}
	if !exists || !bytes.Equal(result, []byte("a")) {
		t.Errorf("Expected Merge on absent key to insert the operand, got %s", result)
	}

	result, exists, err = m.Merge(testKey, []byte("b"), concat)
	if err != nil {
		t.Fatalf("Unexpected error from Merge: %v", err)
	}
	if !exists || !bytes.Equal(result, []byte("ab")) {
		t.Errorf("Expected merged value ab, got %s", result)
	}

	// an ok=false remapping removes the entry
	_, exists, err = m.Merge(testKey, []byte("c"), func(old, operand []byte) ([]byte, bool) {
		return nil, false
	})
	if err != nil {
		t.Fatalf("Unexpected error from Merge: %v", err)
	}
	if exists {
		t.Errorf("Expected remapping to remove the entry")
	}
	if _, found := mustGet(t, m, testKey); found {
		t.Errorf("Entry must be gone after removing remap")
	}
}

func testCompute(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	testKey := "compute-key"

	result, exists, err := m.Compute(testKey, func(key string, old []byte, present bool) ([]byte, bool) {
		if present {
			t.Errorf("Expected compute on absent key to see present=false")
		}
		return []byte("computed-1"), true
	})
	if err != nil {
		t.Fatalf("Unexpected error from Compute: %v", err)
	}
	if !exists || !bytes.Equal(result, []byte("computed-1")) {
		t.Errorf("Expected computed-1, got %s", result)
	}

	result, exists, err = m.Compute(testKey, func(key string, old []byte, present bool) ([]byte, bool) {
		if !present || !bytes.Equal(old, []byte("computed-1")) {
			t.Errorf("Expected compute to see the previous value, got %s (present=%v)", old, present)
		}
		return append(old, '+'), true
	})
	if err != nil {
		t.Fatalf("Unexpected error from Compute: %v", err)
	}
	if !exists || !bytes.Equal(result, []byte("computed-1+")) {
		t.Errorf("Expected computed-1+, got %s", result)
	}

	_, exists, err = m.Compute(testKey, func(key string, old []byte, present bool) ([]byte, bool) {
		return nil, false
	})
	if err != nil {
		t.Fatalf("Unexpected error from Compute: %v", err)
	}
	if exists {
		t.Errorf("Expected ok=false compute to remove the entry")
	}

	// removing an absent entry is a no-op
	_, exists, err = m.Compute(testKey, func(key string, old []byte, present bool) ([]byte, bool) {
		return nil, false
	})
	if err != nil {
		t.Fatalf("Unexpected error from Compute on absent key: %v", err)
	}
	if exists {
		t.Errorf("Expected compute-remove on absent key to report no value")
	}
}

func testRangeLenClear(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	numKeys := 100
	for i := 0; i < numKeys; i++ {
		mustPut(t, m, fmt.Sprintf("range-key-%d", i), []byte(fmt.Sprintf("range-value-%d", i)))
	}

	n, err := m.Len()
	if err != nil {
		t.Fatalf("Unexpected error from Len: %v", err)
	}
	if n != numKeys {
		t.Errorf("Expected Len %d, got %d", numKeys, n)
	}

	seen := make(map[string]string, numKeys)
	err = m.Range(func(key string, value []byte) bool {
		seen[key] = string(value)
		return true
	})
	if err != nil {
		t.Fatalf("Unexpected error from Range: %v", err)
	}
	if len(seen) != numKeys {
		t.Errorf("Expected Range to visit %d entries, visited %d", numKeys, len(seen))
	}
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("range-key-%d", i)
		if seen[key] != fmt.Sprintf("range-value-%d", i) {
			t.Errorf("Unexpected value for %s: %s", key, seen[key])
		}
	}

	// early termination
	visited := 0
	err = m.Range(func(key string, value []byte) bool {
		visited++
		return visited < 10
	})
	if err != nil {
		t.Fatalf("Unexpected error from Range: %v", err)
	}
	if visited != 10 {
		t.Errorf("Expected Range to stop after 10 visits, visited %d", visited)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Unexpected error from Clear: %v", err)
	}
	n, err = m.Len()
	if err != nil {
		t.Fatalf("Unexpected error from Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty map after Clear, got Len %d", n)
	}
}

func testEdgeCases(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	mustPut(t, m, emptyKey, emptyKeyValue)

	result, exists := mustGet(t, m, emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Put")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	emptyValueKey := "empty-value-key"
	emptyValue := []byte{}

	mustPut(t, m, emptyValueKey, emptyValue)

	result, exists = mustGet(t, m, emptyValueKey)
	if !exists {
		t.Errorf("Key for empty value not found after Put")
	} else if len(result) != 0 {
		t.Errorf("Empty value resulted in non-empty value: %v", result)
	}

	// a nil value is a codec error, not a stored entry
	if _, _, err := m.Put("nil-value-key", nil); err == nil {
		t.Errorf("Expected Put with nil value to be rejected by the codec")
	}

	largeKey := string(make([]byte, 1000))
	largeKeyValue := []byte("value for large key")

	mustPut(t, m, largeKey, largeKeyValue)

	result, exists = mustGet(t, m, largeKey)
	if !exists {
		t.Errorf("Large key not found after Put")
	} else if !bytes.Equal(result, largeKeyValue) {
		t.Errorf("Value mismatch for large key")
	}

	// values spanning many allocation chunks
	largeValueKey := "large-value-key"
	largeValue := make([]byte, 16*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	mustPut(t, m, largeValueKey, largeValue)

	result, exists = mustGet(t, m, largeValueKey)
	if !exists {
		t.Errorf("Key for large value not found after Put")
	} else if !bytes.Equal(result, largeValue) {
		t.Errorf("Large value mismatch (len %d vs %d)", len(result), len(largeValue))
	}

	// growing and shrinking the same entry exercises relocation
	mustPut(t, m, largeValueKey, []byte("tiny"))
	result, _ = mustGet(t, m, largeValueKey)
	if !bytes.Equal(result, []byte("tiny")) {
		t.Errorf("Expected shrunk value, got %d bytes", len(result))
	}
	mustPut(t, m, largeValueKey, largeValue)
	result, _ = mustGet(t, m, largeValueKey)
	if !bytes.Equal(result, largeValue) {
		t.Errorf("Expected regrown value, got %d bytes", len(result))
	}
}

func testManyKeys(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	numKeys := 5000
	for i := 0; i < numKeys; i++ {
		mustPut(t, m, fmt.Sprintf("many-key-%d", i), []byte(fmt.Sprintf("many-value-%d", i)))
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("many-key-%d", i)
		result, exists := mustGet(t, m, key)
		if !exists {
			t.Errorf("Key %s not found", key)
			continue
		}
		if !bytes.Equal(result, []byte(fmt.Sprintf("many-value-%d", i))) {
			t.Errorf("Value mismatch for key %s: %s", key, result)
		}
	}

	// remove every other key, the rest must survive
	for i := 0; i < numKeys; i += 2 {
		if _, _, err := m.Remove(fmt.Sprintf("many-key-%d", i)); err != nil {
			t.Fatalf("Unexpected error from Remove: %v", err)
		}
	}
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("many-key-%d", i)
		_, exists := mustGet(t, m, key)
		if i%2 == 0 && exists {
			t.Errorf("Key %s should have been removed", key)
		}
		if i%2 == 1 && !exists {
			t.Errorf("Key %s should have survived", key)
		}
	}
}

func testConcurrentAccess(t *testing.T, m *chmap.Map[string, []byte]) {
	defer m.Close()

	numGoroutines := 8
	keysPerGoroutine := 500

	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < keysPerGoroutine; i++ {
				key := fmt.Sprintf("concurrent-%d-%d", g, i)
				value := []byte(fmt.Sprintf("value-%d-%d", g, i))
				if _, _, err := m.Put(key, value); err != nil {
					t.Errorf("Unexpected error from Put(%q): %v", key, err)
					return
				}
				result, exists, err := m.Get(key)
				if err != nil {
					t.Errorf("Unexpected error from Get(%q): %v", key, err)
					return
				}
				if !exists || !bytes.Equal(result, value) {
					t.Errorf("Read-own-write failed for %s", key)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	n, err := m.Len()
	if err != nil {
		t.Fatalf("Unexpected error from Len: %v", err)
	}
	if n != numGoroutines*keysPerGoroutine {
		t.Errorf("Expected %d entries after concurrent writes, got %d",
			numGoroutines*keysPerGoroutine, n)
	}
}
