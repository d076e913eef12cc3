package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/imlxw/Chronicle-Map/lib/chmap"
)

// RunMapBenchmarks runs all benchmarks for a map configuration.
func RunMapBenchmarks(b *testing.B, name string, factory MapFactory) {

	b.Run("Put", func(b *testing.B) {
		benchmarkPut(b, factory())
	})

	b.Run("PutExisting", func(b *testing.B) {
		benchmarkPutExisting(b, factory())
	})

	b.Run("PutLargeValue", func(b *testing.B) {
		benchmarkPutLargeValue(b, factory())
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run("Has", func(b *testing.B) {
		benchmarkHas(b, factory())
	})

	b.Run("Has(not)", func(b *testing.B) {
		benchmarkHasNot(b, factory())
	})

	b.Run("Remove", func(b *testing.B) {
		benchmarkRemove(b, factory())
	})

	b.Run("Compute", func(b *testing.B) {
		benchmarkCompute(b, factory())
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory())
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkPut(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", counter)
			value := []byte(fmt.Sprintf("test-value-%d", counter))
			m.Put(key, value)
			counter++
		}
	})
}

func benchmarkPutExisting(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	numKeys := 1024
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		m.Put(keys[i], []byte(fmt.Sprintf("test-value-%d", i)))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			m.Put(keys[counter%numKeys], []byte("updated-value"))
			counter++
		}
	})
}

func benchmarkPutLargeValue(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	largeValue := make([]byte, 64*1024)
	rand.Read(largeValue)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Put("large-value-key", largeValue)
	}
}

func benchmarkGet(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	numKeys := 1024
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		m.Put(keys[i], []byte(fmt.Sprintf("test-value-%d", i)))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			m.Get(keys[counter%numKeys])
			counter++
		}
	})
}

func benchmarkHas(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	numKeys := 1024
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		m.Put(keys[i], []byte(fmt.Sprintf("test-value-%d", i)))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			m.Has(keys[counter%numKeys])
			counter++
		}
	})
}

func benchmarkHasNot(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			m.Has(fmt.Sprintf("missing-key-%d", counter))
			counter++
		}
	})
}

func benchmarkRemove(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	value := []byte("test-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("test-key-%d", i%1024)
		m.Put(key, value)
		m.Remove(key)
	}
}

func benchmarkCompute(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	bump := func(key string, old []byte, present bool) ([]byte, bool) {
		if !present {
			return []byte{1}, true
		}
		old[0]++
		return old, true
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			m.Compute(fmt.Sprintf("counter-%d", counter%128), bump)
			counter++
		}
	})
}

func benchmarkMixedUsage(b *testing.B, m *chmap.Map[string, []byte]) {
	b.Cleanup(func() {
		m.Close()
	})

	numKeys := 1024
	keys := make([]string, numKeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		m.Put(keys[i], []byte(fmt.Sprintf("test-value-%d", i)))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := keys[counter%numKeys]
			switch counter % 10 {
			case 0, 1:
				m.Put(key, []byte("mixed-value"))
			case 2:
				m.Remove(key)
			case 3:
				m.Has(key)
			default:
				m.Get(key)
			}
			counter++
		}
	})
}
