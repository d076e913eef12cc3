// Package testing provides standardised tests and benchmarks for map
// configurations built on the chmap core.
//
// The package contains:
//   - testing: A comprehensive test suite validating conformance to the map
//     operation contract (point operations, bulk accessors, edge cases,
//     concurrent access)
//   - benchmark: Performance tests for measuring throughput of common map
//     operations
//
// This is particularly useful when swapping out the storage engine or the
// operation strategies: every configuration reachable through chmap.Options
// can be run through the same suite.
//
// Example usage:
//
//	// Creating a factory function for your configuration
//	factory := func() *chmap.Map[string, []byte] {
//		m, _ := chmap.New(chmap.Options[string, []byte]{
//			KeyCodec:   serial.NewStringCodec(),
//			ValueCodec: serial.NewBytesCodec(),
//		})
//		return m
//	}
//
//	// Running the standard test suite
//	chmaptesting.RunMapTests(t, "MyConfig", factory)
//
//	// Running performance benchmarks
//	chmaptesting.RunMapBenchmarks(b, "MyConfig", factory)
package testing
