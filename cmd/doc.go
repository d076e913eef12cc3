// Package cmd implements the command-line interface for the chmap embedded
// key-value map. It provides a hierarchical command structure for inspecting
// engine behavior and benchmarking map configurations.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for working with an embedded map (info, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See chmap -help for a list of all commands.
package cmd
