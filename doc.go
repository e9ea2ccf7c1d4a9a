// Package flightloop simulates the per-cycle timing budget of a real-time
// flight-control loop.
//
// Each cycle transforms a batch of sensor points through a 4x4 matrix, adds
// modeled subsystem overhead and an optional forced delay or jitter spike, and
// reports whether the composed total fits a hard deadline. The transform comes
// in several micro-architectural variants that compute the same mapping, so
// the budget outcome can be compared across implementations.
//
// # Architecture Overview
//
//   - Batches: cache-aligned point and output buffers, seeded deterministically
//   - Kernels: transform variants selected by tag from a catalog
//   - Harness: monotonic timing, budget accounting and cycle observers
//   - Reports: text log, YAML snapshot, XLSX workbook and PNG chart
//
// # Basic Usage
//
//	// Run the compiled-in profile over every default variant
//	flightloop
//
//	// Compare two variants from a custom profile and export the results
//	loopperf -profile fast.yaml -variants branchy,locality -xlsx out/cycles.xlsx
//
//	// Check numeric equivalence of every variant
//	loopverify -points 100000
//
// # Package Structure
//
//   - core: points, matrices, batches and alignment helpers
//   - kernels: transform variants, parallel fan-out and reference verification
//   - config: budget constants and YAML profiles
//   - harness: cycle execution, clock, calibration and Prometheus metrics
//   - report: printers and exporters for recorded runs
//   - cmd: command-line tools (flightloop, loopperf, loopverify)
package flightloop
