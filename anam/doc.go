// Package anam analyzes slot-reuse patterns in traces captured from the
// Anamnesis lock-free memory pool.
//
// # Reading Guide
//
// Start with these files to understand one analysis run:
//   - trace/record.go: the 16-byte on-disk record and the OpType enumeration
//   - trace/decode.go, trace/merge.go: per-file decoding and the global timestamp merge
//   - pipeline.go: Analyzer, which wires discovery, decoding, statistics and entropy
//
// # Metrics
//
//   - stats.go: per-op counts and the derived rates (undefined without data)
//   - entropy.go: normalized Shannon entropy of the ALLOC slot distribution
//   - detector.go: uniformity buckets and the k* = 1/(2 ln 2) proximity flag
//
// # Sweeps
//
// sweep.go analyzes one directory per contention level (traces_c1, traces_c2, ...)
// as independent units and collects (contention, H_norm) points; export.go
// hands those points to an optional SeriesSink for plotting elsewhere.
package anam
